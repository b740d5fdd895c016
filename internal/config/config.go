package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	GHL       GHLConfig       `yaml:"ghl" mapstructure:"ghl"`
	Dux       DuxConfig       `yaml:"dux" mapstructure:"dux"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Mirror    MirrorConfig    `yaml:"mirror" mapstructure:"mirror"`
	Reconcile ReconcileConfig `yaml:"reconcile" mapstructure:"reconcile"`
	Alert     AlertConfig     `yaml:"alert" mapstructure:"alert"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Timezone  string          `yaml:"timezone" mapstructure:"timezone"`
}

// GHLConfig holds LeadConnector CRM credentials and transport settings.
type GHLConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	LocationID  string  `yaml:"location_id" mapstructure:"location_id"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// DuxConfig holds DUX ERP credentials.
type DuxConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	CompanyID   string `yaml:"company_id" mapstructure:"company_id"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ExtractConfig configures the customer grid extraction.
type ExtractConfig struct {
	SourcePath       string `yaml:"source_path" mapstructure:"source_path"`
	SourceFormat     string `yaml:"source_format" mapstructure:"source_format"`
	Charset          string `yaml:"charset" mapstructure:"charset"`
	HasHeader        bool   `yaml:"has_header" mapstructure:"has_header"`
	PageSize         int    `yaml:"page_size" mapstructure:"page_size"`
	PageDelaySecs    int    `yaml:"page_delay_secs" mapstructure:"page_delay_secs"`
	GridWidth        int    `yaml:"grid_width" mapstructure:"grid_width"`
	LeadingOffset    int    `yaml:"leading_offset" mapstructure:"leading_offset"`
	StagingPath      string `yaml:"staging_path" mapstructure:"staging_path"`
	StagingMode      string `yaml:"staging_mode" mapstructure:"staging_mode"`
	WindowOffsetDays int    `yaml:"window_offset_days" mapstructure:"window_offset_days"`
}

// MirrorConfig configures the spreadsheet mirror. An empty path disables it.
type MirrorConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ReconcileConfig configures invoice reconciliation.
type ReconcileConfig struct {
	SubunitDelaySecs int    `yaml:"subunit_delay_secs" mapstructure:"subunit_delay_secs"`
	RentalMarker     string `yaml:"rental_marker" mapstructure:"rental_marker"`
	WindowOffsetDays int    `yaml:"window_offset_days" mapstructure:"window_offset_days"`
}

// AlertConfig configures alert delivery.
type AlertConfig struct {
	WebhookURL           string   `yaml:"webhook_url" mapstructure:"webhook_url"`
	SMTPHost             string   `yaml:"smtp_host" mapstructure:"smtp_host"`
	SMTPPort             int      `yaml:"smtp_port" mapstructure:"smtp_port"`
	SMTPUser             string   `yaml:"smtp_user" mapstructure:"smtp_user"`
	SMTPPassword         string   `yaml:"smtp_password" mapstructure:"smtp_password"`
	From                 string   `yaml:"from" mapstructure:"from"`
	To                   []string `yaml:"to" mapstructure:"to"`
	Subject              string   `yaml:"subject" mapstructure:"subject"`
	FailureRateThreshold float64  `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	LogFile              string   `yaml:"log_file" mapstructure:"log_file"`
}

// StoreConfig configures the run ledger database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the status API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	File   string `yaml:"file" mapstructure:"file"`
}

// Staging modes.
const (
	StagingCumulative = "cumulative"
	StagingPage       = "page"
)

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DUXSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Secrets have no default; bind them so env-only values still unmarshal.
	for _, key := range []string{
		"ghl.key", "ghl.location_id", "dux.key", "dux.company_id",
		"alert.webhook_url", "alert.smtp_host", "alert.smtp_user", "alert.smtp_password",
		"alert.from", "alert.to", "extract.source_path", "mirror.path", "log.file", "alert.log_file",
	} {
		_ = v.BindEnv(key)
	}

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("ghl.base_url", "https://services.leadconnectorhq.com")
	v.SetDefault("ghl.rate_limit", 0)
	v.SetDefault("ghl.timeout_secs", 30)
	v.SetDefault("dux.base_url", "https://erp.duxsoftware.com.ar/WSERP/rest/services")
	v.SetDefault("dux.timeout_secs", 30)
	v.SetDefault("extract.source_format", "csv")
	v.SetDefault("extract.charset", "utf-8")
	v.SetDefault("extract.has_header", true)
	v.SetDefault("extract.page_size", 50)
	v.SetDefault("extract.page_delay_secs", 10)
	v.SetDefault("extract.grid_width", 29)
	v.SetDefault("extract.leading_offset", 2)
	v.SetDefault("extract.staging_path", "data/clients.csv")
	v.SetDefault("extract.staging_mode", StagingCumulative)
	v.SetDefault("extract.window_offset_days", 0)
	v.SetDefault("reconcile.subunit_delay_secs", 5)
	v.SetDefault("reconcile.rental_marker", "COMODATO")
	v.SetDefault("reconcile.window_offset_days", 1)
	v.SetDefault("alert.smtp_port", 465)
	v.SetDefault("alert.subject", "dux-ghl-sync alert")
	v.SetDefault("alert.failure_rate_threshold", 0.5)
	v.SetDefault("store.path", "data/ledger.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("timezone", "America/Argentina/Buenos_Aires")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if cfg.Alert.LogFile == "" {
		cfg.Alert.LogFile = cfg.Log.File
	}

	return &cfg, nil
}

// Validate checks that the settings required by mode are present.
// Modes: contacts, invoices, sync, serve, runs.
func (c *Config) Validate(mode string) error {
	var missing []string
	needGHL := func() {
		if c.GHL.Key == "" {
			missing = append(missing, "ghl.key")
		}
		if c.GHL.LocationID == "" {
			missing = append(missing, "ghl.location_id")
		}
	}
	needDux := func() {
		if c.Dux.Key == "" {
			missing = append(missing, "dux.key")
		}
		if c.Dux.CompanyID == "" {
			missing = append(missing, "dux.company_id")
		}
	}
	needExtract := func() {
		if c.Extract.SourcePath == "" {
			missing = append(missing, "extract.source_path")
		}
	}

	switch mode {
	case "contacts":
		needGHL()
		needExtract()
	case "invoices":
		needGHL()
		needDux()
	case "sync":
		needGHL()
		needDux()
		needExtract()
	case "serve", "runs":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			return eris.Errorf("config: server.port %d out of range", c.Server.Port)
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(missing) > 0 {
		return eris.Errorf("config: missing required settings for %s: %s", mode, strings.Join(missing, ", "))
	}

	if mode == "contacts" || mode == "sync" {
		if c.Extract.GridWidth <= c.Extract.LeadingOffset || c.Extract.LeadingOffset < 0 {
			return eris.Errorf("config: extract.leading_offset %d must be within grid_width %d",
				c.Extract.LeadingOffset, c.Extract.GridWidth)
		}
		if c.Extract.PageSize <= 0 {
			return eris.Errorf("config: extract.page_size must be positive, got %d", c.Extract.PageSize)
		}
		switch c.Extract.StagingMode {
		case StagingCumulative, StagingPage:
		default:
			return eris.Errorf("config: extract.staging_mode must be %q or %q, got %q",
				StagingCumulative, StagingPage, c.Extract.StagingMode)
		}
	}
	if c.Alert.FailureRateThreshold < 0 || c.Alert.FailureRateThreshold > 1 {
		return eris.Errorf("config: alert.failure_rate_threshold must be in [0, 1], got %v", c.Alert.FailureRateThreshold)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, eris.Wrapf(err, "config: load timezone %q", c.Timezone)
	}
	return loc, nil
}

// Window returns the calendar day offsetDays before now in loc, truncated to
// midnight.
func Window(now time.Time, loc *time.Location, offsetDays int) time.Time {
	local := now.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return day.AddDate(0, 0, -offsetDays)
}

// NewLogger builds a zap logger from cfg. When cfg.File is set, output is
// written there in addition to stderr.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)
	if cfg.File != "" {
		zapCfg.OutputPaths = append(zapCfg.OutputPaths, cfg.File)
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, eris.Wrap(err, "config: build logger")
	}

	return logger, nil
}
