// Package monitoring delivers failure alerts. Delivery is fire-and-forget:
// a sink that cannot be reached is logged locally and never escalated.
package monitoring

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/dux-ghl-sync/internal/config"
	"github.com/sells-group/dux-ghl-sync/internal/model"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertSyncFailure    AlertType = "sync_failure"
	AlertRecordFailRate AlertType = "record_failure_rate"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Sink is one alert transport.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, alert Alert) error
}

// Notifier raises an alert for a batch-fatal error.
type Notifier interface {
	Notify(ctx context.Context, phase string, err error)
}

// NopNotifier drops every alert.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(context.Context, string, error) {}

// Alerter evaluates finished runs against thresholds and fans alerts out to
// the configured sinks.
type Alerter struct {
	cfg   config.AlertConfig
	sinks []Sink
	log   *zap.Logger
	host  string
}

// NewAlerter creates an Alerter with a webhook sink and/or an SMTP sink,
// depending on which are configured. With neither, alerts are only logged.
func NewAlerter(cfg config.AlertConfig, log *zap.Logger, extra ...Sink) *Alerter {
	if log == nil {
		log = zap.NewNop()
	}
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}

	a := &Alerter{cfg: cfg, log: log.Named("monitoring"), host: host}
	if cfg.WebhookURL != "" {
		a.sinks = append(a.sinks, NewWebhookSink(cfg.WebhookURL))
	}
	if cfg.SMTPHost != "" {
		a.sinks = append(a.sinks, NewSMTPSink(cfg))
	}
	a.sinks = append(a.sinks, extra...)
	return a
}

// Evaluate checks a finished run's counters and returns any alerts.
func (a *Alerter) Evaluate(run model.Run) []Alert {
	var alerts []Alert
	c := run.Counters
	if c.Total < 5 || a.cfg.FailureRateThreshold <= 0 {
		return nil
	}

	rate := float64(c.Failed) / float64(c.Total)
	if rate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertRecordFailRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"%s run %s: record failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d total)",
				run.Kind, run.ID, rate*100, a.cfg.FailureRateThreshold*100, c.Failed, c.Total,
			),
			Details: map[string]any{
				"run_id":       run.ID,
				"kind":         string(run.Kind),
				"failure_rate": rate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       c.Failed,
				"total":        c.Total,
			},
			Timestamp: time.Now().UTC(),
		})
	}
	return alerts
}

// Notify builds a sync-failure alert carrying environment context and sends it.
func (a *Alerter) Notify(ctx context.Context, phase string, err error) {
	if err == nil {
		return
	}
	alert := Alert{
		Type:     AlertSyncFailure,
		Severity: "high",
		Message:  fmt.Sprintf("%s failed: %v", phase, err),
		Details: map[string]any{
			"phase":      phase,
			"error":      fmt.Sprintf("%+v", err),
			"hostname":   a.host,
			"os":         runtime.GOOS + "/" + runtime.GOARCH,
			"go_version": runtime.Version(),
		},
		Timestamp: time.Now().UTC(),
	}
	if a.cfg.LogFile != "" {
		alert.Details["log_file"] = a.cfg.LogFile
	}
	a.SendAlerts(ctx, []Alert{alert})
}

// SendAlerts delivers alerts to every sink. Returns the number of alerts that
// reached at least one sink.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	sent := 0
	for _, alert := range alerts {
		a.log.Warn("alert raised",
			zap.String("type", string(alert.Type)),
			zap.String("message", alert.Message),
		)

		delivered := false
		for _, s := range a.sinks {
			if err := s.Deliver(ctx, alert); err != nil {
				a.log.Error("monitoring: failed to send alert",
					zap.String("sink", s.Name()),
					zap.String("type", string(alert.Type)),
					zap.Error(err),
				)
				continue
			}
			a.log.Info("monitoring: alert sent",
				zap.String("sink", s.Name()),
				zap.String("type", string(alert.Type)),
			)
			delivered = true
		}
		if delivered {
			sent++
		}
	}
	return sent
}
