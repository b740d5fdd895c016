// Package extract walks a paginated customer grid into a staged batch and
// hands each page's cumulative batch to the upsert engine.
package extract

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dux-ghl-sync/internal/config"
	"github.com/sells-group/dux-ghl-sync/internal/model"
	"github.com/sells-group/dux-ghl-sync/internal/monitoring"
	"github.com/sells-group/dux-ghl-sync/internal/resilience"
	"github.com/sells-group/dux-ghl-sync/internal/staging"
	"github.com/sells-group/dux-ghl-sync/internal/upsert"
)

// ErrNoRowsFound is returned when a page yields no acceptable rows. No
// further pages are read.
var ErrNoRowsFound = errors.New("extract: no rows found")

// Terminal reasons.
const (
	ReasonLastPage = "last_page"
	ReasonNoRows   = "no_rows"
)

// PageSource is a paginated grid of rows.
type PageSource interface {
	// Rows returns the cells of every row on the current page.
	Rows(ctx context.Context) ([][]string, error)
	// HasNext reports whether a further page is available.
	HasNext(ctx context.Context) (bool, error)
	// Next advances to the following page.
	Next(ctx context.Context) error
}

// Drainer consumes a staging artifact.
type Drainer interface {
	Drain(ctx context.Context, path string) (upsert.Report, error)
}

// Mirror receives the cumulative batch after every page.
type Mirror interface {
	Write(rows []model.RawRow) error
}

// Options configures an Extractor.
type Options struct {
	GridWidth     int
	LeadingOffset int
	StagingPath   string
	StagingMode   string
	PageDelay     time.Duration
}

// OptionsFromConfig maps extract settings onto Options.
func OptionsFromConfig(cfg config.ExtractConfig) Options {
	return Options{
		GridWidth:     cfg.GridWidth,
		LeadingOffset: cfg.LeadingOffset,
		StagingPath:   cfg.StagingPath,
		StagingMode:   cfg.StagingMode,
		PageDelay:     time.Duration(cfg.PageDelaySecs) * time.Second,
	}
}

// Result summarizes one extraction run.
type Result struct {
	Pages    int             `json:"pages"`
	Accepted int             `json:"accepted"`
	Rejected int             `json:"rejected"`
	Reports  []upsert.Report `json:"reports"`
	Reason   string          `json:"reason"`
}

// Counters sums the per-page upsert reports.
func (r *Result) Counters() model.Counters {
	var c model.Counters
	for _, rep := range r.Reports {
		c.Add(rep.Counters())
	}
	return c
}

// Extractor runs the pagination loop.
type Extractor struct {
	src      PageSource
	drainer  Drainer
	mirror   Mirror
	opts     Options
	log      *zap.Logger
	notifier monitoring.Notifier
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option configures optional Extractor collaborators.
type Option func(*Extractor)

// WithNotifier raises an alert when a page cannot be read, staged or
// advanced. Drain failures are alerted by the upsert engine itself.
func WithNotifier(n monitoring.Notifier) Option {
	return func(x *Extractor) { x.notifier = n }
}

// New creates an Extractor. mirror may be nil.
func New(src PageSource, drainer Drainer, mirror Mirror, opts Options, log *zap.Logger, extra ...Option) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.StagingMode == "" {
		opts.StagingMode = config.StagingCumulative
	}
	x := &Extractor{
		src:      src,
		drainer:  drainer,
		mirror:   mirror,
		opts:     opts,
		log:      log.Named("extract"),
		notifier: monitoring.NopNotifier{},
		sleep:    sleep,
	}
	for _, o := range extra {
		o(x)
	}
	return x
}

// Run reads pages until the source reports no next page. A page with no
// acceptable rows ends the run with ErrNoRowsFound; the returned Result is
// populated either way.
func (x *Extractor) Run(ctx context.Context) (*Result, error) {
	res := &Result{}
	var batch []model.RawRow

	for {
		res.Pages++
		page := res.Pages

		cells, err := x.src.Rows(ctx)
		if err != nil {
			return res, x.fatal(ctx, eris.Wrapf(err, "extract: read page %d", page))
		}

		accepted := x.accept(cells)
		res.Accepted += len(accepted)
		res.Rejected += len(cells) - len(accepted)
		x.log.Info("page read",
			zap.Int("page", page),
			zap.Int("accepted", len(accepted)),
			zap.Int("rejected", len(cells)-len(accepted)),
		)

		if len(accepted) == 0 {
			res.Reason = ReasonNoRows
			return res, ErrNoRowsFound
		}
		batch = append(batch, accepted...)

		staged := batch
		if x.opts.StagingMode == config.StagingPage {
			staged = accepted
		}
		if err := staging.Write(x.opts.StagingPath, staged); err != nil {
			return res, x.fatal(ctx, eris.Wrapf(err, "extract: stage page %d", page))
		}

		if x.mirror != nil {
			if err := x.mirror.Write(batch); err != nil {
				x.log.Error("mirror update failed", zap.Int("page", page), zap.Error(err))
			}
		}

		rep, err := x.drainer.Drain(ctx, x.opts.StagingPath)
		if err != nil {
			return res, eris.Wrapf(err, "extract: upsert page %d", page)
		}
		res.Reports = append(res.Reports, rep)

		more, err := x.src.HasNext(ctx)
		if err != nil {
			return res, x.fatal(ctx, eris.Wrapf(err, "extract: check next after page %d", page))
		}
		if !more {
			x.log.Info("reached last page", zap.Int("pages", page), zap.Int("rows", len(batch)))
			res.Reason = ReasonLastPage
			return res, nil
		}

		if err := x.src.Next(ctx); err != nil {
			return res, x.fatal(ctx, eris.Wrapf(err, "extract: advance past page %d", page))
		}
		if err := x.sleep(ctx, x.opts.PageDelay); err != nil {
			return res, eris.Wrap(err, "extract: settle delay")
		}
	}
}

// fatal alerts on err unless it stems from cancellation.
func (x *Extractor) fatal(ctx context.Context, err error) error {
	if resilience.Classify(err) != resilience.ClassCancel {
		x.notifier.Notify(ctx, string(resilience.PhaseExtract), err)
	}
	return err
}

// accept keeps rows of exactly the grid width and strips the leading offset.
func (x *Extractor) accept(cells [][]string) []model.RawRow {
	var out []model.RawRow
	for _, c := range cells {
		if len(c) != x.opts.GridWidth {
			continue
		}
		row := make(model.RawRow, len(c)-x.opts.LeadingOffset)
		copy(row, c[x.opts.LeadingOffset:])
		out = append(out, row)
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
