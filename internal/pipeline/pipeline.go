// Package pipeline drives the fetch-parse-reconcile-diff-write sync loop.
//
// One Pipeline owns the whole schedule: it runs a cycle immediately on
// start, sleeps for the configured interval after the cycle ends, and
// repeats until cancelled. A failed cycle is logged, counted, and absorbed;
// the loop itself never stops on data or upstream errors.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/disaster-alert-sync/internal/domain"
	"github.com/couchcryptid/disaster-alert-sync/internal/observability"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// Fetcher retrieves the raw feed documents.
type Fetcher interface {
	FetchGeoJSON(ctx context.Context) ([]byte, error)
	FetchXML(ctx context.Context) ([]byte, error)
}

// Parser turns raw feed documents into canonical events plus per-record
// warnings for entries that had to be skipped.
type Parser interface {
	ParseGeoJSON(raw []byte, fetchedAt time.Time) ([]domain.DisasterEvent, []domain.ParseWarning, error)
	ParseXML(raw []byte, fetchedAt time.Time) ([]domain.DisasterEvent, []domain.ParseWarning, error)
}

// Store is the persistence target for reconciled events.
type Store interface {
	LoadFingerprints(ctx context.Context) (map[string]string, error)
	Apply(ctx context.Context, toInsert, toUpdate []domain.DisasterEvent) (domain.SyncResult, error)
}

// State names a phase of the sync scheduler.
type State string

const (
	StateIdle        State = "idle"
	StateFetching    State = "fetching"
	StateParsing     State = "parsing"
	StateReconciling State = "reconciling"
	StateDiffing     State = "diffing"
	StateWriting     State = "writing"
	StateSleeping    State = "sleeping"
)

// stateValues keeps the scheduler_state gauge in step with the State
// constants.
var stateValues = map[State]float64{
	StateIdle:        0,
	StateFetching:    1,
	StateParsing:     2,
	StateReconciling: 3,
	StateDiffing:     4,
	StateWriting:     5,
	StateSleeping:    6,
}

// Options tunes the scheduler. Zero values fall back to production defaults.
type Options struct {
	// Interval separates the end of one cycle from the start of the next.
	Interval time.Duration
	// FailureStreakThreshold is the consecutive-failure count at which the
	// loop escalates its logging. It never stops the loop.
	FailureStreakThreshold int
	// Clock drives sleeps and timestamps; tests inject a fake.
	Clock clockwork.Clock
}

const (
	defaultInterval               = 24 * time.Hour
	defaultFailureStreakThreshold = 3
)

// Pipeline orchestrates the sync loop.
type Pipeline struct {
	fetcher Fetcher
	parser  Parser
	store   Store
	logger  *slog.Logger
	metrics *observability.Metrics

	interval         time.Duration
	failureThreshold int
	clock            clockwork.Clock

	state         atomic.Value // State
	ready         atomic.Bool
	failureStreak atomic.Int64
	lastSuccess   atomic.Int64 // unix nanos; 0 until the first success
	cycleSeq      atomic.Int64
}

// New creates a Pipeline with the given stages and observability.
func New(f Fetcher, pr Parser, st Store, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.FailureStreakThreshold <= 0 {
		opts.FailureStreakThreshold = defaultFailureStreakThreshold
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	p := &Pipeline{
		fetcher:          f,
		parser:           pr,
		store:            st,
		logger:           logger,
		metrics:          metrics,
		interval:         opts.Interval,
		failureThreshold: opts.FailureStreakThreshold,
		clock:            opts.Clock,
	}
	p.setState(StateIdle)
	return p
}

// CheckReadiness returns nil once at least one cycle has completed
// successfully, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no successful sync cycle yet")
	}
	return nil
}

// State reports the scheduler's current phase.
func (p *Pipeline) State() string {
	return string(p.state.Load().(State))
}

// FailureStreak reports the current consecutive-failure count.
func (p *Pipeline) FailureStreak() int {
	return int(p.failureStreak.Load())
}

// LastSuccess reports when the last cycle succeeded, or the zero time before
// the first success.
func (p *Pipeline) LastSuccess() time.Time {
	nanos := p.lastSuccess.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos).UTC()
}

// Run executes the sync loop until the context is cancelled. The first cycle
// starts immediately; each later cycle starts one interval after the
// previous cycle ended. Always returns nil: cancellation is the only way
// out, and it is a normal shutdown.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("sync loop started",
		"interval", p.interval,
		"failure_streak_threshold", p.failureThreshold,
	)

	for {
		select {
		case <-ctx.Done():
			p.stopping(ctx)
			return nil
		default:
		}

		p.runCycle(ctx)

		p.setState(StateSleeping)
		if !p.sleep(ctx, p.interval) {
			p.stopping(ctx)
			return nil
		}
	}
}

func (p *Pipeline) stopping(ctx context.Context) {
	p.logger.Info("sync loop stopping", "reason", ctx.Err())
	p.setState(StateIdle)
}

// runCycle executes one cycle and records its outcome. Errors never
// propagate: a failed cycle bumps the streak and the loop carries on.
func (p *Pipeline) runCycle(ctx context.Context) {
	start := p.clock.Now()
	logger := p.logger.With("cycle", p.cycleSeq.Add(1))
	logger.Info("sync cycle starting")

	result, err := p.syncOnce(ctx, logger)
	elapsed := p.clock.Since(start)
	p.metrics.CycleDuration.Observe(elapsed.Seconds())

	switch {
	case err != nil && ctx.Err() != nil:
		// Shutdown mid-cycle is not a data failure; the streak is untouched.
		p.metrics.CyclesTotal.WithLabelValues("aborted").Inc()
		logger.Info("sync cycle aborted", "reason", ctx.Err(), "duration", elapsed)
	case err != nil:
		p.metrics.CyclesTotal.WithLabelValues("failure").Inc()
		p.recordFailure(logger, err, elapsed)
	default:
		p.metrics.CyclesTotal.WithLabelValues("success").Inc()
		p.recordSuccess(logger, result, elapsed)
	}
}

// syncOnce walks one cycle through the fetch, parse, reconcile, diff, and
// write phases. Any error fails the whole cycle; per-record problems surface
// as warnings or SyncResult.Failed entries instead.
func (p *Pipeline) syncOnce(ctx context.Context, logger *slog.Logger) (domain.SyncResult, error) {
	fetchedAt := p.clock.Now().UTC()

	p.setState(StateFetching)
	var geojsonRaw, xmlRaw []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		raw, err := p.fetcher.FetchGeoJSON(gctx)
		geojsonRaw = raw
		return err
	})
	g.Go(func() error {
		raw, err := p.fetcher.FetchXML(gctx)
		xmlRaw = raw
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.SyncResult{}, err
	}

	p.setState(StateParsing)
	geoEvents, geoWarnings, err := p.parser.ParseGeoJSON(geojsonRaw, fetchedAt)
	if err != nil {
		return domain.SyncResult{}, err
	}
	p.noteParse(logger, domain.SourceGeoJSON, geoEvents, geoWarnings)

	xmlEvents, xmlWarnings, err := p.parser.ParseXML(xmlRaw, fetchedAt)
	if err != nil {
		return domain.SyncResult{}, err
	}
	p.noteParse(logger, domain.SourceXML, xmlEvents, xmlWarnings)

	p.setState(StateReconciling)
	merged := domain.Reconcile(geoEvents, xmlEvents)

	p.setState(StateDiffing)
	persisted, err := p.store.LoadFingerprints(ctx)
	if err != nil {
		return domain.SyncResult{}, err
	}
	diff := domain.ComputeDiff(merged, persisted)
	p.metrics.EventsUnchanged.Add(float64(diff.Unchanged))

	if diff.Empty() {
		logger.Info("no changes detected", "events", len(merged), "unchanged", diff.Unchanged)
		return domain.SyncResult{}, nil
	}

	p.setState(StateWriting)
	result, err := p.store.Apply(ctx, diff.ToInsert, diff.ToUpdate)
	if err != nil {
		return domain.SyncResult{}, err
	}
	p.metrics.EventsInserted.Add(float64(result.Inserted))
	p.metrics.EventsUpdated.Add(float64(result.Updated))
	return result, nil
}

func (p *Pipeline) noteParse(logger *slog.Logger, source string, events []domain.DisasterEvent, warnings []domain.ParseWarning) {
	p.metrics.EventsParsed.WithLabelValues(source).Add(float64(len(events)))
	p.metrics.ParseWarnings.WithLabelValues(source).Add(float64(len(warnings)))
	for _, w := range warnings {
		logger.Warn("feed record skipped",
			"source", w.Source,
			"index", w.Index,
			"source_id", w.SourceID,
			"reason", w.Reason,
		)
	}
}

func (p *Pipeline) recordSuccess(logger *slog.Logger, result domain.SyncResult, elapsed time.Duration) {
	p.failureStreak.Store(0)
	p.metrics.FailureStreak.Set(0)

	now := p.clock.Now()
	p.lastSuccess.Store(now.UnixNano())
	p.metrics.LastSuccess.Set(float64(now.Unix()))
	p.ready.Store(true)

	logger.Info("sync cycle complete",
		"inserted", result.Inserted,
		"updated", result.Updated,
		"failed_records", len(result.Failed),
		"duration", elapsed,
	)
}

func (p *Pipeline) recordFailure(logger *slog.Logger, err error, elapsed time.Duration) {
	streak := int(p.failureStreak.Add(1))
	p.metrics.FailureStreak.Set(float64(streak))

	logger.Error("sync cycle failed",
		"error", err,
		"kind", failureKind(err),
		"failure_streak", streak,
		"duration", elapsed,
	)

	if streak >= p.failureThreshold {
		logger.Error("sync failure streak at threshold",
			"failure_streak", streak,
			"threshold", p.failureThreshold,
		)
	}
}

func (p *Pipeline) setState(s State) {
	p.state.Store(s)
	p.metrics.SchedulerState.Set(stateValues[s])
}

// sleep waits for d on the scheduler clock. Returns false when the context
// is cancelled first.
func (p *Pipeline) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := p.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

// failureKind names the taxonomy bucket of a cycle error for logs.
func failureKind(err error) string {
	var (
		fetchErr      *domain.FetchError
		parseErr      *domain.ParseError
		validationErr *domain.ValidationError
		storageErr    *domain.StorageError
	)
	switch {
	case errors.As(err, &fetchErr):
		return "fetch"
	case errors.As(err, &parseErr):
		return "parse"
	case errors.As(err, &validationErr):
		return "validation"
	case errors.As(err, &storageErr):
		return "storage"
	default:
		return "internal"
	}
}
