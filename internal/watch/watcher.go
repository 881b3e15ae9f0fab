// Package watch implements the live change-detection loop over a uwuzu
// timeline: poll the latest window on a fixed interval, drop everything
// already seen, and hand genuinely new posts to a handler oldest-first.
package watch

import (
	"context"
	"log/slog"
	"time"

	"github.com/bakkerme/uwuzu-watch/internal/dedupe"
	"github.com/bakkerme/uwuzu-watch/internal/uwuzu"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Source is the slice of the uwuzu client the watcher needs. The latest
// window (page 0) must be ordered newest-first; the dispatch order
// guarantee is built on that.
type Source interface {
	Timeline(ctx context.Context, limit, page int) ([]uwuzu.Post, error)
}

// Handler receives each new post exactly once, oldest-first within a
// cycle. Handler errors and panics are contained; they never stop the
// rest of the batch or the loop.
type Handler func(ctx context.Context, post uwuzu.Post) error

// Predicate decides whether a novel post is worth dispatching. Posts it
// rejects are still marked seen.
type Predicate func(post uwuzu.Post) (bool, error)

// Config tunes the poll loop. Zero values fall back to the defaults.
type Config struct {
	Interval time.Duration
	Window   int
	Filter   Predicate
}

const (
	defaultInterval = 60 * time.Second
	defaultWindow   = 10
)

// Watcher owns one watch loop: its seen-set, its baseline flag and its
// cadence. Run one Watcher per timeline; instances share nothing.
type Watcher struct {
	logger    *slog.Logger
	source    Source
	seen      dedupe.SeenStore
	handler   Handler
	filter    Predicate
	interval  time.Duration
	window    int
	tracer    trace.Tracer
	baselined bool
}

func New(logger *slog.Logger, source Source, seen dedupe.SeenStore, handler Handler, cfg Config) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	window := cfg.Window
	if window <= 0 {
		window = defaultWindow
	}
	return &Watcher{
		logger:   logger,
		source:   source,
		seen:     seen,
		handler:  handler,
		filter:   cfg.Filter,
		interval: interval,
		window:   window,
		tracer:   otel.Tracer("github.com/bakkerme/uwuzu-watch/internal/watch"),
	}
}

// Run polls until ctx is cancelled and returns ctx.Err(). No cycle
// failure ever terminates the loop: a failed fetch or seen-set lookup
// abandons that cycle (nothing admitted, nothing dispatched), logs, and
// waits out the normal interval. Cycles are strictly sequential; the
// next fetch starts only after every handler call of the previous cycle
// has returned.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watch starting",
		slog.Duration("interval", w.interval),
		slog.Int("window", w.window),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := w.cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("poll cycle failed", slog.Any("error", err))
		}

		timer := time.NewTimer(w.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// cycle runs one fetch-dedup-dispatch iteration. The very first
// successful fetch only seeds the seen-set: pre-existing posts are never
// reported as new.
func (w *Watcher) cycle(ctx context.Context) error {
	ctx, span := w.tracer.Start(ctx, "watch.cycle")
	defer span.End()

	posts, err := w.source.Timeline(ctx, w.window, 0)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if !w.baselined {
		ids := make([]string, 0, len(posts))
		for _, post := range posts {
			ids = append(ids, post.ID)
		}
		if err := w.seen.MarkSeenBatch(ctx, ids); err != nil {
			span.RecordError(err)
			return err
		}
		w.baselined = true
		w.logger.Info("baseline established", slog.Int("posts", len(posts)))
		return nil
	}

	candidates := make([]uwuzu.Post, 0, len(posts))
	for _, post := range posts {
		seen, err := w.seen.HasSeen(ctx, post.ID)
		if err != nil {
			span.RecordError(err)
			return err
		}
		if !seen {
			candidates = append(candidates, post)
		}
	}
	span.SetAttributes(
		attribute.Int("watch.window_posts", len(posts)),
		attribute.Int("watch.new_posts", len(candidates)),
	)
	if len(candidates) == 0 {
		return nil
	}

	w.logger.Info("new posts", slog.Int("count", len(candidates)))
	w.dispatch(ctx, candidates)
	return nil
}
