package watch

import (
	"context"
	"log/slog"

	"github.com/bakkerme/uwuzu-watch/internal/uwuzu"
)

// dispatch delivers one cycle's novel posts. Candidates arrive in the
// feed's native newest-first order and are walked backwards so the
// handler observes causal (oldest-first) order. Each id is admitted to
// the seen-set before its handler call, so a misbehaving handler cannot
// cause a redelivery on the next cycle.
func (w *Watcher) dispatch(ctx context.Context, candidates []uwuzu.Post) {
	for i := len(candidates) - 1; i >= 0; i-- {
		post := candidates[i]

		// An id that cannot be admitted is not dispatched either; it
		// stays novel and comes back as a candidate next cycle.
		if err := w.seen.MarkSeen(ctx, post.ID); err != nil {
			w.logger.Error("mark seen failed", slog.String("post", post.ID), slog.Any("error", err))
			continue
		}

		if w.filter != nil {
			keep, err := w.filter(post)
			if err != nil {
				w.logger.Error("filter failed", slog.String("post", post.ID), slog.Any("error", err))
				continue
			}
			if !keep {
				continue
			}
		}

		w.invoke(ctx, post)
	}
}

// invoke shields the batch from a single bad post: a handler error is
// logged and a panic is recovered, then iteration continues.
func (w *Watcher) invoke(ctx context.Context, post uwuzu.Post) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("handler panicked", slog.String("post", post.ID), slog.Any("panic", r))
		}
	}()
	if err := w.handler(ctx, post); err != nil {
		w.logger.Error("handler failed", slog.String("post", post.ID), slog.Any("error", err))
	}
}
