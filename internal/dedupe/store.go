package dedupe

import "context"

// SeenStore tracks previously emitted post identifiers.
//
// Identifiers are assumed non-empty and unique for the lifetime of the
// feed; empty ids are ignored rather than validated.
type SeenStore interface {
	HasSeen(ctx context.Context, id string) (bool, error)
	MarkSeen(ctx context.Context, id string) error
	MarkSeenBatch(ctx context.Context, ids []string) error
	Close() error
}
