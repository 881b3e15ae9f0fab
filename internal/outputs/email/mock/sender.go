package mock

import (
	"context"
	"sync"

	"github.com/bakkerme/uwuzu-watch/internal/outputs/email"
)

// Sender records every message instead of delivering it.
type Sender struct {
	mu       sync.Mutex
	Err      error
	Messages []email.Message
}

func (s *Sender) Send(ctx context.Context, message email.Message) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Messages = append(s.Messages, message)
	return nil
}

// Sent returns a copy of the delivered messages.
func (s *Sender) Sent() []email.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]email.Message, len(s.Messages))
	copy(out, s.Messages)
	return out
}
