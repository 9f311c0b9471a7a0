package audit

import (
	"context"
	"log/slog"
	"sync"
)

// SlogStorage writes audit events as structured log records. It is the
// default backend: the trail ends up wherever the application logs go.
type SlogStorage struct {
	logger *slog.Logger
}

// NewSlogStorage creates a storage that emits events through logger.
func NewSlogStorage(logger *slog.Logger) *SlogStorage {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogStorage{logger: logger}
}

func (s *SlogStorage) Store(ctx context.Context, event Event) error {
	attrs := []any{
		slog.String("audit_id", event.ID),
		slog.String("action", event.Action),
		slog.String("result", string(event.Result)),
	}
	if event.ActorID != "" {
		attrs = append(attrs, slog.String("actor_id", event.ActorID))
	}
	if event.ActorEmail != "" {
		attrs = append(attrs, slog.String("actor_email", event.ActorEmail))
	}
	if event.TenantID != "" {
		attrs = append(attrs, slog.String("tenant_id", event.TenantID))
	}
	if event.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", event.SessionID))
	}
	if event.IP != "" {
		attrs = append(attrs, slog.String("ip", event.IP))
	}
	if event.Error != "" {
		attrs = append(attrs, slog.String("error", event.Error))
	}
	for k, v := range event.Metadata {
		attrs = append(attrs, slog.Any(k, v))
	}

	if event.Result == ResultSuccess {
		s.logger.InfoContext(ctx, "audit", attrs...)
	} else {
		s.logger.WarnContext(ctx, "audit", attrs...)
	}
	return nil
}

// MemoryStorage keeps events in memory. Intended for tests.
type MemoryStorage struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryStorage creates an in-memory audit storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Store(ctx context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of the stored events.
func (s *MemoryStorage) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// ByAction returns the stored events matching an action.
func (s *MemoryStorage) ByAction(action string) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}
