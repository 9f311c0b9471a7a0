package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/callcocam/gatekeeper/pkg/clientip"
)

// Logger records security events to a Storage backend.
type Logger interface {
	// Log records a successful action.
	Log(ctx context.Context, action string, opts ...EventOption) error

	// LogFailure records a failed action.
	LogFailure(ctx context.Context, action string, err error, opts ...EventOption) error
}

// Storage persists audit events.
type Storage interface {
	Store(ctx context.Context, event Event) error
}

type logger struct {
	storage         Storage
	asyncBufferSize int
}

// Option configures the logger.
type Option func(*logger)

// WithAsyncBuffer makes the logger store events through a buffered
// background worker instead of synchronously.
func WithAsyncBuffer(size int) Option {
	return func(l *logger) {
		l.asyncBufferSize = size
	}
}

// NewLogger creates an audit logger over the given storage.
func NewLogger(storage Storage, opts ...Option) Logger {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}

	l := &logger{storage: storage}
	for _, opt := range opts {
		opt(l)
	}

	if l.asyncBufferSize > 0 {
		l.storage = newAsyncStorage(l.storage, l.asyncBufferSize)
	}

	return l
}

func (l *logger) Log(ctx context.Context, action string, opts ...EventOption) error {
	return l.store(ctx, action, ResultSuccess, "", opts)
}

func (l *logger) LogFailure(ctx context.Context, action string, err error, opts ...EventOption) error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return l.store(ctx, action, ResultFailure, msg, opts)
}

func (l *logger) store(ctx context.Context, action string, result Result, errMsg string, opts []EventOption) error {
	event := Event{
		ID:        uuid.New().String(),
		Action:    action,
		Result:    result,
		Error:     errMsg,
		IP:        clientip.GetIPFromContext(ctx),
		CreatedAt: time.Now(),
	}

	for _, opt := range opts {
		opt(&event)
	}

	if err := event.Validate(); err != nil {
		return err
	}

	return l.storage.Store(ctx, event)
}
