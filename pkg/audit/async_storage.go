package audit

import (
	"context"
	"sync"
)

// asyncStorage wraps a Storage with a buffered background worker so that
// audit writes never block guard operations. Events are dropped when the
// buffer is full; the trail favors liveness over completeness under
// overload.
type asyncStorage struct {
	inner  Storage
	events chan Event
	done   chan struct{}
	once   sync.Once
}

func newAsyncStorage(inner Storage, bufferSize int) *asyncStorage {
	s := &asyncStorage{
		inner:  inner,
		events: make(chan Event, bufferSize),
		done:   make(chan struct{}),
	}
	go s.worker()
	return s
}

func (s *asyncStorage) Store(ctx context.Context, event Event) error {
	select {
	case <-s.done:
		return ErrStorageClosed
	default:
	}

	select {
	case s.events <- event:
		return nil
	default:
		// Buffer full, drop the event rather than block the request.
		return nil
	}
}

func (s *asyncStorage) worker() {
	for {
		select {
		case event := <-s.events:
			_ = s.inner.Store(context.Background(), event)
		case <-s.done:
			for {
				select {
				case event := <-s.events:
					_ = s.inner.Store(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

// Close drains pending events and stops the worker.
func (s *asyncStorage) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}
