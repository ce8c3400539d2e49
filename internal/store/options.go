package store

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Observer is notified after each operation completes, outside the lock.
type Observer interface {
	ObserveOperation(op string, d time.Duration, err error)
	ObserveRecords(n int)
}

type nopObserver struct{}

func (nopObserver) ObserveOperation(string, time.Duration, error) {}
func (nopObserver) ObserveRecords(int)                            {}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces the random UUID generator. Meant for tests; ids
// that are live or were deleted since Open are rejected and regenerated.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithObserver registers an operation observer, typically metrics.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		if o != nil {
			s.observer = o
		}
	}
}

func defaultOptions(s *Store) {
	s.logger = zap.NewNop()
	s.now = time.Now
	s.newID = uuid.NewString
	s.observer = nopObserver{}
}
