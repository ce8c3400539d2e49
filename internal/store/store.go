// Package store holds the petition collection in memory and mirrors every
// change to a backing file. It is safe for concurrent use.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ASHISH26940/petitiondesk/internal/persistence"
	"github.com/ASHISH26940/petitiondesk/internal/petition"
)

// maxIDAttempts bounds regeneration when a fresh id collides with a live or
// retired one.
const maxIDAttempts = 8

// Persister loads and saves the whole collection.
type Persister interface {
	Path() string
	Load() ([]petition.Record, error)
	Save(records []petition.Record) error
}

// Store is the in-memory petition collection backed by a Persister.
// A single lock covers each modify-and-flush sequence, so memory and disk
// agree after every call returns.
type Store struct {
	mu    sync.RWMutex
	order []string
	data  map[string]petition.Record
	// retired holds ids deleted since Open; they are never handed out again.
	retired map[string]struct{}
	// gen counts committed mutations.
	gen uint64

	// obsMu orders record-count reports so a slow caller cannot overwrite a
	// newer count with an older one.
	obsMu       sync.Mutex
	observedGen uint64

	persister Persister
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
	observer  Observer
}

// Open loads the collection from p. A missing file is created empty; a
// corrupt file is logged and left untouched until the next mutation.
func Open(p Persister, opts ...Option) (*Store, error) {
	s := &Store{
		persister: p,
		data:      make(map[string]petition.Record),
		retired:   make(map[string]struct{}),
	}
	defaultOptions(s)
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("path", p.Path()))

	if err := s.load(); err != nil {
		return nil, err
	}
	s.observer.ObserveRecords(len(s.order))
	return s, nil
}

func (s *Store) load() error {
	records, err := s.persister.Load()
	if err != nil {
		var decodeErr *persistence.DecodeError
		switch {
		case errors.Is(err, fs.ErrNotExist):
			s.logger.Info("petition file not found, creating an empty one")
			if err := s.persister.Save(nil); err != nil {
				return &PersistenceError{Op: "create", Path: s.persister.Path(), Err: err}
			}
			return nil
		case errors.As(err, &decodeErr):
			corrupt := &CorruptStateError{Path: s.persister.Path(), Err: decodeErr.Err}
			s.logger.Warn("starting with an empty collection", zap.Error(corrupt))
			return nil
		default:
			return &PersistenceError{Op: "load", Path: s.persister.Path(), Err: err}
		}
	}

	for _, rec := range records {
		if rec.ID == "" {
			s.logger.Warn("skipping petition without id", zap.String("name", rec.Name))
			continue
		}
		if _, dup := s.data[rec.ID]; dup {
			s.logger.Warn("skipping duplicate petition id", zap.String("id", rec.ID))
			continue
		}
		s.order = append(s.order, rec.ID)
		s.data[rec.ID] = rec
	}
	s.logger.Info("loaded petitions", zap.Int("count", len(s.order)))
	return nil
}

// Create validates f, assigns a fresh id and timestamps, and persists the record.
func (s *Store) Create(f petition.Fields) (petition.Record, error) {
	start := time.Now()
	rec, c, err := s.create(f)
	s.observe("create", start, c, err)
	return rec, err
}

func (s *Store) create(f petition.Fields) (petition.Record, count, error) {
	if err := f.Validate(); err != nil {
		return petition.Record{}, count{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.generateID()
	if err != nil {
		return petition.Record{}, count{}, err
	}

	ts := s.timestamp()
	rec := petition.Record{
		ID:          id,
		Name:        f.Name,
		Description: f.Description,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	for k, v := range f.Extra {
		if petition.IsReserved(k) || v == nil {
			continue
		}
		if rec.Extra == nil {
			rec.Extra = make(map[string]any, len(f.Extra))
		}
		rec.Extra[k] = petition.CloneValue(v)
	}

	s.data[id] = rec
	s.order = append(s.order, id)

	if err := s.flush("create"); err != nil {
		delete(s.data, id)
		s.order = s.order[:len(s.order)-1]
		return petition.Record{}, count{}, err
	}

	s.logger.Info("petition created", zap.String("id", id))
	return rec.Clone(), s.commitLocked(), nil
}

// Get returns the record with the given id from memory.
func (s *Store) Get(id string) (petition.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data[id]
	if !ok {
		return petition.Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec.Clone(), nil
}

// List returns a snapshot of all records in insertion order.
func (s *Store) List() []petition.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Update merges p into the record with the given id and refreshes updated_at.
func (s *Store) Update(id string, p petition.Patch) (petition.Record, error) {
	start := time.Now()
	rec, c, err := s.update(id, p)
	s.observe("update", start, c, err)
	return rec, err
}

func (s *Store) update(id string, p petition.Patch) (petition.Record, count, error) {
	if err := p.Validate(); err != nil {
		return petition.Record{}, count{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.data[id]
	if !ok {
		s.logger.Debug("update of unknown petition", zap.String("id", id))
		return petition.Record{}, count{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	next := prev.Clone()
	p.Apply(&next)
	next.UpdatedAt = s.nextUpdatedAt(prev)
	s.data[id] = next

	if err := s.flush("update"); err != nil {
		s.data[id] = prev
		return petition.Record{}, count{}, err
	}

	s.logger.Info("petition updated", zap.String("id", id))
	return next.Clone(), s.commitLocked(), nil
}

// Delete removes the record with the given id.
func (s *Store) Delete(id string) error {
	start := time.Now()
	c, err := s.delete(id)
	s.observe("delete", start, c, err)
	return err
}

func (s *Store) delete(id string) (count, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.data[id]
	if !ok {
		s.logger.Debug("delete of unknown petition", zap.String("id", id))
		return count{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	idx := slices.Index(s.order, id)
	s.order = slices.Delete(s.order, idx, idx+1)
	delete(s.data, id)

	if err := s.flush("delete"); err != nil {
		s.order = slices.Insert(s.order, idx, id)
		s.data[id] = rec
		return count{}, err
	}
	s.retired[id] = struct{}{}

	s.logger.Info("petition deleted", zap.String("id", id))
	return s.commitLocked(), nil
}

// flush writes the full collection. Callers hold the write lock.
func (s *Store) flush(op string) error {
	if err := s.persister.Save(s.snapshotLocked()); err != nil {
		perr := &PersistenceError{Op: op, Path: s.persister.Path(), Err: err}
		s.logger.Error("persist failed, rolled back", zap.String("op", op), zap.Error(err))
		return perr
	}
	return nil
}

func (s *Store) snapshotLocked() []petition.Record {
	out := make([]petition.Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.data[id].Clone())
	}
	return out
}

func (s *Store) generateID() (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := s.newID()
		if id == "" {
			continue
		}
		_, live := s.data[id]
		_, retired := s.retired[id]
		if !live && !retired {
			return id, nil
		}
	}
	return "", fmt.Errorf("generate id: %d attempts collided", maxIDAttempts)
}

func (s *Store) timestamp() time.Time {
	return s.now().Round(0).UTC()
}

// nextUpdatedAt returns the current time, nudged forward when the clock has
// not moved past the record's last change.
func (s *Store) nextUpdatedAt(prev petition.Record) time.Time {
	floor := prev.UpdatedAt
	if prev.CreatedAt.After(floor) {
		floor = prev.CreatedAt
	}
	ts := s.timestamp()
	if !ts.After(floor) {
		ts = floor.Add(time.Nanosecond)
	}
	return ts
}

// count is the record total as of a committed mutation. The zero value
// means nothing was committed.
type count struct {
	gen uint64
	n   int
}

// commitLocked bumps the mutation generation. Callers hold the write lock.
func (s *Store) commitLocked() count {
	s.gen++
	return count{gen: s.gen, n: len(s.order)}
}

func (s *Store) observe(op string, start time.Time, c count, err error) {
	s.observer.ObserveOperation(op, time.Since(start), err)
	if c.gen == 0 {
		return
	}
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	if c.gen <= s.observedGen {
		return
	}
	s.observedGen = c.gen
	s.observer.ObserveRecords(c.n)
}
