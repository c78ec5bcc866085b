// Package cache provides the in-process issue cache shared by every caller.
package cache

import (
	"errors"
	"fmt"
	"sort"
	gosync "sync"
	"time"

	"github.com/Quanta-Naut/CivicBridge-App/internal/issue"
	"github.com/Quanta-Naut/CivicBridge-App/internal/logger"
)

var (
	// ErrStorageUnavailable is returned once the store has been poisoned by
	// a panic while its lock was held.
	ErrStorageUnavailable = errors.New("failed to lock storage")

	// ErrNotFound is returned for an id that is not cached.
	ErrNotFound = errors.New("issue not found")
)

// Store maps issue id to issue. A single mutex serialises every read and
// write; it is held only for the map operation itself.
type Store struct {
	mu       gosync.Mutex
	issues   map[int]issue.Issue
	poisoned bool
	now      func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		issues: make(map[int]issue.Issue),
		now:    time.Now,
	}
}

// withLock runs fn under the lock. A panic inside fn poisons the store:
// this and every later call return ErrStorageUnavailable.
func (s *Store) withLock(fn func() error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.poisoned {
		return ErrStorageUnavailable
	}

	defer func() {
		if r := recover(); r != nil {
			s.poisoned = true
			logger.Error("cache: operation panicked, storage is now unavailable: %v", r)
			err = fmt.Errorf("%w: %v", ErrStorageUnavailable, r)
		}
	}()

	return fn()
}

// List returns a snapshot of every cached issue, ordered by id.
func (s *Store) List() ([]issue.Issue, error) {
	var out []issue.Issue
	err := s.withLock(func() error {
		out = make([]issue.Issue, 0, len(s.issues))
		for _, cached := range s.issues {
			out = append(out, cached.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get returns one cached issue.
func (s *Store) Get(id int) (issue.Issue, error) {
	var out issue.Issue
	err := s.withLock(func() error {
		cached, ok := s.issues[id]
		if !ok {
			return ErrNotFound
		}
		out = cached.Clone()
		return nil
	})
	return out, err
}

// Len returns the number of cached issues.
func (s *Store) Len() (int, error) {
	var n int
	err := s.withLock(func() error {
		n = len(s.issues)
		return nil
	})
	return n, err
}

// Insert creates a local issue with id len+1.
//
// The id is not reuse-safe: after a delete, len+1 can name an issue that
// still exists, and Insert then replaces it.
func (s *Store) Insert(req issue.CreateRequest) (issue.Issue, error) {
	now := s.now()
	var created issue.Issue
	err := s.withLock(func() error {
		id := len(s.issues) + 1
		created = issue.NewLocal(id, req, now)
		s.issues[id] = created.Clone()
		return nil
	})
	return created, err
}

// Upsert stores an issue under its own id, replacing any existing entry.
// Used to merge records fetched from the remote service.
func (s *Store) Upsert(record issue.Issue) error {
	if record.ID <= 0 {
		return fmt.Errorf("cannot cache issue with id %d: ids must be positive", record.ID)
	}
	if record.Date == "" {
		record.Date = issue.DisplayDate("", s.now())
	}
	return s.withLock(func() error {
		s.issues[record.ID] = record.Clone()
		return nil
	})
}

// Seed upserts every record.
func (s *Store) Seed(records []issue.Issue) error {
	for _, record := range records {
		if err := s.Upsert(record); err != nil {
			return err
		}
	}
	return nil
}

// Update applies fn to the cached issue in place and returns the result.
func (s *Store) Update(id int, fn func(*issue.Issue)) (issue.Issue, error) {
	var out issue.Issue
	err := s.withLock(func() error {
		cached, ok := s.issues[id]
		if !ok {
			return ErrNotFound
		}
		fn(&cached)
		s.issues[id] = cached
		out = cached.Clone()
		return nil
	})
	return out, err
}

// UpdateStatus sets the status of a cached issue.
func (s *Store) UpdateStatus(id int, status string) (issue.Issue, error) {
	return s.Update(id, func(cached *issue.Issue) {
		cached.Status = status
	})
}

// UpdateVouchCount records the remote vouch count on a cached issue. The
// remote keeps vouch_priority and vouch_count equal.
func (s *Store) UpdateVouchCount(id int, count int) (issue.Issue, error) {
	return s.Update(id, func(cached *issue.Issue) {
		vouchCount, vouchPriority := count, count
		cached.VouchCount = &vouchCount
		cached.VouchPriority = &vouchPriority
	})
}

// Delete removes a cached issue. It reports true on success and
// ErrNotFound for an unknown id.
func (s *Store) Delete(id int) (bool, error) {
	err := s.withLock(func() error {
		if _, ok := s.issues[id]; !ok {
			return ErrNotFound
		}
		delete(s.issues, id)
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// SampleIssues returns the demonstration records loaded by `serve --seed`.
func SampleIssues() []issue.Issue {
	str := func(s string) *string { return &s }
	one := func() *int { n := 1; return &n }
	return []issue.Issue{
		{
			ID:            1,
			Title:         "Garbage",
			Description:   "Garbage pile needs to be cleared",
			Date:          "Jul 14",
			Latitude:      28.6139,
			Longitude:     77.2090,
			Status:        issue.StatusOpen,
			Category:      str("infrastructure"),
			Priority:      str("medium"),
			CreatedAt:     str("2025-07-14T10:00:00Z"),
			VouchPriority: one(),
			VouchCount:    one(),
		},
		{
			ID:            2,
			Title:         "Street Light",
			Description:   "Street light is not working",
			Date:          "Jul 12",
			Latitude:      28.6150,
			Longitude:     77.2100,
			Status:        issue.StatusOpen,
			Category:      str("electricity"),
			Priority:      str("high"),
			CreatedAt:     str("2025-07-12T08:30:00Z"),
			VouchPriority: one(),
			VouchCount:    one(),
		},
	}
}
