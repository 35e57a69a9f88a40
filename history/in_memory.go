package history

import (
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/taskmesh/core"
)

// Record is the history of one execution.
type Record struct {
	ID       string
	Action   string
	Args     core.Args
	Results  []core.Result
	Err      string
	Started  time.Time
	Finished time.Time
}

// Final returns the terminal result, if the execution produced one.
func (r Record) Final() (core.Result, bool) {
	if n := len(r.Results); n > 0 && r.Results[n-1].IsTerminal() {
		return r.Results[n-1], true
	}
	return core.Result{}, false
}

// Done reports whether the execution finished.
func (r Record) Done() bool { return !r.Finished.IsZero() }

func (r *Record) clone() Record {
	c := *r
	c.Args = maps.Clone(r.Args)
	c.Results = append([]core.Result(nil), r.Results...)
	return c
}

// Store persists execution records.
type Store interface {
	Begin(id, action string, args core.Args) error
	Append(id string, r core.Result) error
	Finish(id string, err error) error
	Get(id string) (Record, error)
	List(action string) []Record
}

// InMemoryStore is a volatile Store keeping the most recent records in a
// process local map. It is safe for concurrent access. Returned records are
// cloned to prevent external mutation of internal state.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
	order   []string
	limit   int
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore constructs an empty store. A positive limit bounds the
// number of retained records; the oldest finished records are evicted first.
func NewInMemoryStore(limit int) *InMemoryStore {
	return &InMemoryStore{records: make(map[string]*Record), limit: limit}
}

// Begin creates the record for a new execution.
func (s *InMemoryStore) Begin(id, action string, args core.Args) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; ok {
		return fmt.Errorf("execution %s already recorded", id)
	}
	s.records[id] = &Record{ID: id, Action: action, Args: maps.Clone(args), Started: time.Now().UTC()}
	s.order = append(s.order, id)
	s.evictLocked()
	return nil
}

// Append adds one result to a running execution.
func (s *InMemoryStore) Append(id string, r core.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrExecutionNotFound, id)
	}
	rec.Results = append(rec.Results, r)
	return nil
}

// Finish marks the execution done. A nil err records a clean finish.
func (s *InMemoryStore) Finish(id string, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrExecutionNotFound, id)
	}
	rec.Finished = time.Now().UTC()
	if err != nil {
		rec.Err = err.Error()
	}
	s.evictLocked()
	return nil
}

// Get returns a copy of one record.
func (s *InMemoryStore) Get(id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", core.ErrExecutionNotFound, id)
	}
	return rec.clone(), nil
}

// List returns copies of the records for action, oldest first. An empty
// action lists everything.
func (s *InMemoryStore) List(action string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.order))
	for _, id := range s.order {
		rec := s.records[id]
		if action == "" || rec.Action == action {
			out = append(out, rec.clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Started.Before(out[j].Started) })
	return out
}

// evictLocked drops the oldest finished records beyond the limit; caller
// must hold the write lock. Running executions are never evicted.
func (s *InMemoryStore) evictLocked() {
	if s.limit <= 0 || len(s.order) <= s.limit {
		return
	}
	excess := len(s.order) - s.limit
	kept := s.order[:0]
	for _, id := range s.order {
		if excess > 0 && s.records[id].Done() {
			delete(s.records, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}
