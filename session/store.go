package session

import (
	"sync"

	"github.com/cockroachdb/errors"
)

var (
	ErrAlreadyExists = errors.New("session already exists for guild")
	ErrNotFound      = errors.New("no session for guild")
)

type entry struct {
	mu      sync.Mutex // Guards rec and removed
	rec     Record
	gen     uint64 // Reserve order, never reused
	removed bool   // Set once the entry left the map, pending writers must fail
}

// Store owns every guild's Record. The store-wide lock only guards map membership,
// record reads and writes lock the guild's own entry.
type Store struct {
	mu     sync.RWMutex
	guilds map[string]*entry
	seq    uint64 // Last generation handed out
}

// NewStore returns an empty Store
func NewStore() *Store {
	return &Store{guilds: make(map[string]*entry)}
}

func (s *Store) lookup(guildID string) *entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.guilds[guildID]
}

// Reserve inserts initial for guildID, failing if a record already exists
func (s *Store) Reserve(guildID string, initial Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.guilds[guildID]; exists {
		return errors.Wrapf(ErrAlreadyExists, "guild %s", guildID)
	}
	s.seq++
	s.guilds[guildID] = &entry{rec: initial.Clone(), gen: s.seq}
	return nil
}

// Generation identifies the guild's current session. A session reserved after a
// Remove gets a new generation, so callers can tell it apart from the one they saw.
// It returns 0 when the guild has no session.
func (s *Store) Generation(guildID string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.guilds[guildID]; ok {
		return e.gen
	}
	return 0
}

// Get returns a snapshot of the guild's record
func (s *Store) Get(guildID string) (Record, bool) {
	e := s.lookup(guildID)
	if e == nil {
		return Record{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return Record{}, false
	}
	return e.rec.Clone(), true
}

// Update replaces the guild's record with rec
func (s *Store) Update(guildID string, rec Record) error {
	return s.Modify(guildID, func(r *Record) error {
		*r = rec
		return nil
	})
}

// Modify applies fn to a copy of the guild's record and commits the copy if fn succeeds.
// fn runs under the guild's lock and must not block.
func (s *Store) Modify(guildID string, fn func(r *Record) error) error {
	e := s.lookup(guildID)
	if e == nil {
		return errors.Wrapf(ErrNotFound, "guild %s", guildID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return errors.Wrapf(ErrNotFound, "guild %s", guildID)
	}

	rec := e.rec.Clone()
	if err := fn(&rec); err != nil {
		return err
	}
	e.rec = rec.Clone()
	return nil
}

// Remove deletes the guild's record
func (s *Store) Remove(guildID string) error {
	s.mu.Lock()
	e, exists := s.guilds[guildID]
	if !exists {
		s.mu.Unlock()
		return errors.Wrapf(ErrNotFound, "guild %s", guildID)
	}
	delete(s.guilds, guildID)
	s.mu.Unlock()

	e.mu.Lock()
	e.removed = true
	e.mu.Unlock()
	return nil
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.guilds)
}

// Drain removes every record and returns what was removed, keyed by guild
func (s *Store) Drain() map[string]Record {
	s.mu.Lock()
	drained := s.guilds
	s.guilds = make(map[string]*entry)
	s.mu.Unlock()

	out := make(map[string]Record, len(drained))
	for guildID, e := range drained {
		e.mu.Lock()
		e.removed = true
		out[guildID] = e.rec.Clone()
		e.mu.Unlock()
	}
	return out
}
