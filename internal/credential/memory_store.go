package credential

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// InMemoryStore is a Store backed by process memory. Used by tests and by
// zero-config runs; provides the same ordering and atomicity guarantees as
// the database-backed stores.
type InMemoryStore struct {
	mu          sync.Mutex
	nextID      int64
	credentials map[int64]*Credential
	assignments map[int64]int64 // userID → credentialID
	now         func() time.Time
}

// NewInMemoryStore creates an empty in-memory credential store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		nextID:      1,
		credentials: make(map[int64]*Credential),
		assignments: make(map[int64]int64),
		now:         time.Now,
	}
}

func (s *InMemoryStore) Create(_ context.Context, name string, payload json.RawMessage, active bool) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.credentials {
		if c.Name == name {
			return nil, ErrNameTaken
		}
	}

	now := s.now().UTC()
	c := &Credential{
		ID:        s.nextID,
		Name:      name,
		Payload:   append(json.RawMessage(nil), payload...),
		Active:    active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.nextID++
	s.credentials[c.ID] = c
	out := *c
	return &out, nil
}

func (s *InMemoryStore) GetByID(_ context.Context, id int64) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.credentials[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *c
	return &out, nil
}

func (s *InMemoryStore) GetByName(_ context.Context, name string) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.credentials {
		if c.Name == name {
			out := *c
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) List(_ context.Context) ([]Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Credential, 0, len(s.credentials))
	for _, c := range s.credentials {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Active != out[j].Active {
			return out[i].Active
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *InMemoryStore) FirstActive(_ context.Context) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *Credential
	for _, c := range s.credentials {
		if !c.Active {
			continue
		}
		if best == nil || c.ID < best.ID {
			best = c
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	out := *best
	return &out, nil
}

func (s *InMemoryStore) AssignedActive(_ context.Context, userID int64) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	credID, ok := s.assignments[userID]
	if !ok {
		return nil, ErrNotFound
	}
	c, ok := s.credentials[credID]
	if !ok || !c.Active {
		return nil, ErrNotFound
	}
	out := *c
	return &out, nil
}

func (s *InMemoryStore) SetActive(_ context.Context, id int64, active bool) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.credentials[id]
	if !ok {
		return nil, ErrNotFound
	}
	if active {
		for _, other := range s.credentials {
			if other.ID != id && other.Active {
				other.Active = false
				other.UpdatedAt = s.now().UTC()
			}
		}
	}
	c.Active = active
	c.UpdatedAt = s.now().UTC()
	out := *c
	return &out, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.credentials[id]; !ok {
		return false, nil
	}
	for userID, credID := range s.assignments {
		if credID == id {
			delete(s.assignments, userID)
		}
	}
	delete(s.credentials, id)
	return true, nil
}

func (s *InMemoryStore) Assign(_ context.Context, userID, credentialID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.credentials[credentialID]; !ok {
		return ErrNotFound
	}
	s.assignments[userID] = credentialID
	return nil
}

func (s *InMemoryStore) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.credentials)), nil
}

// compile-time interface check
var _ Store = (*InMemoryStore)(nil)
