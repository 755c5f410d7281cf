package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"karsaazai/pkg/domain"
)

// MemoryStore keeps documents in-process. Used by tests and local runs
// without a database.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	threads  map[string]domain.Thread
	messages map[string][]domain.Message // thread ID -> ordered log
	bookings []domain.Booking
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]domain.User),
		threads:  make(map[string]domain.Thread),
		messages: make(map[string][]domain.Message),
	}
}

// SeedUser inserts or replaces a user profile.
func (m *MemoryStore) SeedUser(u domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

// SeedBooking appends a booking record.
func (m *MemoryStore) SeedBooking(b domain.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings = append(m.bookings, b)
}

func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) ListUsers() ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		res = append(res, u)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (m *MemoryStore) MergeUserVerification(id, key string, doc any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("user %s not found", id)
	}
	if u.Verification == nil {
		u.Verification = map[string]any{}
	}
	u.Verification[key] = doc
	u.UpdatedAt = time.Now().UTC()
	m.users[id] = u
	return nil
}

func (m *MemoryStore) UpsertThread(t domain.Thread) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.threads[t.ID]; ok {
		existing.LastMessage = t.LastMessage
		existing.Language = t.Language
		existing.UpdatedAt = t.UpdatedAt
		m.threads[t.ID] = existing
		return nil
	}
	m.threads[t.ID] = t
	return nil
}

func (m *MemoryStore) GetThread(id string) (domain.Thread, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.threads[id]
	return t, ok, nil
}

func (m *MemoryStore) ListThreadsByUser(userID string, limit int) ([]domain.Thread, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Thread, 0)
	for _, t := range m.threads {
		if t.UserID == userID {
			res = append(res, t)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].UpdatedAt.After(res[j].UpdatedAt) })
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (m *MemoryStore) AppendMessage(msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.ThreadID] = append(m.messages[msg.ThreadID], msg)
	return nil
}

func (m *MemoryStore) ListMessages(threadID string, limit int) ([]domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	log := m.messages[threadID]
	if limit > 0 && len(log) > limit {
		log = log[:limit]
	}
	res := make([]domain.Message, len(log))
	copy(res, log)
	return res, nil
}

func (m *MemoryStore) ListBookings() ([]domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Booking, len(m.bookings))
	copy(res, m.bookings)
	return res, nil
}

func (m *MemoryStore) ListBookingsByUser(userID string, limit int) ([]domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Booking, 0)
	for _, b := range m.bookings {
		if b.CustomerID == userID || b.ProviderID == userID {
			res = append(res, b)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}
