package presence

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"
)

type memoryRegistry struct {
	mu       sync.RWMutex
	lastSeen map[string]time.Time
}

func NewMemory() Registry {
	return &memoryRegistry{lastSeen: map[string]time.Time{}}
}

func (m *memoryRegistry) Heartbeat(_ context.Context, driverID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if last, ok := m.lastSeen[driverID]; !ok || at.After(last) {
		m.lastSeen[driverID] = at
	}

	return nil
}

func (m *memoryRegistry) Remove(_ context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.lastSeen, driverID)

	return nil
}

func (m *memoryRegistry) Online(_ context.Context, since time.Time) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := []string{}

	for _, id := range slices.Sorted(maps.Keys(m.lastSeen)) {
		if !m.lastSeen[id].Before(since) {
			ids = append(ids, id)
		}
	}

	return ids, nil
}

func (m *memoryRegistry) Sweep(_ context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0

	for id, last := range m.lastSeen {
		if last.Before(olderThan) {
			delete(m.lastSeen, id)
			removed++
		}
	}

	return removed, nil
}
