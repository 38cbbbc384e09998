package service

import (
	"sync"

	"golang.org/x/sync/semaphore"
)

// messageBlock prevents two concurrent execution contexts from processing the
// same logical message, keyed by its correlation key
type messageBlock struct {
	mutex     sync.Mutex
	semaphore map[string]*semaphore.Weighted
}

func newMessageBlock() *messageBlock {
	return &messageBlock{semaphore: make(map[string]*semaphore.Weighted)}
}

// Enter tries to claim the key, false means another context holds it
func (m *messageBlock) Enter(key string) bool {
	m.mutex.Lock()
	if _, ok := m.semaphore[key]; !ok {
		m.semaphore[key] = semaphore.NewWeighted(1)
	}
	sem := m.semaphore[key]
	m.mutex.Unlock()

	return sem.TryAcquire(1)
}

// Release drops the claim on the key (opposite of Enter)
func (m *messageBlock) Release(key string) {
	m.mutex.Lock()
	sem, ok := m.semaphore[key]
	m.mutex.Unlock()

	if ok {
		sem.Release(1)
	}
}
