package utils

import "sync"

// MutexMap provides a mutex per key, releasing entries once no caller is
// holding or waiting on them so the map does not grow with the number of
// chats seen over the process lifetime.
type MutexMap struct {
	edit    sync.Mutex
	waiters map[string]int
	mutexes map[string]*sync.Mutex
}

func NewMutexMap() *MutexMap {
	return &MutexMap{
		waiters: make(map[string]int),
		mutexes: make(map[string]*sync.Mutex),
	}
}

func (m *MutexMap) Lock(key string) {
	m.edit.Lock()

	if m.mutexes[key] == nil {
		m.mutexes[key] = &sync.Mutex{}
		m.waiters[key] = 0
	}

	mu := m.mutexes[key]
	m.waiters[key]++
	m.edit.Unlock()

	mu.Lock()
}

func (m *MutexMap) Unlock(key string) {
	m.edit.Lock()
	defer m.edit.Unlock()

	mu := m.mutexes[key]
	if mu == nil {
		return
	}

	mu.Unlock()
	m.waiters[key]--

	if m.waiters[key] == 0 {
		delete(m.mutexes, key)
		delete(m.waiters, key)
	}
}
