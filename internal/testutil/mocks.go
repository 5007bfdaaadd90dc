package testutil

import "sync"

// MockPasswordStore is an in-memory password source keyed by "user@host"
type MockPasswordStore struct {
	mu sync.Mutex

	Passwords map[string]string
	Err       error
	Calls     int
}

// NewMockPasswordStore creates a store holding one password
func NewMockPasswordStore(user, host, password string) *MockPasswordStore {
	return &MockPasswordStore{Passwords: map[string]string{user + "@" + host: password}}
}

// GetPassword returns the stored password or Err
func (m *MockPasswordStore) GetPassword(user, host string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return "", m.Err
	}
	return m.Passwords[user+"@"+host], nil
}
