package multierror

import (
	"fmt"
	"strings"
	"sync"
)

// Error collects errors keyed by the thing that failed, e.g. the peer whose
// connection could not be closed. Keys keep their insertion order.
type Error[K comparable] struct {
	mu     sync.Mutex
	keys   []K
	errors map[K]error
}

func New[K comparable]() *Error[K] {
	return &Error[K]{
		errors: make(map[K]error),
	}
}

func (m *Error[K]) Error() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	parts := make([]string, 0, len(m.keys))
	for _, k := range m.keys {
		parts = append(parts, fmt.Sprintf("%v: %s", k, m.errors[k]))
	}

	return strings.Join(parts, "; ")
}

// Unwrap makes errors.Is and errors.As look through every collected error.
func (m *Error[K]) Unwrap() []error {
	m.mu.Lock()
	defer m.mu.Unlock()

	errs := make([]error, 0, len(m.keys))
	for _, k := range m.keys {
		errs = append(errs, m.errors[k])
	}

	return errs
}

func (m *Error[K]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.keys)
}

// Add records err for key. Nil errors are ignored; a second error for the
// same key replaces the first one.
func (m *Error[K]) Add(key K, err error) {
	if err == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.errors[key]; !ok {
		m.keys = append(m.keys, key)
	}

	m.errors[key] = err
}

func (m *Error[K]) Get(key K) (error, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	err, ok := m.errors[key]

	return err, ok
}

// Combined returns nil if nothing was collected, and the Error itself otherwise.
func (m *Error[K]) Combined() error {
	if m.Len() == 0 {
		return nil
	}

	return m
}
