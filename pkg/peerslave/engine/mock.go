package engine

import "sync"

// Mock is an in-memory Engine fake for tests. EvalFunc is swapped in by
// tests to control eval behavior (success, failure, simulated hang).
type Mock struct {
	mu       sync.Mutex
	open     bool
	store    map[string][]byte
	OpenErr  error
	EvalFunc func(m *Mock) error
}

// NewMock builds an unopened Mock engine.
func NewMock() *Mock {
	return &Mock{store: map[string][]byte{}}
}

func (m *Mock) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.OpenErr != nil {
		return m.OpenErr
	}
	m.open = true
	return nil
}

func (m *Mock) Put(name string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return ErrNotOpen
	}
	cp := make([]byte, len(blob))
	copy(cp, blob)
	m.store[name] = cp
	return nil
}

func (m *Mock) Eval(expr string) error {
	m.mu.Lock()
	open := m.open
	m.mu.Unlock()
	if !open {
		return ErrNotOpen
	}
	if m.EvalFunc != nil {
		return m.EvalFunc(m)
	}
	// Default behavior: a round-trip identity peerexec.
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[ArgOutName] = m.store[ArgInName]
	return nil
}

func (m *Mock) Get(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return nil, ErrNotOpen
	}
	return m.store[name], nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = false
	return nil
}

var _ Engine = (*Mock)(nil)
