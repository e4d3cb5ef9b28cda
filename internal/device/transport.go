package device

import (
	"context"
	"encoding/json"
	"sync"
)

// Transport moves property values between the Device and the hardware.
// Implementations must be safe for concurrent use.
type Transport interface {
	Read(ctx context.Context, index int, code string) (Value, error)
	Write(ctx context.Context, index int, code string, v Value) error
}

type memoryKey struct {
	index int
	code  string
}

// MemoryTransport is a simulated device. Unset properties read as 0.
// It backs development mode and tests, and can inject failures.
type MemoryTransport struct {
	mu       sync.Mutex
	values   map[memoryKey]Value
	failures map[string]error
	reads    int
	writes   int
}

// NewMemoryTransport creates an empty simulated device.
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{
		values:   make(map[memoryKey]Value),
		failures: make(map[string]error),
	}
}

// Store changes a value as if the hardware had changed on its own.
func (m *MemoryTransport) Store(index int, code string, v Value) {
	m.mu.Lock()
	m.values[memoryKey{index, code}] = v
	m.mu.Unlock()
}

// Fail makes every read and write of code return err. A nil err clears it.
func (m *MemoryTransport) Fail(code string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, code)
		return
	}
	m.failures[code] = err
}

// Calls returns the number of reads and writes served so far.
func (m *MemoryTransport) Calls() (reads, writes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads, m.writes
}

// Read implements Transport.
func (m *MemoryTransport) Read(ctx context.Context, index int, code string) (Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++

	if err := m.failures[code]; err != nil {
		return nil, err
	}
	v, ok := m.values[memoryKey{index, code}]
	if !ok {
		return json.Number("0"), nil
	}
	return v, nil
}

// Write implements Transport.
func (m *MemoryTransport) Write(ctx context.Context, index int, code string, v Value) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++

	if err := m.failures[code]; err != nil {
		return err
	}
	m.values[memoryKey{index, code}] = v
	return nil
}

var _ Transport = (*MemoryTransport)(nil)
