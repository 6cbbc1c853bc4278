package storage

import (
	"context"
	"fmt"
	"sync"
)

// Memory is a process-local Store. Nothing survives the process.
type Memory struct {
	mu      sync.Mutex
	ledgers map[Kind]*MemoryLedger
}

// MemoryLedger is the Ledger handed out by Memory.
type MemoryLedger struct {
	mu  sync.Mutex
	ids map[string]struct{}
	// writes counts Record calls that added a new id.
	writes int
}

func NewMemory() *Memory {
	return &Memory{ledgers: map[Kind]*MemoryLedger{}}
}

func (m *Memory) Ledger(kind Kind) (Ledger, error) {
	return m.ledger(kind)
}

// MemoryLedger returns the concrete ledger for kind (tests inspect it).
func (m *Memory) MemoryLedger(kind Kind) *MemoryLedger {
	l, _ := m.ledger(kind)
	return l
}

func (m *Memory) ledger(kind Kind) (*MemoryLedger, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("%w: kind %q", ErrInvalidInput, kind)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.ledgers[kind]
	if !ok {
		l = &MemoryLedger{ids: map[string]struct{}{}}
		m.ledgers[kind] = l
	}
	return l, nil
}

func (m *Memory) Close() error { return nil }

func (l *MemoryLedger) Contains(ctx context.Context, id string) (bool, error) {
	_ = ctx
	id, err := normalizeID(id)
	if err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.ids[id]
	return ok, nil
}

func (l *MemoryLedger) Record(ctx context.Context, id string) error {
	_ = ctx
	id, err := normalizeID(id)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.ids[id]; !ok {
		l.ids[id] = struct{}{}
		l.writes++
	}
	return nil
}

// Writes reports how many distinct ids were recorded.
func (l *MemoryLedger) Writes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writes
}

// IDs returns a copy of the recorded set.
func (l *MemoryLedger) IDs() map[string]struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]struct{}, len(l.ids))
	for k := range l.ids {
		out[k] = struct{}{}
	}
	return out
}
