package storage

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process Store used when no database path is configured.
type Memory struct {
	mu    sync.Mutex
	units map[string]memoryUnit
	now   func() time.Time
}

type memoryUnit struct {
	payload   []byte
	updatedAt time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{units: make(map[string]memoryUnit), now: time.Now}
}

func (m *Memory) SaveUnit(ctx context.Context, playerID string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return fmt.Errorf("player id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.units[playerID] = memoryUnit{payload: slices.Clone(payload), updatedAt: m.now().UTC()}
	return nil
}

func (m *Memory) LoadUnit(ctx context.Context, playerID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.units[strings.TrimSpace(playerID)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, playerID)
	}
	return slices.Clone(u.payload), nil
}

func (m *Memory) DeleteUnit(ctx context.Context, playerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.units, strings.TrimSpace(playerID))
	return nil
}

func (m *Memory) ListUnits(ctx context.Context) ([]Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Unit, 0, len(m.units))
	for id, u := range m.units {
		out = append(out, Unit{PlayerID: id, Size: len(u.payload), UpdatedAt: u.updatedAt})
	}
	slices.SortFunc(out, func(a, b Unit) int { return strings.Compare(a.PlayerID, b.PlayerID) })
	return out, nil
}

func (m *Memory) Close() error { return nil }
