// Package storage declares persistence for per-player save units.
//
// A save unit is the opaque encoded tag compound of one player's mission
// state. Stores never look inside it.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a player has no save unit.
var ErrNotFound = errors.New("storage: save unit not found")

// Unit describes one stored save unit.
type Unit struct {
	PlayerID  string
	Size      int
	UpdatedAt time.Time
}

// Store is the persistence contract used by the game host.
type Store interface {
	SaveUnit(ctx context.Context, playerID string, payload []byte) error
	LoadUnit(ctx context.Context, playerID string) ([]byte, error)
	DeleteUnit(ctx context.Context, playerID string) error
	ListUnits(ctx context.Context) ([]Unit, error)
	Close() error
}
