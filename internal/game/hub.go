package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"EverglowMissions/internal/catalog"
	"EverglowMissions/internal/storage"
)

// Hub keeps one session per player.
type Hub struct {
	Sessions map[string]*Session
	Mu       sync.Mutex

	store  storage.Store
	opts   SessionOptions
	logger *log.Logger
}

// NewHub creates a hub that persists sessions into store.
func NewHub(store storage.Store, opts SessionOptions) *Hub {
	if store == nil {
		store = storage.NewMemory()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		Sessions: map[string]*Session{},
		store:    store,
		opts:     opts,
		logger:   logger,
	}
}

// GetSession returns the session of playerID, creating and restoring it on
// first use. The session is marked as seen so an idle sweep does not retire
// it right away.
func (h *Hub) GetSession(ctx context.Context, playerID string) (*Session, error) {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	s, err := h.sessionLocked(ctx, playerID)
	if err != nil {
		return nil, err
	}
	s.touch()
	return s, nil
}

// Attach returns the session of playerID with one more connection recorded.
// Callers must Detach when the connection ends.
func (h *Hub) Attach(ctx context.Context, playerID string) (*Session, error) {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	s, err := h.sessionLocked(ctx, playerID)
	if err != nil {
		return nil, err
	}
	s.Attach()
	return s, nil
}

func (h *Hub) sessionLocked(ctx context.Context, playerID string) (*Session, error) {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return nil, fmt.Errorf("game: player id is required")
	}
	if s, ok := h.Sessions[playerID]; ok {
		return s, nil
	}
	s := NewSession(playerID, h.opts)
	if err := s.Restore(ctx, h.store); err != nil {
		s.Close()
		return nil, err
	}
	h.Sessions[playerID] = s
	return s, nil
}

// Lookup returns an existing session or nil.
func (h *Hub) Lookup(playerID string) *Session {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	return h.Sessions[playerID]
}

func (h *Hub) snapshot() []*Session {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	out := make([]*Session, 0, len(h.Sessions))
	for _, s := range h.Sessions {
		out = append(out, s)
	}
	return out
}

// PlayerIDs lists the players with a live session, sorted.
func (h *Hub) PlayerIDs() []string {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	ids := make([]string, 0, len(h.Sessions))
	for id := range h.Sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// TickAll advances every session by one frame.
func (h *Hub) TickAll() {
	for _, s := range h.snapshot() {
		s.Tick()
	}
}

// SetCampaign installs a reloaded campaign on the hub and every session.
func (h *Hub) SetCampaign(c *catalog.Campaign) {
	h.Mu.Lock()
	h.opts.Campaign = c
	h.Mu.Unlock()
	for _, s := range h.snapshot() {
		s.SetCampaign(c)
	}
}

// SaveAll persists every live session.
func (h *Hub) SaveAll(ctx context.Context) error {
	var errs []error
	for _, s := range h.snapshot() {
		if err := s.Save(ctx, h.store); err != nil && !errors.Is(err, ErrSessionClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CleanupIdle saves and drops sessions without connections that were last
// seen more than idle ago. It returns the number of sessions dropped.
// The hub lock is held until every stale session is saved, so a reconnect
// restores the final state.
func (h *Hub) CleanupIdle(ctx context.Context, idle time.Duration, now time.Time) int {
	cutoff := now.Add(-idle)
	h.Mu.Lock()
	defer h.Mu.Unlock()
	dropped := 0
	for id, s := range h.Sessions {
		if !s.Idle(cutoff) {
			continue
		}
		if err := s.retire(ctx, h.store); err != nil {
			h.logger.Printf("hub: %v", err)
		}
		delete(h.Sessions, id)
		dropped++
	}
	return dropped
}

// Close saves every session and tears them down.
func (h *Hub) Close(ctx context.Context) error {
	err := h.SaveAll(ctx)
	h.Mu.Lock()
	defer h.Mu.Unlock()
	for id, s := range h.Sessions {
		s.Close()
		delete(h.Sessions, id)
	}
	return err
}
