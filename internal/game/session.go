package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"EverglowMissions/internal/catalog"
	"EverglowMissions/internal/events"
	"EverglowMissions/internal/mission"
	"EverglowMissions/internal/storage"
	"EverglowMissions/internal/tag"

	"github.com/google/uuid"
)

var (
	// ErrMissionNotFound is returned when a command names a mission that is
	// not in the pool the command works on.
	ErrMissionNotFound = errors.New("game: mission not found")
	// ErrNotCompletable is returned when submitting unfinished objectives.
	ErrNotCompletable = errors.New("game: mission not completable")
	// ErrObjectiveNotFound is returned when no flag objective matches.
	ErrObjectiveNotFound = errors.New("game: flag objective not found")
	// ErrSessionClosed is returned by commands on a session the hub retired.
	ErrSessionClosed = errors.New("game: session closed")
)

const (
	keyInventory = "inventory"
	keyFrame     = "frame"
)

// SessionOptions configures every session of a hub.
type SessionOptions struct {
	UpdateInterval int
	Mode           NetMode
	LocalPlayer    int
	Registry       *mission.Registry
	Campaign       *catalog.Campaign
	Logger         *log.Logger
}

// Note is a notification stamped with its per-session sequence number.
type Note struct {
	Seq uint64
	mission.Notification
}

// Session is one player's mission world: a manager, its bridge and a frame
// clock. All methods are safe for concurrent use; the session mutex
// serializes every manager call.
type Session struct {
	ID       string
	PlayerID string

	Mu        sync.Mutex
	frame     uint64
	inMenu    bool
	inactive  bool
	manager   *mission.Manager
	bridge    *events.Bridge
	hooks     *Hooks
	campaign  *catalog.Campaign
	inventory *Inventory
	logger    *log.Logger

	version   uint64 // bumped whenever the manager asks for a refresh
	notes     []Note
	noteSeq   uint64
	completed []string // missions completed since the last reward pass

	conns    int
	lastSeen time.Time
	closed   bool
}

// NewSession builds a session for playerID and offers the first campaign
// missions.
func NewSession(playerID string, opts SessionOptions) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	bridge := events.NewBridge()
	s := &Session{
		ID:        uuid.NewString(),
		PlayerID:  playerID,
		bridge:    bridge,
		hooks:     &Hooks{Mode: opts.Mode, LocalPlayer: opts.LocalPlayer, Bridge: bridge},
		campaign:  opts.Campaign,
		inventory: NewInventory(),
		logger:    logger,
		lastSeen:  time.Now(),
	}
	s.manager = mission.NewManager(mission.Options{
		Bridge:         bridge,
		Registry:       opts.Registry,
		Notifier:       mission.NotifierFunc(s.notifyLocked),
		Logger:         logger,
		UpdateInterval: opts.UpdateInterval,
	})
	s.Mu.Lock()
	s.offerLocked()
	s.pollLocked()
	s.Mu.Unlock()
	return s
}

// notifyLocked runs inside manager calls, with the session lock held.
func (s *Session) notifyLocked(n mission.Notification) {
	s.noteSeq++
	s.notes = append(s.notes, Note{Seq: s.noteSeq, Notification: n})
	if over := len(s.notes) - MaxPendingNotifications; over > 0 {
		s.notes = append(s.notes[:0], s.notes[over:]...)
	}
	if n.Kind == mission.NotifyCompleted {
		s.completed = append(s.completed, n.Mission)
	}
}

// pollLocked grants pending rewards and folds the manager's refresh flag
// into the session version.
func (s *Session) pollLocked() {
	for _, name := range s.completed {
		ms := s.manager.GetMission(name, mission.InPool(mission.PoolCompleted))
		if c, ok := ms.(*mission.CollectMission); ok && c.Rewarded && c.Reward != "" {
			s.inventory.AddItem(c.Reward, 1)
		}
	}
	s.completed = s.completed[:0]
	if s.manager.NeedRefresh() {
		s.version++
		s.manager.AckRefresh()
	}
}

func (s *Session) offerLocked() {
	if s.campaign == nil {
		return
	}
	if offered := s.campaign.Offer(s.manager); len(offered) > 0 {
		s.logger.Printf("session %s: offered %v", s.PlayerID, offered)
	}
}

// Tick advances one frame. Missions update on frames that are multiples of
// the manager's interval; campaign offers are re-evaluated on the same frames.
func (s *Session) Tick() {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.closed {
		return
	}
	st := mission.TickState{Frame: s.frame, InMenu: s.inMenu, Inactive: s.inactive}
	s.manager.Tick(st)
	if !s.inMenu && !s.inactive && s.frame%uint64(s.manager.UpdateInterval()) == 0 {
		s.offerLocked()
	}
	s.frame++
	s.pollLocked()
}

// Frame returns the next frame number to be ticked.
func (s *Session) Frame() uint64 {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.frame
}

// SetMenu pauses mission updates while the player is in a menu.
func (s *Session) SetMenu(inMenu bool) {
	s.Mu.Lock()
	s.inMenu = inMenu
	s.Mu.Unlock()
}

// SetInactive pauses mission updates while the game window is inactive.
func (s *Session) SetInactive(inactive bool) {
	s.Mu.Lock()
	s.inactive = inactive
	s.Mu.Unlock()
}

// Accept moves an available mission into the accepted pool.
func (s *Session) Accept(name string) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	defer s.pollLocked()
	if !s.manager.AcceptMission(name) {
		return fmt.Errorf("%w: %q is not available", ErrMissionNotFound, name)
	}
	return nil
}

// Abandon returns an accepted mission to the available pool.
func (s *Session) Abandon(name string) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	defer s.pollLocked()
	if !s.manager.AbandonMission(name) {
		return fmt.Errorf("%w: %q is not accepted", ErrMissionNotFound, name)
	}
	return nil
}

// Submit completes an accepted mission whose objectives are done.
func (s *Session) Submit(name string) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	defer s.pollLocked()
	if !s.manager.HasMission(name, mission.InPool(mission.PoolAccepted)) {
		return fmt.Errorf("%w: %q is not accepted", ErrMissionNotFound, name)
	}
	if !s.manager.CompleteMission(name) {
		return fmt.Errorf("%w: %q", ErrNotCompletable, name)
	}
	s.offerLocked()
	return nil
}

// MarkFlag completes the flag objective described by description inside an
// accepted mission.
func (s *Session) MarkFlag(name, description string) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	ms := s.manager.GetMission(name, mission.InPool(mission.PoolAccepted))
	if ms == nil {
		return fmt.Errorf("%w: %q is not accepted", ErrMissionNotFound, name)
	}
	for node := range ms.Core().Objectives.Leaves() {
		if node.Kind == mission.KindFlag && node.Description == description {
			node.SetDone(true)
			return nil
		}
	}
	return fmt.Errorf("%w: %q in %q", ErrObjectiveNotFound, description, name)
}

// Kill reports an NPC death to the session's hooks.
func (s *Session) Kill(npc events.NPC) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.hooks.OnKill(npc)
	s.pollLocked()
	return nil
}

// Consume reports that player consumed item.
func (s *Session) Consume(item events.Item, player int) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.hooks.OnConsumeItem(item, player)
	s.pollLocked()
	return nil
}

// LocalPlayer is the player index whose kills and items count as the
// session's own.
func (s *Session) LocalPlayer() int { return s.hooks.LocalPlayer }

// Version increases every time pool contents or objective completion change.
func (s *Session) Version() uint64 {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.version
}

// NotesSince returns the notifications newer than seq that are still kept.
func (s *Session) NotesSince(seq uint64) []Note {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	var out []Note
	for _, n := range s.notes {
		if n.Seq > seq {
			out = append(out, n)
		}
	}
	return out
}

// View runs fn with the session locked. fn must not retain the manager or
// the inventory.
func (s *Session) View(fn func(m *mission.Manager, inv *Inventory)) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	fn(s.manager, s.inventory)
	return nil
}

// SetCampaign swaps the campaign after a catalog reload.
func (s *Session) SetCampaign(c *catalog.Campaign) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.campaign = c
	if s.closed {
		return
	}
	s.offerLocked()
	s.pollLocked()
}

// Attach records a new connection.
func (s *Session) Attach() {
	s.Mu.Lock()
	s.conns++
	s.lastSeen = time.Now()
	s.Mu.Unlock()
}

// Detach records a closed connection.
func (s *Session) Detach() {
	s.Mu.Lock()
	if s.conns > 0 {
		s.conns--
	}
	s.lastSeen = time.Now()
	s.Mu.Unlock()
}

// touch marks the session as seen now.
func (s *Session) touch() {
	s.Mu.Lock()
	s.lastSeen = time.Now()
	s.Mu.Unlock()
}

// Idle reports whether the session has no connection and was last seen
// before cutoff.
func (s *Session) Idle(cutoff time.Time) bool {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.conns == 0 && s.lastSeen.Before(cutoff)
}

// Closed reports whether the session was torn down.
func (s *Session) Closed() bool {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.closed
}

// Encode serializes the whole session into a save unit.
func (s *Session) Encode() ([]byte, error) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.encodeLocked()
}

func (s *Session) encodeLocked() ([]byte, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	c := tag.New()
	s.manager.Save(c)
	c.Set(keyInventory, s.inventory.save())
	c.Set(keyFrame, int(s.frame))
	return tag.Marshal(c)
}

// Decode replaces the session state with a save unit.
func (s *Session) Decode(data []byte) error {
	c, err := tag.Unmarshal(data)
	if err != nil {
		return fmt.Errorf("decode session %s: %w", s.PlayerID, err)
	}
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	snap := s.manager.Load(c)
	s.manager.Apply(snap)
	items, _ := c.GetCompoundList(keyInventory)
	s.inventory = loadInventory(items)
	if frame, ok := c.GetInt(keyFrame); ok && frame >= 0 {
		s.frame = uint64(frame)
	}
	s.offerLocked()
	s.pollLocked()
	return nil
}

// Save writes the session into store.
func (s *Session) Save(ctx context.Context, store storage.Store) error {
	data, err := s.Encode()
	if err != nil {
		return err
	}
	if err := store.SaveUnit(ctx, s.PlayerID, data); err != nil {
		return fmt.Errorf("save session %s: %w", s.PlayerID, err)
	}
	return nil
}

// Restore loads the session from store. A player without a save keeps the
// fresh state.
func (s *Session) Restore(ctx context.Context, store storage.Store) error {
	data, err := store.LoadUnit(ctx, s.PlayerID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore session %s: %w", s.PlayerID, err)
	}
	return s.Decode(data)
}

// Close detaches the manager from its bridge. Commands on a closed session
// return ErrSessionClosed.
func (s *Session) Close() {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.closeLocked()
}

func (s *Session) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	s.manager.Teardown()
}

// retire saves the session and closes it without releasing the lock in
// between, so no command lands after the final save.
func (s *Session) retire(ctx context.Context, store storage.Store) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	data, err := s.encodeLocked()
	if err == nil {
		if err = store.SaveUnit(ctx, s.PlayerID, data); err != nil {
			err = fmt.Errorf("save session %s: %w", s.PlayerID, err)
		}
	}
	s.closeLocked()
	return err
}
