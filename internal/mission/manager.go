package mission

import (
	"fmt"
	"log"
	"maps"
	"slices"

	"EverglowMissions/internal/events"
)

// DefaultUpdateInterval is the number of frames between two mission scans.
const DefaultUpdateInterval = 20

// Bridge keys: the manager subscribes under "manager:", missions under
// "mission:" + name, so no mission name can collide with the kill counter.
const killCounterKey = "manager:kill-counter"

// NotificationKind classifies user-visible manager messages.
type NotificationKind string

const (
	NotifyMissionAdded NotificationKind = "mission_added"
	NotifyCompletable  NotificationKind = "completable"
	NotifyCompleted    NotificationKind = "completed"
	NotifyExpired      NotificationKind = "expired"
)

// Notification is a chat-style message for the player.
type Notification struct {
	Kind    NotificationKind `json:"kind"`
	Mission string           `json:"mission"`
	Text    string           `json:"text"`
}

// Notifier receives notifications. Implementations must not call back into
// the manager.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// TickState is what the host tells the manager about the current frame.
type TickState struct {
	Frame    uint64
	InMenu   bool
	Inactive bool
}

// Options configures a Manager. Zero fields get defaults.
type Options struct {
	Bridge         *events.Bridge
	Registry       *Registry
	Notifier       Notifier
	Logger         *log.Logger
	UpdateInterval int
}

// Manager owns every mission pool and the NPC kill history of one session.
type Manager struct {
	pools       map[PoolType][]Mission
	killCounter map[int]int
	needRefresh bool

	bridge   *events.Bridge
	registry *Registry
	notifier Notifier
	logger   *log.Logger
	interval int
}

// NewManager builds and initializes a manager.
func NewManager(opts Options) *Manager {
	m := &Manager{
		bridge:   opts.Bridge,
		registry: opts.Registry,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		interval: opts.UpdateInterval,
	}
	if m.bridge == nil {
		m.bridge = events.NewBridge()
	}
	if m.registry == nil {
		m.registry = DefaultRegistry()
	}
	if m.logger == nil {
		m.logger = log.Default()
	}
	if m.interval <= 0 {
		m.interval = DefaultUpdateInterval
	}
	m.Init()
	return m
}

// Init creates empty pools and starts counting kills. Calling Init on a live
// manager discards its state without deactivating missions; use Clear first.
func (m *Manager) Init() {
	m.pools = make(map[PoolType][]Mission, len(Pools))
	for _, p := range Pools {
		m.pools[p] = nil
	}
	m.killCounter = make(map[int]int)
	m.needRefresh = false
	m.bridge.Subscribe(events.ChannelNPCKilled, killCounterKey, func(ev events.Event) {
		if ev.NPC != nil {
			m.RecordNPCKill(ev.NPC.Type)
		}
	})
}

// Teardown clears every pool and detaches the manager from the bridge.
// The manager must be re-initialized before further use.
func (m *Manager) Teardown() {
	if m.pools == nil {
		return
	}
	m.Clear()
	m.bridge.Unsubscribe(killCounterKey)
	m.pools = nil
	m.killCounter = nil
}

func (m *Manager) mustInit() {
	if m.pools == nil {
		panic("mission: manager used before Init")
	}
}

// Bridge returns the event bridge missions subscribe to.
func (m *Manager) Bridge() *events.Bridge { return m.bridge }

// Registry returns the type registry used for loading.
func (m *Manager) Registry() *Registry { return m.registry }

// UpdateInterval returns the frame gate of Tick.
func (m *Manager) UpdateInterval() int { return m.interval }

// NeedRefresh reports whether pool contents changed since the consumer last
// acknowledged.
func (m *Manager) NeedRefresh() bool { return m.needRefresh }

// AckRefresh is called by the presentation layer once it has redrawn.
func (m *Manager) AckRefresh() { m.needRefresh = false }

func (m *Manager) notify(kind NotificationKind, mission, text string) {
	if m.notifier != nil {
		m.notifier.Notify(Notification{Kind: kind, Mission: mission, Text: text})
	}
}

// ---------------------------------------------------------------------------
// Queries

// HasMission reports whether a mission called name exists in pool, or in any
// pool when pool is nil.
func (m *Manager) HasMission(name string, pool *PoolType) bool {
	return m.find(func(ms Mission) bool { return ms.Core().Name == name }, pool) != nil
}

// GetMission returns the mission called name in pool (or any pool), or nil.
func (m *Manager) GetMission(name string, pool *PoolType) Mission {
	return m.find(func(ms Mission) bool { return ms.Core().Name == name }, pool)
}

func (m *Manager) find(pred func(Mission) bool, pool *PoolType) Mission {
	m.mustInit()
	if pool != nil {
		for _, ms := range m.pools[*pool] {
			if pred(ms) {
				return ms
			}
		}
		return nil
	}
	for _, p := range Pools {
		for _, ms := range m.pools[p] {
			if pred(ms) {
				return ms
			}
		}
	}
	return nil
}

// GetMissionPool returns a copy of the pool; mutating it does not touch the
// manager.
func (m *Manager) GetMissionPool(pool PoolType) []Mission {
	m.mustInit()
	return slices.Clone(m.pools[pool])
}

// PoolSizes returns the number of missions per pool.
func (m *Manager) PoolSizes() map[PoolType]int {
	m.mustInit()
	sizes := make(map[PoolType]int, len(Pools))
	for _, p := range Pools {
		sizes[p] = len(m.pools[p])
	}
	return sizes
}

// GetMissions returns the missions of kind T in pool.
func GetMissions[T Mission](m *Manager, pool PoolType) []T {
	m.mustInit()
	var out []T
	for _, ms := range m.pools[pool] {
		if typed, ok := ms.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}

// HasMissionOfType reports whether a mission of kind T exists in pool, or in
// any pool when pool is nil.
func HasMissionOfType[T Mission](m *Manager, pool *PoolType) bool {
	return m.find(func(ms Mission) bool {
		_, ok := ms.(T)
		return ok
	}, pool) != nil
}

// ---------------------------------------------------------------------------
// Mutations

// AddMission appends ms to pool. A mission whose name already exists in any
// pool is ignored and AddMission returns false.
func (m *Manager) AddMission(ms Mission, pool PoolType, showText bool) bool {
	m.mustInit()
	if ms == nil {
		return false
	}
	if !pool.Valid() {
		m.logger.Printf("mission: add %q to invalid pool %d", ms.Core().Name, int(pool))
		return false
	}
	base := ms.Core()
	if m.HasMission(base.Name, nil) {
		return false
	}
	m.pools[pool] = append(m.pools[pool], ms)
	base.Pool = pool
	m.needRefresh = true

	if showText {
		m.notify(NotifyMissionAdded, base.Name, fmt.Sprintf("New mission added [%s]", base.DisplayName))
	}
	if pool == PoolAccepted {
		ms.Activate(m.bridge)
	}
	return true
}

// RemoveMission removes every mission matching pred from pool, or from all
// pools when pool is nil. Matches are deactivated first.
func (m *Manager) RemoveMission(pred func(Mission) bool, pool *PoolType) bool {
	m.mustInit()
	targets := Pools
	if pool != nil {
		if !pool.Valid() {
			m.logger.Printf("mission: remove from invalid pool %d", int(*pool))
			return false
		}
		targets = []PoolType{*pool}
	}
	removed := 0
	for _, p := range targets {
		list := m.pools[p]
		kept := make([]Mission, 0, len(list))
		for _, ms := range list {
			if pred(ms) {
				ms.Deactivate(m.bridge)
				removed++
				continue
			}
			kept = append(kept, ms)
		}
		m.pools[p] = kept
	}
	if removed > 0 {
		m.needRefresh = true
	}
	return removed > 0
}

// RemoveMissionByName removes the mission called name.
func (m *Manager) RemoveMissionByName(name string, pool *PoolType) bool {
	return m.RemoveMission(func(ms Mission) bool { return ms.Core().Name == name }, pool)
}

// RemoveMissionsOfType removes every mission of kind T.
func RemoveMissionsOfType[T Mission](m *Manager, pool *PoolType) bool {
	return m.RemoveMission(func(ms Mission) bool {
		_, ok := ms.(T)
		return ok
	}, pool)
}

// MoveMission moves the mission called name from one pool to another.
// It returns false when the mission is not in from.
func (m *Manager) MoveMission(name string, from, to PoolType) bool {
	ms := m.GetMission(name, &from)
	if ms == nil {
		return false
	}
	return m.MoveMissionInstance(ms, from, to)
}

// MoveMissionInstance moves ms between pools in one step and (de)activates it
// according to the destination.
func (m *Manager) MoveMissionInstance(ms Mission, from, to PoolType) bool {
	m.mustInit()
	if !to.Valid() {
		return false
	}
	idx := slices.Index(m.pools[from], ms)
	if idx < 0 {
		return false
	}
	m.pools[from] = slices.Delete(m.pools[from], idx, idx+1)
	m.pools[to] = append(m.pools[to], ms)
	ms.Core().Pool = to
	m.needRefresh = true

	if to == PoolAccepted {
		ms.Activate(m.bridge)
	} else {
		ms.Deactivate(m.bridge)
	}
	return true
}

// AcceptMission moves an available mission into the accepted pool.
func (m *Manager) AcceptMission(name string) bool {
	return m.MoveMission(name, PoolAvailable, PoolAccepted)
}

// AbandonMission returns an accepted mission to the available pool with its
// progress intact.
func (m *Manager) AbandonMission(name string) bool {
	return m.MoveMission(name, PoolAccepted, PoolAvailable)
}

// CompleteMission submits an accepted mission whose objectives are done.
func (m *Manager) CompleteMission(name string) bool {
	ms := m.GetMission(name, InPool(PoolAccepted))
	if ms == nil || !ms.CheckComplete() {
		return false
	}
	m.complete(ms)
	return true
}

func (m *Manager) complete(ms Mission) {
	ms.OnComplete()
	m.MoveMissionInstance(ms, PoolAccepted, PoolCompleted)
	base := ms.Core()
	m.notify(NotifyCompleted, base.Name, fmt.Sprintf("[%s] completed", base.DisplayName))
}

func (m *Manager) expire(ms Mission) {
	ms.OnExpire()
	m.MoveMissionInstance(ms, PoolAccepted, PoolFailed)
	base := ms.Core()
	m.notify(NotifyExpired, base.Name, fmt.Sprintf("[%s] expired", base.DisplayName))
}

// Clear deactivates every mission, empties all pools and forgets the kill
// history.
func (m *Manager) Clear() {
	m.mustInit()
	for _, p := range Pools {
		for _, ms := range m.pools[p] {
			ms.Deactivate(m.bridge)
		}
	}
	clear(m.killCounter)
	for _, p := range Pools {
		m.pools[p] = nil
	}
	m.needRefresh = true
}

// ---------------------------------------------------------------------------
// Kill history

// RecordNPCKill counts one kill of npcType. Non-positive types are rejected
// with a warning.
func (m *Manager) RecordNPCKill(npcType int) bool {
	m.mustInit()
	if npcType <= 0 {
		m.logger.Printf("mission: invalid npc type %d", npcType)
		return false
	}
	m.killCounter[npcType]++
	return true
}

// NPCKillCount returns the kills recorded for npcType.
func (m *Manager) NPCKillCount(npcType int) int {
	m.mustInit()
	return m.killCounter[npcType]
}

// NPCKillCounter returns a copy of the whole kill history.
func (m *Manager) NPCKillCounter() map[int]int {
	m.mustInit()
	return maps.Clone(m.killCounter)
}

// MissionNPCTypes returns the NPC types still wanted by unfinished kill
// objectives of accepted missions, without duplicates.
func (m *Manager) MissionNPCTypes() []int {
	m.mustInit()
	var out []int
	seen := make(map[int]bool)
	for _, ms := range m.pools[PoolAccepted] {
		root := ms.Core().Objectives
		for node := range root.Leaves() {
			if node.Kind != KindKillNPC || node.IsCompleted() {
				continue
			}
			for _, t := range node.Targets {
				if !seen[t] {
					seen[t] = true
					out = append(out, t)
				}
			}
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Tick

// Tick runs one mission update cycle. It does nothing while the host is in
// a menu or inactive, between update intervals, or with no accepted
// missions.
func (m *Manager) Tick(st TickState) {
	m.mustInit()
	if st.InMenu || st.Inactive {
		return
	}
	if st.Frame%uint64(m.interval) != 0 {
		return
	}
	if len(m.pools[PoolAccepted]) == 0 {
		return
	}

	for _, ms := range slices.Clone(m.pools[PoolAccepted]) {
		ms.Update()
		if len(ms.Core().ChangedObjectives()) > 0 {
			m.needRefresh = true
		}
	}

	var autoComplete []Mission
	for _, ms := range m.pools[PoolAccepted] {
		if ms.CheckComplete() && ms.Core().AutoComplete {
			autoComplete = append(autoComplete, ms)
		}
	}
	if len(autoComplete) > 0 {
		for _, ms := range autoComplete {
			m.complete(ms)
		}
		m.needRefresh = true
	}

	var expired []Mission
	for _, ms := range m.pools[PoolAccepted] {
		if ms.CheckExpire() {
			expired = append(expired, ms)
		}
	}
	if len(expired) > 0 {
		for _, ms := range expired {
			m.expire(ms)
		}
		m.needRefresh = true
	}

	for _, ms := range slices.Clone(m.pools[PoolAccepted]) {
		base := ms.Core()
		now := ms.CheckComplete()
		if now == base.OldCheckComplete {
			continue
		}
		base.OldCheckComplete = now
		ms.OnCheckCompleteChange()
		if now {
			m.notify(NotifyCompletable, base.Name, fmt.Sprintf("[%s] can be submitted", base.Name))
		}
	}
}
