package mission

import (
	"maps"
	"slices"

	"EverglowMissions/internal/tag"
)

const keyKillCounter = "npcKillCounter"

func poolTypesKey(p PoolType) string { return "missions." + p.String() + ".types" }
func poolDataKey(p PoolType) string  { return "missions." + p.String() + ".data" }

// Snapshot is the state rebuilt from a save, not yet applied to a manager.
type Snapshot struct {
	KillCounter map[int]int
	Pools       map[PoolType][]Mission
}

// Missions returns the total number of missions in the snapshot.
func (s *Snapshot) Missions() int {
	n := 0
	for _, list := range s.Pools {
		n += len(list)
	}
	return n
}

// Save writes the kill history and every pool into c. Per pool, the type
// names and mission blobs are stored as two index-aligned lists.
func (m *Manager) Save(c tag.Compound) {
	m.mustInit()
	npcs := slices.Sorted(maps.Keys(m.killCounter))
	entries := make([]tag.Compound, 0, len(npcs))
	for _, npc := range npcs {
		entries = append(entries, tag.Compound{"npc": npc, "count": m.killCounter[npc]})
	}
	c.Set(keyKillCounter, entries)

	for _, p := range Pools {
		list := m.pools[p]
		types := make([]string, 0, len(list))
		data := make([]tag.Compound, 0, len(list))
		for _, ms := range list {
			blob := tag.New()
			ms.SaveData(blob)
			types = append(types, ms.TypeName())
			data = append(data, blob)
		}
		c.Set(poolTypesKey(p), types)
		c.Set(poolDataKey(p), data)
	}
}

// Load rebuilds a snapshot from c. Entries whose type is not registered or
// whose data does not decode are logged and skipped; everything else still
// loads. Load does not touch the manager's pools; see Apply.
func (m *Manager) Load(c tag.Compound) *Snapshot {
	snap := &Snapshot{
		KillCounter: make(map[int]int),
		Pools:       make(map[PoolType][]Mission, len(Pools)),
	}

	if entries, ok := c.GetCompoundList(keyKillCounter); ok {
		for _, e := range entries {
			npc, okNPC := e.GetInt("npc")
			count, okCount := e.GetInt("count")
			if !okNPC || !okCount || npc <= 0 || count < 0 {
				m.logger.Printf("mission: skipping malformed kill counter entry %v", map[string]any(e))
				continue
			}
			snap.KillCounter[npc] = count
		}
	}

	names := make(map[string]bool)
	for _, p := range Pools {
		snap.Pools[p] = nil
		types, okTypes := c.GetStringList(poolTypesKey(p))
		data, okData := c.GetCompoundList(poolDataKey(p))
		if !okTypes || !okData {
			continue
		}
		if len(types) != len(data) {
			m.logger.Printf("mission: pool %s has %d types but %d entries", p, len(types), len(data))
		}
		for i := range min(len(types), len(data)) {
			ms, ok := m.registry.New(types[i])
			if !ok {
				m.logger.Printf("mission: invalid type %s detected in save", types[i])
				continue
			}
			if err := ms.LoadData(data[i]); err != nil {
				m.logger.Printf("mission: skipping %s entry %d in pool %s: %v", types[i], i, p, err)
				continue
			}
			base := ms.Core()
			if names[base.Name] {
				m.logger.Printf("mission: duplicate mission %q in save, keeping first", base.Name)
				continue
			}
			names[base.Name] = true
			base.Pool = p
			snap.Pools[p] = append(snap.Pools[p], ms)
		}
	}
	return snap
}

// Apply replaces the manager's state with a loaded snapshot and activates
// the accepted missions. A nil snapshot is ignored.
func (m *Manager) Apply(snap *Snapshot) {
	m.mustInit()
	if snap == nil {
		return
	}
	m.Clear()
	maps.Copy(m.killCounter, snap.KillCounter)
	for _, p := range Pools {
		m.pools[p] = slices.Clone(snap.Pools[p])
	}
	for _, ms := range m.pools[PoolAccepted] {
		ms.Activate(m.bridge)
	}
	m.needRefresh = true
}
