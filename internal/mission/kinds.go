package mission

import (
	"EverglowMissions/internal/tag"
)

const (
	TypeStandard = "standard"
	TypeTimed    = "timed"
	TypeCollect  = "collect"
)

// StandardMission is a plain objective tree that never expires.
type StandardMission struct {
	Base
}

// NewStandard builds a standard mission.
func NewStandard(name, displayName string, root *Objective) *StandardMission {
	return &StandardMission{Base: Base{Name: name, DisplayName: displayName, Objectives: root}}
}

func (m *StandardMission) TypeName() string { return TypeStandard }

// TimedMission expires once TimeLimit manager ticks pass without the
// objectives being complete.
type TimedMission struct {
	Base
	TimeLimit int
	Elapsed   int
}

// NewTimed builds a timed mission with the given limit in manager ticks.
func NewTimed(name, displayName string, root *Objective, limit int) *TimedMission {
	return &TimedMission{
		Base:      Base{Name: name, DisplayName: displayName, Objectives: root},
		TimeLimit: limit,
	}
}

func (m *TimedMission) TypeName() string { return TypeTimed }

// Update advances the clock after syncing objectives.
func (m *TimedMission) Update() {
	m.Base.Update()
	m.Elapsed++
}

// CheckExpire reports whether the limit ran out before completion.
func (m *TimedMission) CheckExpire() bool {
	if m.TimeLimit <= 0 || m.Elapsed < m.TimeLimit {
		return false
	}
	return !m.CheckComplete()
}

// Remaining returns the ticks left before expiry.
func (m *TimedMission) Remaining() int {
	return max(m.TimeLimit-m.Elapsed, 0)
}

func (m *TimedMission) SaveData(c tag.Compound) {
	m.Base.SaveData(c)
	c.Set("timeLimit", m.TimeLimit)
	c.Set("elapsed", m.Elapsed)
}

func (m *TimedMission) LoadData(c tag.Compound) error {
	if err := m.Base.LoadData(c); err != nil {
		return err
	}
	m.TimeLimit, _ = c.GetInt("timeLimit")
	m.Elapsed, _ = c.GetInt("elapsed")
	return nil
}

// CollectMission hands out a reward the first time it completes.
type CollectMission struct {
	Base
	Reward   string
	Rewarded bool
}

// NewCollect builds a collect mission.
func NewCollect(name, displayName string, root *Objective, reward string) *CollectMission {
	return &CollectMission{
		Base:   Base{Name: name, DisplayName: displayName, Objectives: root},
		Reward: reward,
	}
}

func (m *CollectMission) TypeName() string { return TypeCollect }

func (m *CollectMission) OnComplete() {
	m.Rewarded = true
}

func (m *CollectMission) SaveData(c tag.Compound) {
	m.Base.SaveData(c)
	c.Set("reward", m.Reward)
	c.Set("rewarded", m.Rewarded)
}

func (m *CollectMission) LoadData(c tag.Compound) error {
	if err := m.Base.LoadData(c); err != nil {
		return err
	}
	m.Reward, _ = c.GetString("reward")
	m.Rewarded, _ = c.GetBool("rewarded")
	return nil
}
