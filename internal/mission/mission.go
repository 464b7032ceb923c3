// Package mission holds the objective tree, the mission kinds, and the
// Manager that owns the lifecycle pools.
//
// Everything here runs on the session's single logical thread: events are
// delivered and ticks evaluated synchronously, and no call blocks.
package mission

import (
	"errors"
	"fmt"

	"EverglowMissions/internal/events"
	"EverglowMissions/internal/tag"
)

// ErrInvalidMissionData is returned by LoadData for unusable blobs.
var ErrInvalidMissionData = errors.New("mission: invalid mission data")

// Mission is implemented by every mission kind. Concrete kinds embed Base
// and override the hooks they care about.
type Mission interface {
	// Core exposes the shared fields.
	Core() *Base
	// TypeName is the stable registry key used in saves.
	TypeName() string

	Activate(b *events.Bridge)
	Deactivate(b *events.Bridge)

	// Update runs once per manager tick while the mission is accepted.
	Update()
	CheckComplete() bool
	CheckExpire() bool

	OnComplete()
	OnExpire()
	OnCheckCompleteChange()

	SaveData(c tag.Compound)
	LoadData(c tag.Compound) error
}

// Base carries the fields every mission has and default hook behaviour.
type Base struct {
	Name        string
	DisplayName string
	Description string
	Objectives  *Objective

	AutoComplete     bool
	Pool             PoolType
	OldCheckComplete bool

	changed []*Objective
}

// Core implements Mission.
func (b *Base) Core() *Base { return b }

func (b *Base) mustTree() {
	if b.Objectives == nil {
		panic(fmt.Sprintf("mission %q has no objective tree", b.Name))
	}
}

// subscriptionKey is the bridge key the mission subscribes under.
func (b *Base) subscriptionKey() string { return "mission:" + b.Name }

// Activate subscribes the objective tree on every bridge channel under the
// mission's key. Calling it again is a no-op.
func (b *Base) Activate(bridge *events.Bridge) {
	if bridge == nil {
		return
	}
	for _, ch := range events.Channels {
		bridge.Subscribe(ch, b.subscriptionKey(), b.handle)
	}
}

// Deactivate removes the mission's subscriptions. Calling it again is a no-op.
func (b *Base) Deactivate(bridge *events.Bridge) {
	if bridge == nil {
		return
	}
	bridge.Unsubscribe(b.subscriptionKey())
}

// Active reports whether the mission currently receives events.
func (b *Base) Active(bridge *events.Bridge) bool {
	return bridge != nil && bridge.Subscribed(events.ChannelNPCKilled, b.subscriptionKey())
}

func (b *Base) handle(ev events.Event) {
	if b.Objectives != nil {
		b.Objectives.Evaluate(ev)
	}
}

// Update syncs objective completion and remembers which nodes flipped.
func (b *Base) Update() {
	b.mustTree()
	b.changed = b.Objectives.Sync()
}

// ChangedObjectives returns the nodes whose completion flipped during the
// last Update.
func (b *Base) ChangedObjectives() []*Objective {
	return b.changed
}

// CheckComplete delegates to the root objective.
func (b *Base) CheckComplete() bool {
	b.mustTree()
	return b.Objectives.IsCompleted()
}

// CheckExpire is false unless a kind overrides it.
func (b *Base) CheckExpire() bool { return false }

func (b *Base) OnComplete()            {}
func (b *Base) OnExpire()              {}
func (b *Base) OnCheckCompleteChange() {}

// SaveData writes the shared fields and the objective tree.
func (b *Base) SaveData(c tag.Compound) {
	c.Set("name", b.Name)
	c.Set("displayName", b.DisplayName)
	c.Set("description", b.Description)
	c.Set("autoComplete", b.AutoComplete)
	c.Set("oldCheckComplete", b.OldCheckComplete)
	if b.Objectives != nil {
		tree := tag.New()
		b.Objectives.Save(tree)
		c.Set("objectives", tree)
	}
}

// LoadData restores what SaveData wrote.
func (b *Base) LoadData(c tag.Compound) error {
	name, ok := c.GetString("name")
	if !ok || name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidMissionData)
	}
	treeTag, ok := c.GetCompound("objectives")
	if !ok {
		return fmt.Errorf("%w: %s has no objectives", ErrInvalidMissionData, name)
	}
	tree, err := LoadObjective(treeTag)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidMissionData, name, err)
	}
	b.Name = name
	b.DisplayName, _ = c.GetString("displayName")
	b.Description, _ = c.GetString("description")
	b.AutoComplete, _ = c.GetBool("autoComplete")
	b.OldCheckComplete, _ = c.GetBool("oldCheckComplete")
	b.Objectives = tree
	return nil
}
