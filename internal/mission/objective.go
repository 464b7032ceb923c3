package mission

import (
	"errors"
	"fmt"
	"iter"
	"slices"

	"EverglowMissions/internal/events"
	"EverglowMissions/internal/tag"
)

// ObjectiveKind discriminates the objective variants.
type ObjectiveKind string

const (
	// KindKillNPC counts kills of any NPC type in Targets.
	KindKillNPC ObjectiveKind = "kill_npc"
	// KindConsumeItem counts consumption of any item type in Targets.
	KindConsumeItem ObjectiveKind = "consume_item"
	// KindFlag completes only when mission code marks it done.
	KindFlag ObjectiveKind = "flag"
	// KindParallel completes when every child completes.
	KindParallel ObjectiveKind = "parallel"
	// KindBranching completes as soon as any child completes.
	KindBranching ObjectiveKind = "branching"
)

// maxObjectiveDepth bounds decoded trees so corrupt saves cannot recurse forever.
const maxObjectiveDepth = 32

var (
	// ErrInvalidObjective is returned for malformed objective trees.
	ErrInvalidObjective = errors.New("mission: invalid objective")
)

// Objective is one node of a mission's objective tree. Leaves (kill, consume,
// flag) track progress; composites (parallel, branching) only aggregate.
type Objective struct {
	Kind        ObjectiveKind
	Description string

	// Leaf counters. Unused by flag and composite nodes.
	Targets  []int
	Required int
	Count    int

	// Shared kill objectives listen to every kill the authority observes
	// instead of only the local player's.
	Shared bool

	Children []*Objective

	done         bool
	oldCompleted bool
}

// KillNPC builds a kill objective over the given NPC types.
func KillNPC(description string, required int, targets ...int) *Objective {
	return &Objective{Kind: KindKillNPC, Description: description, Required: required, Targets: targets}
}

// ConsumeItem builds a consumption objective over the given item types.
func ConsumeItem(description string, required int, targets ...int) *Objective {
	return &Objective{Kind: KindConsumeItem, Description: description, Required: required, Targets: targets}
}

// Flag builds an objective completed explicitly through SetDone.
func Flag(description string) *Objective {
	return &Objective{Kind: KindFlag, Description: description}
}

// Parallel builds a node that requires all children.
func Parallel(description string, children ...*Objective) *Objective {
	return &Objective{Kind: KindParallel, Description: description, Children: children}
}

// Branching builds a node satisfied by any one child.
func Branching(description string, children ...*Objective) *Objective {
	return &Objective{Kind: KindBranching, Description: description, Children: children}
}

// IsComposite reports whether the node aggregates children.
func (o *Objective) IsComposite() bool {
	return o.Kind == KindParallel || o.Kind == KindBranching
}

// SetDone marks a flag objective. It is a no-op on other kinds.
func (o *Objective) SetDone(done bool) {
	if o.Kind == KindFlag {
		o.done = done
	}
}

// Evaluate feeds an event into the tree. Leaves whose demand set does not
// match ignore it; composites forward it to every child.
func (o *Objective) Evaluate(ev events.Event) {
	if o == nil {
		return
	}
	switch o.Kind {
	case KindKillNPC:
		if ev.NPC == nil {
			return
		}
		want := events.ChannelNPCKilled
		if o.Shared {
			want = events.ChannelGlobalNPCKilled
		}
		if ev.Channel != want || !slices.Contains(o.Targets, ev.NPC.Type) {
			return
		}
		o.advance(1)
	case KindConsumeItem:
		if ev.Channel != events.ChannelItemConsumed || ev.Item == nil {
			return
		}
		if !slices.Contains(o.Targets, ev.Item.Type) {
			return
		}
		o.advance(1)
	case KindParallel, KindBranching:
		for _, child := range o.Children {
			child.Evaluate(ev)
		}
	}
}

func (o *Objective) advance(n int) {
	if o.Count >= o.Required {
		return
	}
	o.Count = min(o.Count+n, o.Required)
}

// IsCompleted evaluates completion from the current counters.
func (o *Objective) IsCompleted() bool {
	if o == nil {
		return false
	}
	switch o.Kind {
	case KindKillNPC, KindConsumeItem:
		return o.Required > 0 && o.Count >= o.Required
	case KindFlag:
		return o.done
	case KindParallel:
		if len(o.Children) == 0 {
			return false
		}
		for _, child := range o.Children {
			if !child.IsCompleted() {
				return false
			}
		}
		return true
	case KindBranching:
		for _, child := range o.Children {
			if child.IsCompleted() {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Progress returns completion in the 0-1 range for presentation.
func (o *Objective) Progress() float64 {
	if o == nil {
		return 0
	}
	switch o.Kind {
	case KindKillNPC, KindConsumeItem:
		if o.Required <= 0 {
			return 0
		}
		return clamp01(float64(o.Count) / float64(o.Required))
	case KindFlag:
		if o.done {
			return 1
		}
		return 0
	case KindParallel:
		if len(o.Children) == 0 {
			return 0
		}
		total := 0.0
		for _, child := range o.Children {
			total += child.Progress()
		}
		return total / float64(len(o.Children))
	case KindBranching:
		best := 0.0
		for _, child := range o.Children {
			best = max(best, child.Progress())
		}
		return best
	default:
		return 0
	}
}

// Flatten yields every node reachable from o, depth first, parents before
// children, in child order. It never mutates the tree.
func (o *Objective) Flatten() iter.Seq[*Objective] {
	return func(yield func(*Objective) bool) {
		o.walk(yield)
	}
}

// Leaves yields only the leaf nodes of the tree.
func (o *Objective) Leaves() iter.Seq[*Objective] {
	return func(yield func(*Objective) bool) {
		for node := range o.Flatten() {
			if node.IsComposite() {
				continue
			}
			if !yield(node) {
				return
			}
		}
	}
}

func (o *Objective) walk(yield func(*Objective) bool) bool {
	if o == nil {
		return true
	}
	if !yield(o) {
		return false
	}
	for _, child := range o.Children {
		if !child.walk(yield) {
			return false
		}
	}
	return true
}

// Sync records the current completion of every node and returns the nodes
// whose completion changed since the previous Sync.
func (o *Objective) Sync() []*Objective {
	var changed []*Objective
	for node := range o.Flatten() {
		now := node.IsCompleted()
		if now != node.oldCompleted {
			node.oldCompleted = now
			changed = append(changed, node)
		}
	}
	return changed
}

// Validate checks the structural rules of the tree: known kinds, positive
// requirements on counting leaves, non-empty composites, and no node
// reachable twice.
func (o *Objective) Validate() error {
	if o == nil {
		return fmt.Errorf("%w: nil tree", ErrInvalidObjective)
	}
	seen := make(map[*Objective]bool)
	return o.validate(seen, 0)
}

func (o *Objective) validate(seen map[*Objective]bool, depth int) error {
	if o == nil {
		return fmt.Errorf("%w: nil child", ErrInvalidObjective)
	}
	if depth > maxObjectiveDepth {
		return fmt.Errorf("%w: tree deeper than %d", ErrInvalidObjective, maxObjectiveDepth)
	}
	if seen[o] {
		return fmt.Errorf("%w: node %q reachable twice", ErrInvalidObjective, o.Description)
	}
	seen[o] = true
	switch o.Kind {
	case KindKillNPC, KindConsumeItem:
		if o.Required <= 0 {
			return fmt.Errorf("%w: %s %q requires a positive count", ErrInvalidObjective, o.Kind, o.Description)
		}
		if len(o.Targets) == 0 {
			return fmt.Errorf("%w: %s %q has no targets", ErrInvalidObjective, o.Kind, o.Description)
		}
	case KindFlag:
	case KindParallel, KindBranching:
		if len(o.Children) == 0 {
			return fmt.Errorf("%w: %s %q has no children", ErrInvalidObjective, o.Kind, o.Description)
		}
		for _, child := range o.Children {
			if err := child.validate(seen, depth+1); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidObjective, o.Kind)
	}
	return nil
}

// Save writes the node and its subtree into c.
func (o *Objective) Save(c tag.Compound) {
	c.Set("kind", string(o.Kind))
	c.Set("description", o.Description)
	c.Set("completed", o.IsCompleted())
	c.Set("oldCompleted", o.oldCompleted)
	switch o.Kind {
	case KindKillNPC, KindConsumeItem:
		c.Set("targets", slices.Clone(o.Targets))
		c.Set("required", o.Required)
		c.Set("count", o.Count)
		if o.Shared {
			c.Set("shared", true)
		}
	case KindFlag:
		c.Set("done", o.done)
	case KindParallel, KindBranching:
		children := make([]tag.Compound, 0, len(o.Children))
		for _, child := range o.Children {
			sub := tag.New()
			child.Save(sub)
			children = append(children, sub)
		}
		c.Set("children", children)
	}
}

// LoadObjective rebuilds a tree written by Save.
func LoadObjective(c tag.Compound) (*Objective, error) {
	return loadObjective(c, 0)
}

func loadObjective(c tag.Compound, depth int) (*Objective, error) {
	if depth > maxObjectiveDepth {
		return nil, fmt.Errorf("%w: tree deeper than %d", ErrInvalidObjective, maxObjectiveDepth)
	}
	kind, ok := c.GetString("kind")
	if !ok {
		return nil, fmt.Errorf("%w: missing kind", ErrInvalidObjective)
	}
	o := &Objective{Kind: ObjectiveKind(kind)}
	o.Description, _ = c.GetString("description")
	o.oldCompleted, _ = c.GetBool("oldCompleted")

	switch o.Kind {
	case KindKillNPC, KindConsumeItem:
		targets, ok := c.GetIntList("targets")
		if !ok {
			return nil, fmt.Errorf("%w: %s missing targets", ErrInvalidObjective, kind)
		}
		o.Targets = targets
		o.Required, _ = c.GetInt("required")
		o.Count, _ = c.GetInt("count")
		o.Shared, _ = c.GetBool("shared")
	case KindFlag:
		o.done, _ = c.GetBool("done")
	case KindParallel, KindBranching:
		children, ok := c.GetCompoundList("children")
		if !ok {
			return nil, fmt.Errorf("%w: %s missing children", ErrInvalidObjective, kind)
		}
		for i, sub := range children {
			child, err := loadObjective(sub, depth+1)
			if err != nil {
				return nil, fmt.Errorf("child %d: %w", i, err)
			}
			o.Children = append(o.Children, child)
		}
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidObjective, kind)
	}
	return o, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
