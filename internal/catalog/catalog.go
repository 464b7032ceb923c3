// Package catalog loads mission templates from YAML and turns them into live
// missions. Templates may require other templates; the resulting graph drives
// which missions a player is offered (see Campaign).
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"EverglowMissions/internal/dag"
	"EverglowMissions/internal/mission"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

var (
	// ErrTemplateNotFound is returned by Get and Instantiate for unknown ids.
	ErrTemplateNotFound = errors.New("catalog: template not found")
	// ErrInvalidTemplate wraps every validation failure.
	ErrInvalidTemplate = errors.New("catalog: invalid template")
)

// ObjectiveSpec is the YAML form of an objective tree.
type ObjectiveSpec struct {
	Kind        string          `yaml:"kind"`
	Description string          `yaml:"description,omitempty"`
	Targets     []int           `yaml:"targets,omitempty"`
	Required    int             `yaml:"required,omitempty"`
	Shared      bool            `yaml:"shared,omitempty"`
	Children    []ObjectiveSpec `yaml:"children,omitempty"`
}

// Build converts the YAML form into a fresh objective tree.
func (s ObjectiveSpec) Build() (*mission.Objective, error) {
	return s.build(0)
}

func (s ObjectiveSpec) build(depth int) (*mission.Objective, error) {
	if depth > 32 {
		return nil, fmt.Errorf("%w: objective tree too deep", ErrInvalidTemplate)
	}
	if s.Shared && mission.ObjectiveKind(s.Kind) != mission.KindKillNPC {
		return nil, fmt.Errorf("%w: shared is only valid on %s objectives, not %q", ErrInvalidTemplate, mission.KindKillNPC, s.Kind)
	}
	switch mission.ObjectiveKind(s.Kind) {
	case mission.KindKillNPC:
		o := mission.KillNPC(s.Description, s.Required, s.Targets...)
		o.Shared = s.Shared
		return o, nil
	case mission.KindConsumeItem:
		return mission.ConsumeItem(s.Description, s.Required, s.Targets...), nil
	case mission.KindFlag:
		return mission.Flag(s.Description), nil
	case mission.KindParallel, mission.KindBranching:
		children := make([]*mission.Objective, 0, len(s.Children))
		for i, child := range s.Children {
			built, err := child.build(depth + 1)
			if err != nil {
				return nil, fmt.Errorf("child %d: %w", i, err)
			}
			children = append(children, built)
		}
		if mission.ObjectiveKind(s.Kind) == mission.KindParallel {
			return mission.Parallel(s.Description, children...), nil
		}
		return mission.Branching(s.Description, children...), nil
	default:
		return nil, fmt.Errorf("%w: unknown objective kind %q", ErrInvalidTemplate, s.Kind)
	}
}

// Template is a reusable mission definition.
type Template struct {
	ID           string        `yaml:"id"`
	DisplayName  string        `yaml:"displayName"`
	Description  string        `yaml:"description,omitempty"`
	Kind         string        `yaml:"kind,omitempty"` // standard when empty
	AutoComplete bool          `yaml:"autoComplete,omitempty"`
	TimeLimit    int           `yaml:"timeLimit,omitempty"` // manager ticks, timed only
	Reward       string        `yaml:"reward,omitempty"`    // collect only
	Pool         string        `yaml:"pool,omitempty"`      // Available when empty
	Requires     []string      `yaml:"requires,omitempty"`
	Objective    ObjectiveSpec `yaml:"objective"`
}

// MissionKind returns the registry type name the template instantiates.
func (t *Template) MissionKind() string {
	if t.Kind == "" {
		return mission.TypeStandard
	}
	return t.Kind
}

// TargetPool returns the pool an offered mission lands in.
func (t *Template) TargetPool() mission.PoolType {
	if t.Pool == "" {
		return mission.PoolAvailable
	}
	p, err := mission.ParsePoolType(t.Pool)
	if err != nil {
		return mission.PoolAvailable
	}
	return p
}

// Validate checks that a template is self-consistent.
func (t *Template) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: template is nil", ErrInvalidTemplate)
	}
	if t.ID == "" {
		return fmt.Errorf("%w: template ID cannot be empty", ErrInvalidTemplate)
	}
	if t.DisplayName == "" {
		return fmt.Errorf("%w: template %s missing display name", ErrInvalidTemplate, t.ID)
	}
	switch t.MissionKind() {
	case mission.TypeStandard, mission.TypeCollect:
	case mission.TypeTimed:
		if t.TimeLimit <= 0 {
			return fmt.Errorf("%w: timed template %s needs a positive timeLimit", ErrInvalidTemplate, t.ID)
		}
	default:
		return fmt.Errorf("%w: template %s has unknown kind %q", ErrInvalidTemplate, t.ID, t.Kind)
	}
	if t.Pool != "" {
		p, err := mission.ParsePoolType(t.Pool)
		if err != nil {
			return fmt.Errorf("%w: template %s: %v", ErrInvalidTemplate, t.ID, err)
		}
		if p != mission.PoolAvailable && p != mission.PoolAccepted {
			return fmt.Errorf("%w: template %s cannot be offered into %s", ErrInvalidTemplate, t.ID, p)
		}
	}
	root, err := t.Objective.Build()
	if err != nil {
		return fmt.Errorf("template %s: %w", t.ID, err)
	}
	if err := root.Validate(); err != nil {
		return fmt.Errorf("%w: template %s: %v", ErrInvalidTemplate, t.ID, err)
	}
	return nil
}

// Instantiate builds a new mission from the template.
func (t *Template) Instantiate() (mission.Mission, error) {
	root, err := t.Objective.Build()
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", t.ID, err)
	}
	var ms mission.Mission
	switch t.MissionKind() {
	case mission.TypeStandard:
		ms = mission.NewStandard(t.ID, t.DisplayName, root)
	case mission.TypeTimed:
		ms = mission.NewTimed(t.ID, t.DisplayName, root, t.TimeLimit)
	case mission.TypeCollect:
		ms = mission.NewCollect(t.ID, t.DisplayName, root, t.Reward)
	default:
		return nil, fmt.Errorf("%w: template %s has unknown kind %q", ErrInvalidTemplate, t.ID, t.Kind)
	}
	base := ms.Core()
	base.Description = t.Description
	base.AutoComplete = t.AutoComplete
	return ms, nil
}

type document struct {
	Missions []*Template `yaml:"missions"`
}

// Catalog is a validated set of templates.
type Catalog struct {
	templates map[string]*Template
	order     []string
	graph     *dag.Graph
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a YAML catalog. Unknown fields are rejected.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	c := &Catalog{templates: make(map[string]*Template, len(doc.Missions))}
	for _, t := range doc.Missions {
		if t == nil {
			return nil, fmt.Errorf("%w: empty entry", ErrInvalidTemplate)
		}
		if _, dup := c.templates[t.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate template %s", ErrInvalidTemplate, t.ID)
		}
		c.templates[t.ID] = t
		c.order = append(c.order, t.ID)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks every template and the prerequisite graph.
func (c *Catalog) Validate() error {
	nodes := make([]*dag.Node, 0, len(c.order))
	for _, id := range c.order {
		t := c.templates[id]
		if err := t.Validate(); err != nil {
			return err
		}
		node := &dag.Node{ID: dag.NodeID(t.ID), Label: t.DisplayName}
		for _, req := range t.Requires {
			node.Requires = append(node.Requires, dag.NodeID(req))
		}
		nodes = append(nodes, node)
	}
	g, err := dag.New(nodes)
	if err != nil {
		return fmt.Errorf("%w: prerequisites: %w", ErrInvalidTemplate, err)
	}
	c.graph = g
	return nil
}

// Get retrieves a template by ID.
func (c *Catalog) Get(id string) (*Template, error) {
	t, ok := c.templates[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return t, nil
}

// Instantiate builds a mission from the template called id.
func (c *Catalog) Instantiate(id string) (mission.Mission, error) {
	t, err := c.Get(id)
	if err != nil {
		return nil, err
	}
	return t.Instantiate()
}

// Templates returns the templates in declaration order.
func (c *Catalog) Templates() []*Template {
	out := make([]*Template, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.templates[id])
	}
	return out
}

// Len returns the number of templates.
func (c *Catalog) Len() int { return len(c.order) }

// Graph returns the prerequisite graph.
func (c *Catalog) Graph() *dag.Graph { return c.graph }
