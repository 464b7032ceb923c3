package catalog

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"EverglowMissions/internal/dag"
	"EverglowMissions/internal/mission"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoMissions = `
missions:
  - id: a
    displayName: A
    objective: {kind: flag, description: talk}
  - id: b
    displayName: B
    requires: [a]
    objective: {kind: kill_npc, targets: [1], required: 2}
`

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func TestDefaultCatalogIsValid(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	assert.Equal(t, 4, c.Len())

	ids := make([]string, 0, c.Len())
	for _, tpl := range c.Templates() {
		ids = append(ids, tpl.ID)
	}
	assert.Equal(t, []string{"first-steps", "night-watch", "field-medic", "watcher-in-the-dark"}, ids)
	assert.Equal(t, []dag.NodeID{"first-steps", "night-watch", "field-medic", "watcher-in-the-dark"}, c.Graph().TopoOrder)
}

func TestGetUnknownTemplate(t *testing.T) {
	c, err := Parse([]byte(twoMissions))
	require.NoError(t, err)

	_, err = c.Get("nope")
	assert.ErrorIs(t, err, ErrTemplateNotFound)
	_, err = c.Instantiate("nope")
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestParseRejectsInvalidCatalogs(t *testing.T) {
	cases := map[string]struct {
		yaml string
		want error
	}{
		"missing id": {
			yaml: "missions:\n  - displayName: X\n    objective: {kind: flag}\n",
			want: ErrInvalidTemplate,
		},
		"missing display name": {
			yaml: "missions:\n  - id: x\n    objective: {kind: flag}\n",
			want: ErrInvalidTemplate,
		},
		"timed without limit": {
			yaml: "missions:\n  - id: x\n    displayName: X\n    kind: timed\n    objective: {kind: flag}\n",
			want: ErrInvalidTemplate,
		},
		"unknown mission kind": {
			yaml: "missions:\n  - id: x\n    displayName: X\n    kind: escort\n    objective: {kind: flag}\n",
			want: ErrInvalidTemplate,
		},
		"unknown objective kind": {
			yaml: "missions:\n  - id: x\n    displayName: X\n    objective: {kind: dance}\n",
			want: ErrInvalidTemplate,
		},
		"kill without targets": {
			yaml: "missions:\n  - id: x\n    displayName: X\n    objective: {kind: kill_npc, required: 1}\n",
			want: ErrInvalidTemplate,
		},
		"shared consume objective": {
			yaml: "missions:\n  - id: x\n    displayName: X\n    objective: {kind: consume_item, targets: [28], required: 1, shared: true}\n",
			want: ErrInvalidTemplate,
		},
		"shared nested flag": {
			yaml: "missions:\n  - id: x\n    displayName: X\n    objective:\n      kind: parallel\n      children:\n        - {kind: flag, description: a, shared: true}\n",
			want: ErrInvalidTemplate,
		},
		"empty composite": {
			yaml: "missions:\n  - id: x\n    displayName: X\n    objective: {kind: parallel}\n",
			want: ErrInvalidTemplate,
		},
		"offered into completed": {
			yaml: "missions:\n  - id: x\n    displayName: X\n    pool: completed\n    objective: {kind: flag}\n",
			want: ErrInvalidTemplate,
		},
		"duplicate id": {
			yaml: "missions:\n  - id: x\n    displayName: X\n    objective: {kind: flag}\n  - id: x\n    displayName: Y\n    objective: {kind: flag}\n",
			want: ErrInvalidTemplate,
		},
		"missing requirement": {
			yaml: "missions:\n  - id: x\n    displayName: X\n    requires: [ghost]\n    objective: {kind: flag}\n",
			want: dag.ErrNodeNotFound,
		},
		"cycle": {
			yaml: "missions:\n  - id: x\n    displayName: X\n    requires: [y]\n    objective: {kind: flag}\n  - id: y\n    displayName: Y\n    requires: [x]\n    objective: {kind: flag}\n",
			want: dag.ErrCycleDetected,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("missions:\n  - id: x\n    displayName: X\n    bogus: 1\n    objective: {kind: flag}\n"))
	assert.Error(t, err)
}

func TestInstantiate(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	ms, err := c.Instantiate("night-watch")
	require.NoError(t, err)
	timed, ok := ms.(*mission.TimedMission)
	require.True(t, ok, "night-watch should be timed, got %T", ms)
	assert.Equal(t, 180, timed.TimeLimit)
	assert.Equal(t, "Night Watch", timed.DisplayName)
	assert.Equal(t, "Survive the first night.", timed.Description)
	require.Len(t, timed.Objectives.Children, 2)
	assert.Equal(t, []int{3}, timed.Objectives.Children[0].Targets)

	ms, err = c.Instantiate("field-medic")
	require.NoError(t, err)
	collect, ok := ms.(*mission.CollectMission)
	require.True(t, ok)
	assert.Equal(t, "healing-crystal", collect.Reward)
	assert.Equal(t, mission.KindBranching, collect.Objectives.Kind)

	first, err := c.Instantiate("first-steps")
	require.NoError(t, err)
	assert.True(t, first.Core().AutoComplete)
	assert.Equal(t, mission.TypeStandard, first.TypeName())

	ms, err = c.Instantiate("watcher-in-the-dark")
	require.NoError(t, err)
	assert.True(t, ms.Core().Objectives.Children[1].Shared)

	// Each instantiation owns its tree.
	again, err := c.Instantiate("first-steps")
	require.NoError(t, err)
	assert.NotSame(t, first.Core().Objectives, again.Core().Objectives)
}

func TestTargetPool(t *testing.T) {
	assert.Equal(t, mission.PoolAvailable, (&Template{}).TargetPool())
	assert.Equal(t, mission.PoolAccepted, (&Template{Pool: "accepted"}).TargetPool())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(twoMissions), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestCampaignOffersByPrerequisites(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	mgr := mission.NewManager(mission.Options{Logger: quietLogger()})
	campaign := NewCampaign(c, quietLogger())

	assert.Equal(t, []string{"first-steps"}, campaign.Offer(mgr))
	assert.True(t, mgr.HasMission("first-steps", mission.InPool(mission.PoolAvailable)))
	assert.Empty(t, campaign.Offer(mgr), "known missions are not offered twice")

	require.True(t, mgr.MoveMission("first-steps", mission.PoolAvailable, mission.PoolCompleted))
	assert.Equal(t, []string{"night-watch", "field-medic"}, campaign.Offer(mgr))

	require.True(t, mgr.MoveMission("night-watch", mission.PoolAvailable, mission.PoolFailed))
	require.True(t, mgr.MoveMission("field-medic", mission.PoolAvailable, mission.PoolCompleted))
	assert.Empty(t, campaign.Offer(mgr), "a failed prerequisite keeps dependents locked")

	state := campaign.State(mgr)
	assert.Equal(t, dag.StatusAvailable, state.GetStatus("night-watch"))
	assert.Equal(t, dag.StatusCompleted, state.GetStatus("field-medic"))
	assert.Equal(t, dag.StatusLocked, state.GetStatus("watcher-in-the-dark"))

	require.True(t, mgr.MoveMission("night-watch", mission.PoolFailed, mission.PoolCompleted))
	assert.Equal(t, []string{"watcher-in-the-dark"}, campaign.Offer(mgr))
}

func TestWatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(twoMissions), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Catalog, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, quietLogger(), func(c *Catalog) { reloaded <- c })
	}()

	// Give the watcher time to register before editing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("missions:\n  - id: solo\n    displayName: Solo\n    objective: {kind: flag}\n"), 0o644))

	select {
	case c := <-reloaded:
		assert.Equal(t, 1, c.Len())
		_, err := c.Get("solo")
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("catalog was not reloaded")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
