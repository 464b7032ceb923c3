package game

import (
	"context"
	"testing"
	"time"

	"EverglowMissions/internal/catalog"
	"EverglowMissions/internal/events"
	"EverglowMissions/internal/mission"
	"EverglowMissions/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubGetSession(t *testing.T) {
	ctx := context.Background()
	h := NewHub(nil, testOptions(t))
	t.Cleanup(func() { _ = h.Close(ctx) })

	a, err := h.GetSession(ctx, "alice")
	require.NoError(t, err)
	again, err := h.GetSession(ctx, " alice ")
	require.NoError(t, err)
	assert.Same(t, a, again)

	_, err = h.GetSession(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, h.PlayerIDs())
	assert.Same(t, a, h.Lookup("alice"))
	assert.Nil(t, h.Lookup("carol"))

	_, err = h.GetSession(ctx, "  ")
	assert.Error(t, err)
}

func TestHubRestoresFromStore(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()

	first := NewHub(store, testOptions(t))
	s, err := first.GetSession(ctx, "alice")
	require.NoError(t, err)
	finishFirstSteps(t, s)
	require.NoError(t, first.Close(ctx))
	assert.Empty(t, first.PlayerIDs())

	second := NewHub(store, testOptions(t))
	t.Cleanup(func() { _ = second.Close(ctx) })
	restored, err := second.GetSession(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"first-steps"}, poolNames(restored, mission.PoolCompleted))
	assert.Equal(t, []string{"night-watch", "field-medic"}, poolNames(restored, mission.PoolAvailable))
}

func TestHubTickAll(t *testing.T) {
	ctx := context.Background()
	h := NewHub(nil, testOptions(t))
	t.Cleanup(func() { _ = h.Close(ctx) })

	a, _ := h.GetSession(ctx, "alice")
	b, _ := h.GetSession(ctx, "bob")
	for range 4 {
		h.TickAll()
	}
	assert.Equal(t, uint64(4), a.Frame())
	assert.Equal(t, uint64(4), b.Frame())
}

func TestHubCleanupIdle(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	h := NewHub(store, testOptions(t))
	t.Cleanup(func() { _ = h.Close(ctx) })

	connected, _ := h.GetSession(ctx, "alice")
	connected.Attach()
	_, _ = h.GetSession(ctx, "bob")

	now := time.Now()
	assert.Equal(t, 0, h.CleanupIdle(ctx, time.Minute, now), "recent sessions stay")

	dropped := h.CleanupIdle(ctx, time.Minute, now.Add(2*time.Minute))
	assert.Equal(t, 1, dropped)
	assert.Equal(t, []string{"alice"}, h.PlayerIDs())

	units, err := store.ListUnits(ctx)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "bob", units[0].PlayerID)
}

func TestHubCleanupRetiresHandedOutSession(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	h := NewHub(store, testOptions(t))
	t.Cleanup(func() { _ = h.Close(ctx) })

	s, err := h.GetSession(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, s.Accept("first-steps"))

	later := time.Now().Add(time.Hour)
	assert.Equal(t, 1, h.CleanupIdle(ctx, time.Minute, later))
	assert.True(t, s.Closed())

	assert.NotPanics(t, func() {
		assert.ErrorIs(t, s.Accept("first-steps"), ErrSessionClosed)
		assert.ErrorIs(t, s.Submit("first-steps"), ErrSessionClosed)
		assert.ErrorIs(t, s.Kill(events.NPC{Type: 1}), ErrSessionClosed)
		assert.ErrorIs(t, s.View(func(*mission.Manager, *Inventory) {}), ErrSessionClosed)
		s.Tick()
	})

	again, err := h.GetSession(ctx, "alice")
	require.NoError(t, err)
	assert.NotSame(t, s, again)
	assert.Equal(t, []string{"first-steps"}, poolNames(again, mission.PoolAccepted),
		"the reconnect restores the state saved on retirement")
}

func TestHubAttachSurvivesCleanup(t *testing.T) {
	ctx := context.Background()
	h := NewHub(nil, testOptions(t))
	t.Cleanup(func() { _ = h.Close(ctx) })

	s, err := h.Attach(ctx, "alice")
	require.NoError(t, err)
	later := time.Now().Add(time.Hour)
	assert.Equal(t, 0, h.CleanupIdle(ctx, time.Minute, later))
	require.NoError(t, s.Accept("first-steps"))

	s.Detach()
	assert.Equal(t, 1, h.CleanupIdle(ctx, time.Minute, later))
	assert.Empty(t, h.PlayerIDs())
}

const extendedCatalog = `
missions:
  - id: first-steps
    displayName: First Steps
    autoComplete: true
    objective:
      kind: kill_npc
      targets: [1]
      required: 5
  - id: side-quest
    displayName: Side Quest
    objective:
      kind: flag
      description: Find the lost map
`

func TestHubSetCampaignOffersNewRoots(t *testing.T) {
	ctx := context.Background()
	opts := testOptions(t)
	h := NewHub(nil, opts)
	t.Cleanup(func() { _ = h.Close(ctx) })

	s, err := h.GetSession(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"first-steps"}, poolNames(s, mission.PoolAvailable))

	cat, err := catalog.Parse([]byte(extendedCatalog))
	require.NoError(t, err)
	h.SetCampaign(catalog.NewCampaign(cat, opts.Logger))

	assert.Equal(t, []string{"first-steps", "side-quest"}, poolNames(s, mission.PoolAvailable))

	late, err := h.GetSession(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"first-steps", "side-quest"}, poolNames(late, mission.PoolAvailable))
}
