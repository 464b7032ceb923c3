package catalog

import (
	"log"

	"EverglowMissions/internal/dag"
	"EverglowMissions/internal/mission"
)

// Campaign offers catalog missions once their prerequisites are completed.
type Campaign struct {
	catalog *Catalog
	logger  *log.Logger
}

// NewCampaign wraps a validated catalog.
func NewCampaign(c *Catalog, logger *log.Logger) *Campaign {
	if logger == nil {
		logger = log.Default()
	}
	return &Campaign{catalog: c, logger: logger}
}

// Catalog returns the templates the campaign offers from.
func (c *Campaign) Catalog() *Catalog { return c.catalog }

// State projects the manager's pools onto the prerequisite graph: missions in
// the Completed pool are completed, missions anywhere else are known, and
// everything else is still locked.
func (c *Campaign) State(mgr *mission.Manager) *dag.State {
	state := dag.NewState()
	for _, id := range c.catalog.Graph().TopoOrder {
		switch {
		case mgr.HasMission(string(id), mission.InPool(mission.PoolCompleted)):
			state.SetStatus(id, dag.StatusCompleted)
		case mgr.HasMission(string(id), nil):
			state.SetStatus(id, dag.StatusAvailable)
		}
	}
	return state
}

// Offer adds every newly unlocked template to the manager and returns the
// ids it offered.
func (c *Campaign) Offer(mgr *mission.Manager) []string {
	fx := &offerEffects{campaign: c, mgr: mgr}
	dag.Advance(c.catalog.Graph(), c.State(mgr), fx)
	return fx.offered
}

type offerEffects struct {
	campaign *Campaign
	mgr      *mission.Manager
	offered  []string
}

func (e *offerEffects) OnUnlock(id dag.NodeID, _ *dag.Node) {
	t, err := e.campaign.catalog.Get(string(id))
	if err != nil {
		e.campaign.logger.Printf("catalog: %v", err)
		return
	}
	ms, err := t.Instantiate()
	if err != nil {
		e.campaign.logger.Printf("catalog: instantiate %s: %v", id, err)
		return
	}
	if e.mgr.AddMission(ms, t.TargetPool(), true) {
		e.offered = append(e.offered, t.ID)
	}
}

func (e *offerEffects) OnComplete(dag.NodeID, *dag.Node) {}
