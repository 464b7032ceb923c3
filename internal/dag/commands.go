package dag

import (
	"errors"
	"fmt"
)

// ErrNodeNotAvailable is returned when completing a node that was never unlocked.
var ErrNodeNotAvailable = errors.New("dag: node not available")

// Effects is an interface for side effects triggered by DAG events.
// The campaign implements it to offer missions as they unlock.
type Effects interface {
	// OnUnlock is called when a node moves from locked to available.
	OnUnlock(nodeID NodeID, node *Node)
	// OnComplete is called when a node completes.
	OnComplete(nodeID NodeID, node *Node)
}

// NoOpEffects is a default implementation that does nothing.
type NoOpEffects struct{}

func (e *NoOpEffects) OnUnlock(nodeID NodeID, node *Node)   {}
func (e *NoOpEffects) OnComplete(nodeID NodeID, node *Node) {}

// Advance applies every pending unlock and reports it to effects. It returns
// the unlocked nodes in topological order.
func Advance(graph *Graph, state *State, effects Effects) []NodeID {
	result := Evaluator(graph, state)
	ApplyEvalResult(state, result)
	for _, id := range result.Unlocked {
		effects.OnUnlock(id, graph.Nodes[id])
	}
	return result.Unlocked
}

// Complete marks an available node completed and advances the graph.
// Completing an already completed node is a no-op.
func Complete(graph *Graph, state *State, nodeID NodeID, effects Effects) error {
	node := graph.GetNode(nodeID)
	if node == nil {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}

	switch status := state.GetStatus(nodeID); status {
	case StatusCompleted:
		return nil
	case StatusAvailable:
	default:
		return fmt.Errorf("%w: %s (status: %s)", ErrNodeNotAvailable, nodeID, status)
	}

	state.SetStatus(nodeID, StatusCompleted)
	effects.OnComplete(nodeID, node)
	Advance(graph, state, effects)
	return nil
}
