package dag

// EvalResult contains the results of evaluating the DAG state.
type EvalResult struct {
	StatusUpdates map[NodeID]Status // Nodes whose status changed
	Unlocked      []NodeID          // Locked -> available, in topological order
}

// Evaluator evaluates the current state against the graph. It reports
// locked nodes whose requirements are all completed.
//
// The evaluator is pure: it doesn't mutate state, only reports what should change.
func Evaluator(graph *Graph, state *State) *EvalResult {
	result := &EvalResult{
		StatusUpdates: make(map[NodeID]Status),
	}

	for _, nodeID := range graph.TopoOrder {
		if state.GetStatus(nodeID) != StatusLocked {
			continue
		}
		node := graph.Nodes[nodeID]

		allRequirementsMet := true
		for _, reqID := range node.Requires {
			if state.GetStatus(reqID) != StatusCompleted {
				allRequirementsMet = false
				break
			}
		}
		if allRequirementsMet {
			result.StatusUpdates[nodeID] = StatusAvailable
			result.Unlocked = append(result.Unlocked, nodeID)
		}
	}

	return result
}

// ApplyEvalResult applies an evaluation result to the state, mutating it.
func ApplyEvalResult(state *State, result *EvalResult) {
	for nodeID, newStatus := range result.StatusUpdates {
		state.SetStatus(nodeID, newStatus)
	}
}

// Unlocked returns the nodes that the current state unlocks, in
// topological order, without mutating state.
func Unlocked(graph *Graph, state *State) []NodeID {
	return Evaluator(graph, state).Unlocked
}
