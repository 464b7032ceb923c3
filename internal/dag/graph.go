// Package dag implements a minimal deterministic DAG engine for mission
// prerequisites.
//
// All evaluation is pure with respect to (graph, state). A graph is
// validated when it is built and never changes afterwards.
package dag

import (
	"errors"
	"fmt"
)

// NodeID uniquely identifies a node in the graph.
type NodeID string

// Node represents a single node in the DAG.
type Node struct {
	ID       NodeID            `json:"id" yaml:"id"`
	Label    string            `json:"label" yaml:"label"`
	Payload  map[string]string `json:"payload,omitempty" yaml:"payload,omitempty"` // Arbitrary key-value data
	Requires []NodeID          `json:"requires" yaml:"requires"`                   // Dependencies (must be completed)
}

// Graph represents the complete DAG.
type Graph struct {
	Nodes      map[NodeID]*Node    // All nodes indexed by ID
	RequiresIn map[NodeID][]NodeID // Reverse index: which nodes require this one
	TopoOrder  []NodeID            // Topologically sorted node IDs

	order []NodeID // Declaration order
}

var (
	// ErrCycleDetected is returned when a cycle is detected in the graph.
	ErrCycleDetected = errors.New("dag: cycle detected in graph")
	// ErrNodeNotFound is returned when a referenced node doesn't exist.
	ErrNodeNotFound = errors.New("dag: node not found")
	// ErrDuplicateNode is returned when two nodes share an ID.
	ErrDuplicateNode = errors.New("dag: duplicate node")
)

// New builds a graph from nodes and validates it.
func New(nodes []*Node) (*Graph, error) {
	g := &Graph{
		Nodes:      make(map[NodeID]*Node, len(nodes)),
		RequiresIn: make(map[NodeID][]NodeID),
	}

	// Index all nodes
	for _, node := range nodes {
		if node == nil || node.ID == "" {
			return nil, fmt.Errorf("%w: empty node id", ErrNodeNotFound)
		}
		if _, dup := g.Nodes[node.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, node.ID)
		}
		g.Nodes[node.ID] = node
		g.order = append(g.order, node.ID)
	}

	// Build reverse index and validate dependencies
	for _, node := range nodes {
		for _, reqID := range node.Requires {
			if _, exists := g.Nodes[reqID]; !exists {
				return nil, fmt.Errorf("%w: node %s requires missing node %s", ErrNodeNotFound, node.ID, reqID)
			}
			g.RequiresIn[reqID] = append(g.RequiresIn[reqID], node.ID)
		}
	}

	// Validate acyclic via topological sort
	order, err := g.topoSort()
	if err != nil {
		return nil, err
	}
	g.TopoOrder = order
	return g, nil
}

// GetNode returns a node by ID, or nil if not found.
func (g *Graph) GetNode(id NodeID) *Node {
	return g.Nodes[id]
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.Nodes)
}

// topoSort performs topological sorting using Kahn's algorithm to detect cycles.
// Ties are broken by declaration order so the result is stable.
func (g *Graph) topoSort() ([]NodeID, error) {
	// Count in-degrees
	inDegree := make(map[NodeID]int, len(g.Nodes))
	for _, node := range g.Nodes {
		inDegree[node.ID] = len(node.Requires)
	}

	// Queue nodes with no dependencies
	var queue []NodeID
	for _, id := range g.order {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	order := make([]NodeID, 0, len(g.Nodes))
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		order = append(order, curr)

		// Reduce in-degree for dependents
		for _, depID := range g.RequiresIn[curr] {
			inDegree[depID]--
			if inDegree[depID] == 0 {
				queue = append(queue, depID)
			}
		}
	}

	// If not all nodes processed, there's a cycle
	if len(order) != len(g.Nodes) {
		return nil, ErrCycleDetected
	}
	return order, nil
}
