package dag

import (
	"maps"
)

// Status represents the current state of a node for a player.
type Status string

const (
	// StatusLocked means the node's requirements are not met.
	StatusLocked Status = "locked"
	// StatusAvailable means the node has been unlocked and offered.
	StatusAvailable Status = "available"
	// StatusCompleted means the node has been finished.
	StatusCompleted Status = "completed"
)

// State represents per-player progression state.
type State struct {
	Status map[NodeID]Status `json:"status"`
}

// NewState creates a new empty state.
func NewState() *State {
	return &State{Status: make(map[NodeID]Status)}
}

// GetStatus returns the status of a node, defaulting to locked if not set.
func (s *State) GetStatus(id NodeID) Status {
	if status, exists := s.Status[id]; exists {
		return status
	}
	return StatusLocked
}

// SetStatus updates the status of a node.
func (s *State) SetStatus(id NodeID, status Status) {
	s.Status[id] = status
}

// Clone creates a deep copy of the state.
func (s *State) Clone() *State {
	return &State{Status: maps.Clone(s.Status)}
}
