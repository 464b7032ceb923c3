package mission

import (
	"fmt"
	"strings"
)

// PoolType enumerates the lifecycle pools. A mission sits in exactly one.
type PoolType int

const (
	PoolAvailable PoolType = iota // Offered, not yet taken
	PoolAccepted                  // Active; receives events and ticks
	PoolCompleted                 // Submitted or auto-completed
	PoolFailed                    // Expired
)

// Pools lists every pool in save and iteration order.
var Pools = []PoolType{PoolAvailable, PoolAccepted, PoolCompleted, PoolFailed}

func (p PoolType) String() string {
	switch p {
	case PoolAvailable:
		return "Available"
	case PoolAccepted:
		return "Accepted"
	case PoolCompleted:
		return "Completed"
	case PoolFailed:
		return "Failed"
	default:
		return fmt.Sprintf("PoolType(%d)", int(p))
	}
}

// Valid reports whether p is one of the declared pools.
func (p PoolType) Valid() bool {
	return p >= PoolAvailable && p <= PoolFailed
}

// ParsePoolType resolves a pool name case-insensitively.
func ParsePoolType(raw string) (PoolType, error) {
	name := strings.TrimSpace(raw)
	for _, p := range Pools {
		if strings.EqualFold(p.String(), name) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("mission: unknown pool %q", raw)
}

// InPool is a convenience for the optional pool arguments of the manager.
func InPool(p PoolType) *PoolType {
	return &p
}
