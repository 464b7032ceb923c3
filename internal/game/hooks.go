package game

import (
	"fmt"
	"strings"

	"EverglowMissions/internal/events"
)

// NetMode is the role of the process in a multiplayer world.
type NetMode int

const (
	SinglePlayer NetMode = iota
	Client
	Server
)

func (m NetMode) String() string {
	switch m {
	case SinglePlayer:
		return "single"
	case Client:
		return "client"
	case Server:
		return "server"
	default:
		return fmt.Sprintf("NetMode(%d)", int(m))
	}
}

// ParseNetMode resolves "single", "client" or "server".
func ParseNetMode(raw string) (NetMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "single", "singleplayer":
		return SinglePlayer, nil
	case "client":
		return Client, nil
	case "server":
		return Server, nil
	default:
		return 0, fmt.Errorf("game: unknown net mode %q", raw)
	}
}

// Hooks turns raw gameplay signals into bridge events, applying the
// ownership rules of the current net mode.
type Hooks struct {
	Mode        NetMode
	LocalPlayer int
	Bridge      *events.Bridge
}

// OnKill reports an NPC death. The local-player channel only fires when the
// local player landed the last hit and this process is not the server; the
// global channel fires wherever kills are authoritative.
func (h *Hooks) OnKill(npc events.NPC) {
	if h == nil || h.Bridge == nil {
		return
	}
	if npc.LastInteraction == h.LocalPlayer && h.Mode != Server {
		h.Bridge.PublishNPCKilled(npc)
	}
	if h.Mode == SinglePlayer || h.Mode == Server {
		h.Bridge.PublishGlobalNPCKilled(npc)
	}
}

// OnConsumeItem reports that player consumed item. Only the local player's
// consumption reaches missions.
func (h *Hooks) OnConsumeItem(item events.Item, player int) {
	if h == nil || h.Bridge == nil {
		return
	}
	if player != h.LocalPlayer {
		return
	}
	h.Bridge.PublishItemConsumed(item)
}
