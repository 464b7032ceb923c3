package server

import (
	"maps"
	"slices"

	"EverglowMissions/internal/game"
	"EverglowMissions/internal/mission"
)

type objectiveDTO struct {
	Kind        string         `json:"kind"`
	Description string         `json:"description,omitempty"`
	Targets     []int          `json:"targets,omitempty"`
	Count       int            `json:"count,omitempty"`
	Required    int            `json:"required,omitempty"`
	Shared      bool           `json:"shared,omitempty"`
	Completed   bool           `json:"completed"`
	Progress    float64        `json:"progress"`
	Children    []objectiveDTO `json:"children,omitempty"`
}

type missionDTO struct {
	Name         string        `json:"name"`
	DisplayName  string        `json:"display_name"`
	Description  string        `json:"description,omitempty"`
	Type         string        `json:"type"`
	Pool         string        `json:"pool"`
	AutoComplete bool          `json:"auto_complete,omitempty"`
	Completable  bool          `json:"completable"`
	Progress     float64       `json:"progress"`
	Remaining    *int          `json:"remaining,omitempty"` // manager ticks, timed only
	Reward       string        `json:"reward,omitempty"`
	Rewarded     bool          `json:"rewarded,omitempty"`
	Objective    *objectiveDTO `json:"objective,omitempty"`
}

type killDTO struct {
	NPC   int `json:"npc"`
	Count int `json:"count"`
}

// missionsDTO is the full pool view pushed in "missions" frames and served by
// GET /api/missions/{player}.
type missionsDTO struct {
	Player    string                  `json:"player"`
	Version   uint64                  `json:"version"`
	Frame     uint64                  `json:"frame"`
	Pools     map[string][]missionDTO `json:"pools"`
	Kills     []killDTO               `json:"kills"`
	Inventory []game.InventoryItem    `json:"inventory"`
}

type notifyDTO struct {
	Seq     uint64 `json:"seq"`
	Kind    string `json:"kind"`
	Mission string `json:"mission"`
	Text    string `json:"text"`
}

type errorDTO struct {
	Command string `json:"command,omitempty"`
	Message string `json:"message"`
}

func objectiveToDTO(o *mission.Objective) *objectiveDTO {
	if o == nil {
		return nil
	}
	dto := &objectiveDTO{
		Kind:        string(o.Kind),
		Description: o.Description,
		Targets:     o.Targets,
		Count:       o.Count,
		Required:    o.Required,
		Shared:      o.Shared,
		Completed:   o.IsCompleted(),
		Progress:    o.Progress(),
	}
	for _, child := range o.Children {
		if c := objectiveToDTO(child); c != nil {
			dto.Children = append(dto.Children, *c)
		}
	}
	return dto
}

func missionToDTO(ms mission.Mission) missionDTO {
	base := ms.Core()
	dto := missionDTO{
		Name:         base.Name,
		DisplayName:  base.DisplayName,
		Description:  base.Description,
		Type:         ms.TypeName(),
		Pool:         base.Pool.String(),
		AutoComplete: base.AutoComplete,
		Objective:    objectiveToDTO(base.Objectives),
	}
	if base.Objectives != nil {
		dto.Completable = base.Objectives.IsCompleted()
		dto.Progress = base.Objectives.Progress()
	}
	switch m := ms.(type) {
	case *mission.TimedMission:
		remaining := m.Remaining()
		dto.Remaining = &remaining
	case *mission.CollectMission:
		dto.Reward = m.Reward
		dto.Rewarded = m.Rewarded
	}
	return dto
}

func buildMissionsDTO(s *game.Session) (missionsDTO, error) {
	out := missionsDTO{
		Player:  s.PlayerID,
		Version: s.Version(),
		Frame:   s.Frame(),
		Pools:   make(map[string][]missionDTO, len(mission.Pools)),
	}
	err := s.View(func(m *mission.Manager, inv *game.Inventory) {
		for _, pool := range mission.Pools {
			list := []missionDTO{}
			for _, ms := range m.GetMissionPool(pool) {
				list = append(list, missionToDTO(ms))
			}
			out.Pools[pool.String()] = list
		}
		counter := m.NPCKillCounter()
		out.Kills = make([]killDTO, 0, len(counter))
		for _, npc := range slices.Sorted(maps.Keys(counter)) {
			out.Kills = append(out.Kills, killDTO{NPC: npc, Count: counter[npc]})
		}
		out.Inventory = append([]game.InventoryItem{}, inv.Items...)
	})
	return out, err
}

func notesToDTO(notes []game.Note) []notifyDTO {
	out := make([]notifyDTO, 0, len(notes))
	for _, n := range notes {
		out = append(out, notifyDTO{
			Seq:     n.Seq,
			Kind:    string(n.Kind),
			Mission: n.Mission,
			Text:    n.Text,
		})
	}
	return out
}
