package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"EverglowMissions/internal/events"
	"EverglowMissions/internal/game"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

var errMissingPayload = errors.New("missing payload")

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type missionCommand struct {
	Mission string `json:"mission"`
}

type flagCommand struct {
	Mission   string `json:"mission"`
	Objective string `json:"objective"`
}

type killCommand struct {
	NPC             int  `json:"npc"`
	WhoAmI          int  `json:"who_am_i"`
	LastInteraction *int `json:"last_interaction,omitempty"` // defaults to the session's player
}

type consumeCommand struct {
	Item   int  `json:"item"`
	Stack  int  `json:"stack"`
	Player *int `json:"player,omitempty"` // defaults to the session's player
}

type clientStateCommand struct {
	InMenu   bool `json:"in_menu"`
	Inactive bool `json:"inactive"`
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return errMissingPayload
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

// dispatch applies one client command to the session.
func (s *Server) dispatch(sess *game.Session, in inboundMessage) error {
	switch in.Type {
	case "mission:accept", "mission:submit", "mission:abandon":
		var payload missionCommand
		if err := decodePayload(in.Payload, &payload); err != nil {
			return err
		}
		switch in.Type {
		case "mission:accept":
			return sess.Accept(payload.Mission)
		case "mission:submit":
			return sess.Submit(payload.Mission)
		default:
			return sess.Abandon(payload.Mission)
		}
	case "objective:flag":
		var payload flagCommand
		if err := decodePayload(in.Payload, &payload); err != nil {
			return err
		}
		return sess.MarkFlag(payload.Mission, payload.Objective)
	case "npc:kill":
		var payload killCommand
		if err := decodePayload(in.Payload, &payload); err != nil {
			return err
		}
		if payload.NPC <= 0 {
			return fmt.Errorf("npc type must be positive, got %d", payload.NPC)
		}
		last := sess.LocalPlayer()
		if payload.LastInteraction != nil {
			last = *payload.LastInteraction
		}
		return sess.Kill(events.NPC{Type: payload.NPC, WhoAmI: payload.WhoAmI, LastInteraction: last})
	case "item:consume":
		var payload consumeCommand
		if err := decodePayload(in.Payload, &payload); err != nil {
			return err
		}
		if payload.Item <= 0 {
			return fmt.Errorf("item type must be positive, got %d", payload.Item)
		}
		player := sess.LocalPlayer()
		if payload.Player != nil {
			player = *payload.Player
		}
		return sess.Consume(events.Item{Type: payload.Item, Stack: max(payload.Stack, 1)}, player)
	case "client:state":
		var payload clientStateCommand
		if err := decodePayload(in.Payload, &payload); err != nil {
			return err
		}
		sess.SetMenu(payload.InMenu)
		sess.SetInactive(payload.Inactive)
		return nil
	default:
		return fmt.Errorf("unknown command %q", in.Type)
	}
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	playerID := strings.TrimSpace(r.URL.Query().Get("player"))
	if playerID == "" {
		http.Error(w, "player is required", http.StatusBadRequest)
		return
	}
	// Attach under the hub lock so an idle sweep cannot retire the session
	// before the connection is counted.
	sess, err := s.hub.Attach(r.Context(), playerID)
	if err != nil {
		s.logger.Printf("ws: session %s: %v", playerID, err)
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		sess.Detach()
		s.logger.Println("ws: upgrade:", err)
		return
	}
	connID := uuid.NewString()
	s.logger.Printf("ws: %s connected as %s", playerID, connID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	replies := make(chan outboundMessage, 16)
	reply := func(msg outboundMessage) {
		select {
		case replies <- msg:
		case <-ctx.Done():
		}
	}

	burst := max(int(s.cfg.CommandRate), 1)
	limiter := rate.NewLimiter(rate.Limit(s.cfg.CommandRate), burst)

	go func() {
		defer cancel()
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if msgType != websocket.TextMessage {
				s.logger.Printf("ws: unsupported message type %d from %s", msgType, connID)
				continue
			}
			var inbound inboundMessage
			if err := json.Unmarshal(data, &inbound); err != nil {
				reply(outboundMessage{Type: "error", Payload: errorDTO{Message: "invalid JSON message"}})
				continue
			}
			if !limiter.Allow() {
				reply(outboundMessage{Type: "error", Payload: errorDTO{Command: inbound.Type, Message: "rate limited"}})
				continue
			}
			if err := s.dispatch(sess, inbound); err != nil {
				s.logger.Printf("ws: %s %s: %v", playerID, inbound.Type, err)
				reply(outboundMessage{Type: "error", Payload: errorDTO{Command: inbound.Type, Message: err.Error()}})
			}
		}
	}()

	sendTick := time.NewTicker(time.Duration(float64(time.Second) / game.UpdateRateHz))
	var lastVersion uint64
	var lastSeq uint64
	first := true

	send := func() error {
		if v := sess.Version(); first || v != lastVersion {
			first = false
			view, err := buildMissionsDTO(sess)
			if err != nil {
				return err
			}
			lastVersion = view.Version
			if err := conn.WriteJSON(outboundMessage{Type: "missions", Payload: view}); err != nil {
				return err
			}
		}
		for _, n := range notesToDTO(sess.NotesSince(lastSeq)) {
			if err := conn.WriteJSON(outboundMessage{Type: "notify", Payload: n}); err != nil {
				return err
			}
			lastSeq = n.Seq
		}
		return nil
	}

	err = send()
	for err == nil {
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case msg := <-replies:
			err = conn.WriteJSON(msg)
		case <-sendTick.C:
			err = send()
		}
	}
	if !errors.Is(err, context.Canceled) {
		s.logger.Printf("ws: send to %s: %v", connID, err)
	}

	sendTick.Stop()
	conn.Close()
	sess.Detach()
	s.logger.Printf("ws: %s disconnected (%s)", playerID, connID)
}
