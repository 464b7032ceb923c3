// Package events is the synchronous broadcast point between gameplay signals
// (kills, item consumption) and the missions that track them.
//
// A Bridge is owned by one session and is not safe for concurrent use; the
// session mutex serializes every publish and subscription change.
package events

import "slices"

// Channel names one broadcast stream on the bridge.
type Channel string

const (
	// ChannelItemConsumed carries items consumed by the local player.
	ChannelItemConsumed Channel = "item_consumed"
	// ChannelNPCKilled carries kills credited to the local player.
	ChannelNPCKilled Channel = "npc_killed"
	// ChannelGlobalNPCKilled carries every kill seen by the authority
	// (single-player or server), regardless of who landed it.
	ChannelGlobalNPCKilled Channel = "global_npc_killed"
)

// Channels lists every channel in delivery-independent, stable order.
var Channels = []Channel{ChannelItemConsumed, ChannelNPCKilled, ChannelGlobalNPCKilled}

// NPC is the payload of a kill event.
type NPC struct {
	Type            int `json:"type"`
	WhoAmI          int `json:"whoAmI"`
	LastInteraction int `json:"lastInteraction"`
}

// Item is the payload of a consumption event.
type Item struct {
	Type  int `json:"type"`
	Stack int `json:"stack"`
}

// Event is one delivery on a channel. Exactly one of NPC or Item is set,
// matching the channel.
type Event struct {
	Channel Channel
	NPC     *NPC
	Item    *Item
}

// Handler receives events. It must not block.
type Handler func(Event)

type subscription struct {
	key     string
	handler Handler
}

// Bridge is a keyed subscription registry. A key owns at most one
// subscription per channel, so repeated Subscribe calls never duplicate
// delivery.
type Bridge struct {
	subs map[Channel][]subscription
}

// NewBridge returns an empty bridge.
func NewBridge() *Bridge {
	return &Bridge{subs: make(map[Channel][]subscription)}
}

// Subscribe registers h on ch under key. It returns false and leaves the
// existing subscription untouched when key is already subscribed to ch.
func (b *Bridge) Subscribe(ch Channel, key string, h Handler) bool {
	if h == nil {
		return false
	}
	if b.Subscribed(ch, key) {
		return false
	}
	b.subs[ch] = append(b.subs[ch], subscription{key: key, handler: h})
	return true
}

// Unsubscribe drops every subscription held by key and reports how many
// were removed.
func (b *Bridge) Unsubscribe(key string) int {
	removed := 0
	for ch, list := range b.subs {
		kept := list[:0:0]
		for _, s := range list {
			if s.key == key {
				removed++
				continue
			}
			kept = append(kept, s)
		}
		b.subs[ch] = kept
	}
	return removed
}

// Subscribed reports whether key currently listens on ch.
func (b *Bridge) Subscribed(ch Channel, key string) bool {
	for _, s := range b.subs[ch] {
		if s.key == key {
			return true
		}
	}
	return false
}

// Subscribers returns the keys listening on ch in delivery order.
func (b *Bridge) Subscribers(ch Channel) []string {
	list := b.subs[ch]
	keys := make([]string, 0, len(list))
	for _, s := range list {
		keys = append(keys, s.key)
	}
	return keys
}

// Publish delivers ev to every subscriber of its channel in subscription
// order. Delivery runs over a snapshot taken before the first handler, so
// handlers that subscribe or unsubscribe do not disturb the current round.
func (b *Bridge) Publish(ev Event) {
	snapshot := slices.Clone(b.subs[ev.Channel])
	for _, s := range snapshot {
		s.handler(ev)
	}
}

// PublishNPCKilled publishes a kill credited to the local player.
func (b *Bridge) PublishNPCKilled(npc NPC) {
	b.Publish(Event{Channel: ChannelNPCKilled, NPC: &npc})
}

// PublishGlobalNPCKilled publishes a kill observed by the authority.
func (b *Bridge) PublishGlobalNPCKilled(npc NPC) {
	b.Publish(Event{Channel: ChannelGlobalNPCKilled, NPC: &npc})
}

// PublishItemConsumed publishes an item consumed by the local player.
func (b *Bridge) PublishItemConsumed(item Item) {
	b.Publish(Event{Channel: ChannelItemConsumed, Item: &item})
}
