package game

import (
	"EverglowMissions/internal/tag"
)

// InventoryItem is one stack of mission rewards.
type InventoryItem struct {
	Type     string `json:"type"`     // reward id, e.g. "healing-crystal"
	Quantity int    `json:"quantity"` // Stack size
}

// Inventory holds the rewards a player earned from missions.
type Inventory struct {
	Items []InventoryItem `json:"items"`
}

// NewInventory creates a new empty inventory.
func NewInventory() *Inventory {
	return &Inventory{
		Items: []InventoryItem{},
	}
}

// AddItem adds quantity to the stack of itemType, creating it if needed.
func (inv *Inventory) AddItem(itemType string, quantity int) {
	if itemType == "" || quantity <= 0 {
		return
	}
	for i := range inv.Items {
		if inv.Items[i].Type == itemType {
			inv.Items[i].Quantity += quantity
			return
		}
	}
	inv.Items = append(inv.Items, InventoryItem{Type: itemType, Quantity: quantity})
}

// GetItemCount returns the quantity held of itemType.
func (inv *Inventory) GetItemCount(itemType string) int {
	for _, item := range inv.Items {
		if item.Type == itemType {
			return item.Quantity
		}
	}
	return 0
}

// RemoveItem removes quantity of itemType.
// Returns true if successful, false if not enough items.
func (inv *Inventory) RemoveItem(itemType string, quantity int) bool {
	for i := range inv.Items {
		item := &inv.Items[i]
		if item.Type != itemType {
			continue
		}
		if item.Quantity < quantity {
			return false
		}
		item.Quantity -= quantity
		// Remove empty stacks
		if item.Quantity == 0 {
			inv.Items = append(inv.Items[:i], inv.Items[i+1:]...)
		}
		return true
	}
	return false
}

// Clone returns an independent copy.
func (inv *Inventory) Clone() *Inventory {
	return &Inventory{Items: append([]InventoryItem{}, inv.Items...)}
}

func (inv *Inventory) save() []tag.Compound {
	out := make([]tag.Compound, 0, len(inv.Items))
	for _, item := range inv.Items {
		out = append(out, tag.Compound{"type": item.Type, "quantity": item.Quantity})
	}
	return out
}

func loadInventory(list []tag.Compound) *Inventory {
	inv := NewInventory()
	for _, c := range list {
		itemType, _ := c.GetString("type")
		qty, _ := c.GetInt("quantity")
		inv.AddItem(itemType, qty)
	}
	return inv
}
