package cart

import (
	"github.com/shopspring/decimal"
)

// Item is a single scanned line item. Items are keyed by the unique scan
// identifier (typically the UPC/EAN barcode) and aggregated by quantity.
type Item struct {
	Key       string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int64
	Image     string
	Metadata  map[string]interface{}
}

// State is the full cart state. The items sequence is ordered by insertion
// and holds at most one entry per key.
type State struct {
	StoreID string
	Items   []Item
}

type command interface {
	isCommand()
}

type setStoreCommand struct {
	storeID string
}

type addItemCommand struct {
	item     Item
	quantity int64
}

type removeItemCommand struct {
	key string
}

type updateQuantityCommand struct {
	key      string
	quantity int64
}

type incrementCommand struct {
	key string
}

type decrementCommand struct {
	key string
}

type clearCommand struct{}

type resetCommand struct{}

func (setStoreCommand) isCommand()       {}
func (addItemCommand) isCommand()        {}
func (removeItemCommand) isCommand()     {}
func (updateQuantityCommand) isCommand() {}
func (incrementCommand) isCommand()      {}
func (decrementCommand) isCommand()      {}
func (clearCommand) isCommand()          {}
func (resetCommand) isCommand()          {}

// apply is the pure transition function over cart state. It never mutates
// the input state.
func apply(state State, cmd command) State {
	switch typed := cmd.(type) {
	case setStoreCommand:
		state.Items = copyItems(state.Items)
		state.StoreID = typed.storeID
		return state

	case addItemCommand:
		items := copyItems(state.Items)
		for i := range items {
			if items[i].Key == typed.item.Key {
				items[i].Quantity += typed.quantity
				state.Items = items
				return state
			}
		}

		newItem := typed.item
		newItem.Quantity = typed.quantity
		state.Items = append(items, newItem)
		return state

	case removeItemCommand:
		state.Items = removeItem(state.Items, typed.key)
		return state

	case updateQuantityCommand:
		if typed.quantity <= 0 {
			state.Items = removeItem(state.Items, typed.key)
			return state
		}

		items := copyItems(state.Items)
		for i := range items {
			if items[i].Key == typed.key {
				items[i].Quantity = typed.quantity
			}
		}
		state.Items = items
		return state

	case incrementCommand:
		items := copyItems(state.Items)
		for i := range items {
			if items[i].Key == typed.key {
				items[i].Quantity++
			}
		}
		state.Items = items
		return state

	case decrementCommand:
		for _, item := range state.Items {
			if item.Key == typed.key && item.Quantity <= 1 {
				// Never leave an item at quantity 0
				state.Items = removeItem(state.Items, typed.key)
				return state
			}
		}

		items := copyItems(state.Items)
		for i := range items {
			if items[i].Key == typed.key {
				items[i].Quantity--
			}
		}
		state.Items = items
		return state

	case clearCommand:
		state.Items = nil
		return state

	case resetCommand:
		return State{}
	}

	return state
}

func copyItems(items []Item) []Item {
	if len(items) == 0 {
		return nil
	}
	copied := make([]Item, len(items))
	copy(copied, items)
	return copied
}

func removeItem(items []Item, key string) []Item {
	var filtered []Item
	for _, item := range items {
		if item.Key != key {
			filtered = append(filtered, item)
		}
	}
	return filtered
}
