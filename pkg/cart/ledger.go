package cart

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/swiftshopr/sdk-go/pkg/currency"
)

// Ledger aggregates scan events into a quantity-aggregated list of line
// items. It owns the cart state exclusively; all mutation goes through its
// operations. Safe for concurrent use.
type Ledger struct {
	mu    sync.RWMutex
	state State
}

// NewLedger returns an empty ledger for the provided store.
func NewLedger(storeID string) *Ledger {
	return &Ledger{
		state: State{StoreID: storeID},
	}
}

// SetStore updates the store the cart is associated with.
func (l *Ledger) SetStore(storeID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.state = apply(l.state, setStoreCommand{storeID: storeID})
}

// AddItem merges an item into the cart. If an item with the same key already
// exists, its quantity is incremented by the requested amount (default 1);
// otherwise the item is inserted. Returns false without mutation when the
// item lacks a key, a display name, or a valid price.
func (l *Ledger) AddItem(item Item) bool {
	if len(item.Key) == 0 || len(item.Name) == 0 || item.UnitPrice.IsNegative() {
		return false
	}

	quantity := item.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.state = apply(l.state, addItemCommand{item: item, quantity: quantity})
	return true
}

// RemoveItem deletes the entry for the key, if present.
func (l *Ledger) RemoveItem(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.state = apply(l.state, removeItemCommand{key: key})
}

// UpdateQuantity sets the quantity for the key to exactly n. Any n <= 0
// removes the entry instead.
func (l *Ledger) UpdateQuantity(key string, n int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.state = apply(l.state, updateQuantityCommand{key: key, quantity: n})
}

// Increment adjusts the quantity for the key by +1.
func (l *Ledger) Increment(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.state = apply(l.state, incrementCommand{key: key})
}

// Decrement adjusts the quantity for the key by -1. Decrementing an item at
// quantity 1 removes it.
func (l *Ledger) Decrement(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.state = apply(l.state, decrementCommand{key: key})
}

// Clear empties the cart, preserving the store association.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.state = apply(l.state, clearCommand{})
}

// Reset returns the ledger to its fully initial state.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.state = apply(l.state, resetCommand{})
}

// StoreID returns the store the cart is associated with.
func (l *Ledger) StoreID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.state.StoreID
}

// Items returns a copy of the current line items in insertion order.
func (l *Ledger) Items() []Item {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return copyItems(l.state.Items)
}

// GetItem returns the item for the key, if present.
func (l *Ledger) GetItem(key string) (Item, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, item := range l.state.Items {
		if item.Key == key {
			return item, true
		}
	}
	return Item{}, false
}

// HasItem reports whether an item with the key is present.
func (l *Ledger) HasItem(key string) bool {
	_, ok := l.GetItem(key)
	return ok
}

// IsEmpty reports whether the cart has no items.
func (l *Ledger) IsEmpty() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.state.Items) == 0
}

// ItemCount returns the total quantity across all line items.
func (l *Ledger) ItemCount() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var count int64
	for _, item := range l.state.Items {
		count += item.Quantity
	}
	return count
}

// Subtotal returns the sum of unit price times quantity across all line
// items, unrounded.
func (l *Ledger) Subtotal() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()

	subtotal := decimal.Zero
	for _, item := range l.state.Items {
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity)))
	}
	return subtotal
}

// Total returns the subtotal rounded to cents.
func (l *Ledger) Total() decimal.Decimal {
	return currency.RoundUSD(l.Subtotal())
}
