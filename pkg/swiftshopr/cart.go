package swiftshopr

import (
	"github.com/swiftshopr/sdk-go/pkg/cart"
)

// LineItemsFromCart maps ledger items to the wire representation used by the
// cart validation and receipt endpoints.
func LineItemsFromCart(items []cart.Item) []LineItem {
	lineItems := make([]LineItem, 0, len(items))
	for _, item := range items {
		lineItems = append(lineItems, LineItem{
			Barcode:  item.Key,
			Name:     item.Name,
			Price:    item.UnitPrice,
			Quantity: item.Quantity,
		})
	}
	return lineItems
}
