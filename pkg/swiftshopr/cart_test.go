package swiftshopr

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftshopr/sdk-go/pkg/cart"
)

func TestLineItemsFromCart(t *testing.T) {
	items := []cart.Item{
		{Key: "012345", Name: "Sparkling Water", UnitPrice: decimal.RequireFromString("1.99"), Quantity: 2},
		{Key: "067890", Name: "Trail Mix", UnitPrice: decimal.RequireFromString("4.49"), Quantity: 1},
	}

	lineItems := LineItemsFromCart(items)
	require.Len(t, lineItems, 2)

	assert.Equal(t, "012345", lineItems[0].Barcode)
	assert.Equal(t, "Sparkling Water", lineItems[0].Name)
	assert.True(t, decimal.RequireFromString("1.99").Equal(lineItems[0].Price))
	assert.EqualValues(t, 2, lineItems[0].Quantity)

	assert.Empty(t, LineItemsFromCart(nil))
}
