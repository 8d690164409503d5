package swiftshopr

import (
	"github.com/shopspring/decimal"
)

// Product is a retailer product resolved from a barcode scan.
type Product struct {
	Barcode     string                 `json:"barcode"`
	Name        string                 `json:"name"`
	Price       decimal.Decimal        `json:"price"`
	Image       string                 `json:"image_url,omitempty"`
	Description string                 `json:"description,omitempty"`
	Category    string                 `json:"category,omitempty"`
	InStock     bool                   `json:"in_stock"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// LineItem is a cart line item as understood by the backend.
type LineItem struct {
	Barcode  string          `json:"barcode"`
	Name     string          `json:"name,omitempty"`
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
}

// CartValidation is the backend's re-check of client-side prices and
// availability.
type CartValidation struct {
	Valid            bool            `json:"valid"`
	Items            []LineItem      `json:"items"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	PriceChanges     []PriceChange   `json:"price_changes"`
	UnavailableItems []string        `json:"unavailable_items"`
}

// PriceChange reports a server-side price that differs from what the client
// scanned.
type PriceChange struct {
	Barcode  string          `json:"barcode"`
	OldPrice decimal.Decimal `json:"old_price"`
	NewPrice decimal.Decimal `json:"new_price"`
}

// TransferDestination is the server-verified on-chain destination for a
// payment. Clients must execute the transfer with exactly these values.
type TransferDestination struct {
	To      string          `json:"to"`
	Amount  decimal.Decimal `json:"amount"`
	Asset   string          `json:"asset"`
	Network string          `json:"network"`
	ChainID int64           `json:"chain_id"`
}

// TransferIntent is a backend-issued record authorizing a specific transfer
// prior to execution. Immutable from the client's point of view.
type TransferIntent struct {
	IntentID  string              `json:"intent_id"`
	OrderID   *string             `json:"order_id,omitempty"`
	Status    string              `json:"status,omitempty"`
	ExpiresAt string              `json:"expires_at,omitempty"`
	Transfer  TransferDestination `json:"transfer"`
	Branding  *Branding           `json:"branding,omitempty"`
}

// PaymentStatus is the backend's view of an asynchronous payment.
type PaymentStatus struct {
	IntentID           string          `json:"intent_id"`
	OrderID            *string         `json:"order_id,omitempty"`
	Status             string          `json:"status"`
	AmountUsd          decimal.Decimal `json:"amount_usd"`
	StoreID            string          `json:"store_id"`
	DestinationAddress string          `json:"destination_address,omitempty"`
	TxHash             *string         `json:"tx_hash,omitempty"`
	ConfirmedAt        string          `json:"confirmed_at,omitempty"`
	CreatedAt          string          `json:"created_at,omitempty"`
	ExpiresAt          string          `json:"expires_at,omitempty"`
	IsExpired          bool            `json:"is_expired"`
	ExplorerUrl        string          `json:"explorer_url,omitempty"`
}

// Receipt is a digital receipt with QR data for exit verification.
type Receipt struct {
	ReceiptID  string          `json:"receipt_id"`
	IntentID   string          `json:"intent_id"`
	StoreID    string          `json:"store_id"`
	Status     string          `json:"status,omitempty"`
	QrData     string          `json:"qr_data,omitempty"`
	QrUrl      string          `json:"qr_url,omitempty"`
	Items      []LineItem      `json:"items,omitempty"`
	Total      decimal.Decimal `json:"total"`
	CreatedAt  string          `json:"created_at,omitempty"`
	ExpiresAt  string          `json:"expires_at,omitempty"`
	VerifiedAt string          `json:"verified_at,omitempty"`
}

// OnrampSession is a fiat-to-crypto funding session a user completes when
// their wallet balance is insufficient.
type OnrampSession struct {
	OnrampUrl string    `json:"onramp_url"`
	IntentID  string    `json:"intent_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	QuoteID   string    `json:"quote_id,omitempty"`
	OrderID   *string   `json:"order_id,omitempty"`
	Branding  *Branding `json:"branding,omitempty"`
}

// Branding is retailer white-label theming configuration.
type Branding struct {
	Name     string         `json:"name,omitempty"`
	LogoUrl  string         `json:"logo_url,omitempty"`
	Theme    *BrandingTheme `json:"theme,omitempty"`
	CdpTheme interface{}    `json:"cdp_theme,omitempty"`
}

type BrandingTheme struct {
	PrimaryColor    string `json:"primary_color,omitempty"`
	SecondaryColor  string `json:"secondary_color,omitempty"`
	BackgroundColor string `json:"background_color,omitempty"`
	TextColor       string `json:"text_color,omitempty"`
	AccentColor     string `json:"accent_color,omitempty"`
	Mode            string `json:"mode,omitempty"`
	FontFamily      string `json:"font_family,omitempty"`
}
