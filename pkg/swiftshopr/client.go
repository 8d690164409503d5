package swiftshopr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/swiftshopr/sdk-go/pkg/currency"
	"github.com/swiftshopr/sdk-go/pkg/evm"
	"github.com/swiftshopr/sdk-go/pkg/metrics"
)

// Reference: SwiftShopr retailer SDK API, /api/v1/sdk/*

const (
	apiPathPrefix  = "/api/v1/sdk"
	authHeaderName = "x-swiftshopr-key"

	metricsStructName = "swiftshopr.client"
)

var (
	// Configuration preconditions. These are programmer errors and are
	// never retried.
	ErrMissingBaseUrl       = errors.New("missing api base url")
	ErrMissingApiKey        = errors.New("missing api key")
	ErrMissingStoreId       = errors.New("missing store id")
	ErrMissingBarcode       = errors.New("missing barcode")
	ErrMissingIntentId      = errors.New("missing intent id")
	ErrMissingPaymentId     = errors.New("missing payment id")
	ErrMissingReceiptId     = errors.New("missing receipt id")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidWalletAddress = errors.New("missing or invalid wallet address")

	// ErrNotFound indicates the requested resource doesn't exist. For
	// product lookups a 404 is not an error and maps to a nil product
	// instead.
	ErrNotFound = errors.New("not found")
)

// Client calls the SwiftShopr backend on behalf of a retailer POS client.
// All calls are authenticated with the retailer API key.
type Client struct {
	log        *logrus.Entry
	baseUrl    string
	apiKey     string
	httpClient *http.Client
}

// NewClient returns a new backend client. The base URL and API key are
// required.
func NewClient(baseUrl, apiKey string) (*Client, error) {
	if len(baseUrl) == 0 {
		return nil, ErrMissingBaseUrl
	}
	if len(apiKey) == 0 {
		return nil, ErrMissingApiKey
	}

	return &Client{
		log:        logrus.StandardLogger().WithField("type", "swiftshopr/client"),
		baseUrl:    strings.TrimSuffix(baseUrl, "/"),
		apiKey:     apiKey,
		httpClient: http.DefaultClient,
	}, nil
}

// LookupProduct resolves a barcode to a product for a store. A 404 from the
// backend means the product isn't known and maps to (nil, nil).
func (c *Client) LookupProduct(ctx context.Context, barcode, storeId string) (*Product, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "LookupProduct")
	defer tracer.End()

	if len(barcode) == 0 {
		return nil, ErrMissingBarcode
	}
	if len(storeId) == 0 {
		return nil, ErrMissingStoreId
	}

	path := fmt.Sprintf(
		"%s/products/%s?storeId=%s",
		apiPathPrefix,
		url.PathEscape(barcode),
		url.QueryEscape(storeId),
	)

	var parsed struct {
		Product *Product `json:"product"`
	}
	err := c.get(ctx, path, &parsed)
	if err == ErrNotFound {
		return nil, nil
	} else if err != nil {
		tracer.OnError(err)
		return nil, err
	}

	if parsed.Product == nil {
		return nil, nil
	}
	if len(parsed.Product.Barcode) == 0 {
		parsed.Product.Barcode = barcode
	}
	return parsed.Product, nil
}

// ValidateCart re-checks client-side prices and availability server-side.
func (c *Client) ValidateCart(ctx context.Context, storeId string, items []LineItem) (*CartValidation, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "ValidateCart")
	defer tracer.End()

	if len(storeId) == 0 {
		return nil, ErrMissingStoreId
	}

	body := struct {
		StoreId string     `json:"storeId"`
		Items   []LineItem `json:"items"`
	}{
		StoreId: storeId,
		Items:   items,
	}

	var parsed CartValidation
	if err := c.post(ctx, apiPathPrefix+"/cart/validate", body, &parsed); err != nil {
		tracer.OnError(err)
		return nil, err
	}
	return &parsed, nil
}

// CreateTransferIntentRequest are the parameters for creating a transfer
// intent.
type CreateTransferIntentRequest struct {
	StoreId            string
	Amount             decimal.Decimal
	UserWalletAddress  string
	OrderId            *string
	DestinationAddress *string
}

// CreateTransferIntent creates a transfer intent on the backend before the
// transfer is executed. This enables payment tracking, webhook dispatch to
// the retailer POS, and an audit trail.
func (c *Client) CreateTransferIntent(ctx context.Context, req CreateTransferIntentRequest) (*TransferIntent, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "CreateTransferIntent")
	defer tracer.End()

	if len(req.StoreId) == 0 {
		return nil, ErrMissingStoreId
	}
	if !currency.IsPositiveUSD(req.Amount) {
		return nil, ErrInvalidAmount
	}
	if !evm.IsValidAddress(req.UserWalletAddress) {
		return nil, ErrInvalidWalletAddress
	}

	body := struct {
		StoreId            string          `json:"storeId"`
		Amount             decimal.Decimal `json:"amount"`
		UserWalletAddress  string          `json:"userWalletAddress"`
		OrderId            *string         `json:"orderId,omitempty"`
		DestinationAddress *string         `json:"destinationAddress,omitempty"`
	}{
		StoreId:            req.StoreId,
		Amount:             req.Amount,
		UserWalletAddress:  req.UserWalletAddress,
		OrderId:            req.OrderId,
		DestinationAddress: req.DestinationAddress,
	}

	var parsed TransferIntent
	if err := c.post(ctx, apiPathPrefix+"/onramp/transfer", body, &parsed); err != nil {
		tracer.OnError(err)
		return nil, err
	}

	if len(parsed.IntentID) == 0 {
		err := errors.New("transfer intent response missing intent_id")
		tracer.OnError(err)
		return nil, err
	}

	// The backend omits defaults it considers implied
	if len(parsed.Transfer.Asset) == 0 {
		parsed.Transfer.Asset = "USDC"
	}
	if len(parsed.Transfer.Network) == 0 {
		parsed.Transfer.Network = string(evm.DefaultNetwork)
	}
	if parsed.Transfer.ChainID == 0 {
		parsed.Transfer.ChainID = evm.GetNetworkConfig(evm.Network(parsed.Transfer.Network)).ChainID
	}

	return &parsed, nil
}

// GetPaymentStatus fetches the status of a payment by intent ID or order ID.
// The by parameter is "intent" or "order"; the backend auto-detects when
// empty.
func (c *Client) GetPaymentStatus(ctx context.Context, id, by string) (*PaymentStatus, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetPaymentStatus")
	defer tracer.End()

	if len(id) == 0 {
		return nil, ErrMissingPaymentId
	}

	path := fmt.Sprintf("%s/onramp/payments/%s/status", apiPathPrefix, url.PathEscape(id))
	if len(by) > 0 {
		path = fmt.Sprintf("%s?by=%s", path, url.QueryEscape(by))
	}

	var parsed PaymentStatus
	if err := c.get(ctx, path, &parsed); err != nil {
		tracer.OnError(err)
		return nil, err
	}
	return &parsed, nil
}

// CreateReceiptRequest are the parameters for generating a digital receipt
// after payment completion.
type CreateReceiptRequest struct {
	IntentId string
	StoreId  string
	OrderId  *string
	Items    []LineItem
	Total    decimal.Decimal
}

// CreateReceipt generates a digital receipt with QR code data for exit
// verification.
func (c *Client) CreateReceipt(ctx context.Context, req CreateReceiptRequest) (*Receipt, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "CreateReceipt")
	defer tracer.End()

	if len(req.IntentId) == 0 {
		return nil, ErrMissingIntentId
	}
	if len(req.StoreId) == 0 {
		return nil, ErrMissingStoreId
	}

	body := struct {
		IntentId string          `json:"intent_id"`
		StoreId  string          `json:"store_id"`
		OrderId  *string         `json:"order_id,omitempty"`
		Items    []LineItem      `json:"items"`
		Total    decimal.Decimal `json:"total"`
	}{
		IntentId: req.IntentId,
		StoreId:  req.StoreId,
		OrderId:  req.OrderId,
		Items:    req.Items,
		Total:    req.Total,
	}

	var parsed Receipt
	if err := c.post(ctx, apiPathPrefix+"/receipts", body, &parsed); err != nil {
		tracer.OnError(err)
		return nil, err
	}
	return &parsed, nil
}

// GetReceipt fetches receipt details by receipt ID.
func (c *Client) GetReceipt(ctx context.Context, receiptId string) (*Receipt, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetReceipt")
	defer tracer.End()

	if len(receiptId) == 0 {
		return nil, ErrMissingReceiptId
	}

	var parsed Receipt
	path := fmt.Sprintf("%s/receipts/%s", apiPathPrefix, url.PathEscape(receiptId))
	if err := c.get(ctx, path, &parsed); err != nil {
		tracer.OnError(err)
		return nil, err
	}
	return &parsed, nil
}

// GetReceiptByIntent fetches receipt details by payment intent ID.
func (c *Client) GetReceiptByIntent(ctx context.Context, intentId string) (*Receipt, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetReceiptByIntent")
	defer tracer.End()

	if len(intentId) == 0 {
		return nil, ErrMissingIntentId
	}

	var parsed Receipt
	path := fmt.Sprintf("%s/receipts/intent/%s", apiPathPrefix, url.PathEscape(intentId))
	if err := c.get(ctx, path, &parsed); err != nil {
		tracer.OnError(err)
		return nil, err
	}
	return &parsed, nil
}

// CreateOnrampSessionRequest are the parameters for opening a fiat-to-crypto
// funding session.
type CreateOnrampSessionRequest struct {
	Amount          decimal.Decimal
	WalletAddress   string
	StoreId         string
	OrderId         *string
	PaymentCurrency string
	PaymentMethod   string
}

// CreateOnrampSession opens a funding session the user completes when their
// wallet balance is insufficient. The returned session carries the hosted
// onramp URL.
func (c *Client) CreateOnrampSession(ctx context.Context, req CreateOnrampSessionRequest) (*OnrampSession, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "CreateOnrampSession")
	defer tracer.End()

	if !evm.IsValidAddress(req.WalletAddress) {
		return nil, ErrInvalidWalletAddress
	}
	if len(req.StoreId) == 0 {
		return nil, ErrMissingStoreId
	}
	if !currency.IsPositiveUSD(req.Amount) {
		return nil, ErrInvalidAmount
	}

	paymentCurrency := req.PaymentCurrency
	if len(paymentCurrency) == 0 {
		paymentCurrency = "USD"
	}
	paymentMethod := req.PaymentMethod
	if len(paymentMethod) == 0 {
		paymentMethod = "ACH_BANK_ACCOUNT"
	}

	body := struct {
		DestinationAddress string  `json:"destinationAddress"`
		PaymentAmount      string  `json:"paymentAmount"`
		PaymentCurrency    string  `json:"paymentCurrency"`
		PaymentMethod      string  `json:"paymentMethod"`
		StoreId            string  `json:"storeId"`
		OrderId            *string `json:"orderId,omitempty"`
	}{
		DestinationAddress: req.WalletAddress,
		PaymentAmount:      req.Amount.StringFixed(2),
		PaymentCurrency:    paymentCurrency,
		PaymentMethod:      paymentMethod,
		StoreId:            req.StoreId,
		OrderId:            req.OrderId,
	}

	var parsed OnrampSession
	if err := c.post(ctx, apiPathPrefix+"/onramp/session", body, &parsed); err != nil {
		tracer.OnError(err)
		return nil, err
	}

	if len(parsed.OnrampUrl) == 0 {
		err := errors.New("onramp session response missing onramp_url")
		tracer.OnError(err)
		return nil, err
	}
	return &parsed, nil
}

// GetBranding fetches retailer branding for white-label theming.
func (c *Client) GetBranding(ctx context.Context, storeId string) (*Branding, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetBranding")
	defer tracer.End()

	if len(storeId) == 0 {
		return nil, ErrMissingStoreId
	}

	var parsed struct {
		StoreID  string    `json:"store_id"`
		Branding *Branding `json:"branding"`
	}
	path := fmt.Sprintf("%s/onramp/branding/%s", apiPathPrefix, url.PathEscape(storeId))
	if err := c.get(ctx, path, &parsed); err != nil {
		tracer.OnError(err)
		return nil, err
	}

	if parsed.Branding == nil {
		return nil, ErrNotFound
	}
	return parsed.Branding, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseUrl+path, nil)
	if err != nil {
		return errors.Wrap(err, "error creating http request")
	}
	req.Header.Set(authHeaderName, c.apiKey)

	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	marshalled, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "error marshalling request body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseUrl+path, bytes.NewReader(marshalled))
	if err != nil {
		return errors.Wrap(err, "error creating http request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(authHeaderName, c.apiKey)

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "error executing http request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "error reading response body")
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var parsed struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(respBody, &parsed); err == nil && len(parsed.Message) > 0 {
			return errors.Errorf("received http status %d: %s", resp.StatusCode, parsed.Message)
		}
		return errors.Errorf("received http status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.Wrap(err, "error unmarshalling json response")
	}
	return nil
}
