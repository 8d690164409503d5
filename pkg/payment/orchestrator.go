// Package payment sequences a point-of-sale stablecoin payment: balance
// check, intent creation, on-chain transfer, confirmation.
package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/swiftshopr/sdk-go/pkg/balance"
	"github.com/swiftshopr/sdk-go/pkg/evm"
	"github.com/swiftshopr/sdk-go/pkg/metrics"
	"github.com/swiftshopr/sdk-go/pkg/pointer"
	"github.com/swiftshopr/sdk-go/pkg/swiftshopr"
)

const (
	orchestratorMetricsStructName = "payment.orchestrator"
)

// Status is the orchestrator's payment attempt state.
type Status string

const (
	StatusIdle          Status = "idle"
	StatusSending       Status = "sending"
	StatusConfirming    Status = "confirming"
	StatusSuccess       Status = "success"
	StatusAwaitingFunds Status = "awaiting_funds"
	StatusError         Status = "error"
)

// Reason is a distinguished failure reason a caller can branch on.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonInsufficientFunds Reason = "insufficient_funds"
	ReasonExpired           Reason = "expired"
	ReasonTimeout           Reason = "timeout"
	ReasonError             Reason = "error"
)

// Result is the outcome of a payment attempt. Failures are always reported
// through the result; Start never panics or returns an error directly.
type Result struct {
	Success  bool
	Reason   Reason
	Error    string
	IntentID string
	OrderID  *string
	TxHash   string
	Amount   decimal.Decimal
	Receipt  *swiftshopr.Receipt
}

// State is the orchestrator's live attempt state. Reset returns it to idle.
type State struct {
	Status     Status
	Error      string
	TxHash     string
	IntentID   string
	LastResult *Result
}

// BalanceSource provides balance snapshots for the funding check.
type BalanceSource interface {
	Fetch(ctx context.Context, owner string, network evm.Network) balance.Snapshot
}

// IntentAPI is the subset of the backend client used by the orchestrator.
type IntentAPI interface {
	CreateTransferIntent(ctx context.Context, req swiftshopr.CreateTransferIntentRequest) (*swiftshopr.TransferIntent, error)
	CreateReceipt(ctx context.Context, req swiftshopr.CreateReceiptRequest) (*swiftshopr.Receipt, error)
}

// TransferFunc executes the on-chain transfer. The destination and amount
// must come from a verified intent.
type TransferFunc func(ctx context.Context, wallet evm.Wallet, network evm.Network, destination string, amount decimal.Decimal) (string, error)

// ConfirmationWaiter blocks until a payment is confirmed or terminally
// failed.
type ConfirmationWaiter interface {
	WaitForConfirmation(ctx context.Context, intentId, txHash string) PollResult
}

// Orchestrator is a finite-state machine sequencing a single client-side
// payment attempt. One live attempt state per instance.
type Orchestrator struct {
	log *logrus.Entry

	balances  BalanceSource
	api       IntentAPI
	wallet    evm.Wallet
	transfer  TransferFunc
	confirmer ConfirmationWaiter

	mu    sync.Mutex
	state State
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTransferFunc overrides how the on-chain transfer is executed.
func WithTransferFunc(transfer TransferFunc) Option {
	return func(o *Orchestrator) {
		o.transfer = transfer
	}
}

// WithConfirmationWaiter overrides how confirmation is awaited.
func WithConfirmationWaiter(confirmer ConfirmationWaiter) Option {
	return func(o *Orchestrator) {
		o.confirmer = confirmer
	}
}

// NewOrchestrator returns an idle orchestrator. The confirmation default
// polls the backend payment status by intent ID.
func NewOrchestrator(
	balances BalanceSource,
	api IntentAPI,
	statusApi StatusAPI,
	wallet evm.Wallet,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		log:       logrus.StandardLogger().WithField("type", "payment/orchestrator"),
		balances:  balances,
		api:       api,
		wallet:    wallet,
		transfer:  evm.TransferUsdc,
		confirmer: NewBackendConfirmation(NewStatusPoller(statusApi)),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// StartParams are the parameters for a payment attempt.
type StartParams struct {
	AmountUsd         decimal.Decimal
	StoreId           string
	OrderId           *string
	DestinationHint   *string
	UserWalletAddress string
	Network           evm.Network

	// RequireBalance gates the attempt on a wallet balance check. When the
	// balance is insufficient the attempt parks in awaiting_funds and no
	// intent is created.
	RequireBalance bool

	// ReceiptItems, when provided, cause a digital receipt to be generated
	// after a successful payment. Receipt failure never fails the payment.
	ReceiptItems []swiftshopr.LineItem

	// OnStatus, when provided, fires on every state transition.
	OnStatus func(Status)
}

// Start runs a payment attempt to completion. It never propagates a raw
// error or panic to its caller; every failure is mapped to the error state
// with a human-readable message.
func (o *Orchestrator) Start(ctx context.Context, params StartParams) (result Result) {
	tracer := metrics.TraceMethodCall(ctx, orchestratorMetricsStructName, "Start")
	defer tracer.End()

	// Attempt ID for log correlation across the state sequence
	log := o.log.WithFields(logrus.Fields{
		"attempt": uuid.New().String(),
		"store":   params.StoreId,
	})

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Warn("payment attempt panicked")
			result = o.toError(params, "", fmt.Sprintf("payment failed: %v", r))
		}
	}()

	o.transition(StatusSending, params.OnStatus, func(s *State) {
		s.Error = ""
		s.TxHash = ""
		s.IntentID = ""
	})

	if len(params.StoreId) == 0 {
		return o.toError(params, "", "storeId is required for payment tracking")
	}

	// 1. Check balance first, if required
	if params.RequireBalance {
		snapshot := o.balances.Fetch(ctx, params.UserWalletAddress, params.Network)
		if !snapshot.Success || snapshot.Amount.LessThan(params.AmountUsd) {
			o.transition(StatusAwaitingFunds, params.OnStatus, func(s *State) {
				s.Error = "insufficient USDC balance"
			})

			result := Result{
				Success: false,
				Reason:  ReasonInsufficientFunds,
				Error:   "insufficient USDC balance",
				Amount:  params.AmountUsd,
			}
			o.recordResult(result)
			return result
		}
	}

	// 2. Create the transfer intent before executing the transfer. This
	// enables payment tracking, webhook dispatch to the retailer POS, and
	// an audit trail.
	intent, err := o.api.CreateTransferIntent(ctx, swiftshopr.CreateTransferIntentRequest{
		StoreId:            params.StoreId,
		Amount:             params.AmountUsd,
		UserWalletAddress:  params.UserWalletAddress,
		OrderId:            params.OrderId,
		DestinationAddress: params.DestinationHint,
	})
	if err != nil {
		tracer.OnError(err)
		return o.toError(params, "", errors.Wrap(err, "failed to create payment intent").Error())
	}

	o.transition(StatusSending, params.OnStatus, func(s *State) {
		s.IntentID = intent.IntentID
	})

	// 3. Execute the transfer using the server-returned destination and
	// amount. Never the caller-supplied values: a compromised client must
	// not be able to redirect funds after a verified intent exists.
	txHash, err := o.transfer(
		ctx,
		o.wallet,
		evm.Network(intent.Transfer.Network),
		intent.Transfer.To,
		intent.Transfer.Amount,
	)
	if err != nil {
		tracer.OnError(err)
		// Preserve the intent ID for correlation
		return o.toError(params, intent.IntentID, errors.Wrap(err, "transfer failed").Error())
	}

	o.transition(StatusConfirming, params.OnStatus, func(s *State) {
		s.TxHash = txHash
	})

	// 4. Await confirmation
	pollResult := o.confirmer.WaitForConfirmation(ctx, intent.IntentID, txHash)
	switch pollResult.Outcome {
	case PollOutcomeSuccess:
	case PollOutcomeExpired:
		return o.toErrorWithReason(params, intent.IntentID, ReasonExpired, "payment intent expired")
	case PollOutcomeTimeout:
		return o.toErrorWithReason(params, intent.IntentID, ReasonTimeout, "payment confirmation timed out")
	default:
		return o.toError(params, intent.IntentID, fmt.Sprintf("payment not confirmed: %s", pollResult.Outcome))
	}

	o.transition(StatusSuccess, params.OnStatus, nil)

	result = Result{
		Success:  true,
		IntentID: intent.IntentID,
		OrderID:  pointer.StringCopy(intent.OrderID),
		TxHash:   txHash,
		Amount:   intent.Transfer.Amount,
	}

	// 5. Generate a receipt, when requested. Failure here is explicitly
	// non-fatal to the payment outcome.
	if len(params.ReceiptItems) > 0 {
		receipt, err := o.api.CreateReceipt(ctx, swiftshopr.CreateReceiptRequest{
			IntentId: intent.IntentID,
			StoreId:  params.StoreId,
			OrderId:  params.OrderId,
			Items:    params.ReceiptItems,
			Total:    params.AmountUsd,
		})
		if err != nil {
			log.WithError(err).WithField("intent", intent.IntentID).Warn("receipt generation failed")
		} else {
			result.Receipt = receipt
		}
	}

	o.recordResult(result)
	return result
}

// Reset returns the orchestrator to idle. Permitted from any state.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.state = State{Status: StatusIdle}
}

// State returns a copy of the current attempt state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.state
}

func (o *Orchestrator) transition(status Status, onStatus func(Status), update func(*State)) {
	o.mu.Lock()
	o.state.Status = status
	if update != nil {
		update(&o.state)
	}
	o.mu.Unlock()

	if onStatus != nil {
		onStatus(status)
	}
}

func (o *Orchestrator) recordResult(result Result) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.state.LastResult = &result
}

func (o *Orchestrator) toError(params StartParams, intentId, message string) Result {
	return o.toErrorWithReason(params, intentId, ReasonError, message)
}

func (o *Orchestrator) toErrorWithReason(params StartParams, intentId string, reason Reason, message string) Result {
	o.transition(StatusError, params.OnStatus, func(s *State) {
		s.Error = message
	})

	result := Result{
		Success:  false,
		Reason:   reason,
		Error:    message,
		IntentID: intentId,
		Amount:   params.AmountUsd,
	}
	o.recordResult(result)
	return result
}

// NewBackendConfirmation returns a ConfirmationWaiter that polls the backend
// payment status by intent ID.
func NewBackendConfirmation(poller *StatusPoller, opts ...PollOption) ConfirmationWaiter {
	return &backendConfirmation{
		poller: poller,
		opts:   opts,
	}
}

type backendConfirmation struct {
	poller *StatusPoller
	opts   []PollOption
}

func (c *backendConfirmation) WaitForConfirmation(ctx context.Context, intentId, txHash string) PollResult {
	opts := append([]PollOption{WithLookupBy("intent")}, c.opts...)
	return c.poller.Poll(ctx, intentId, opts...)
}
