package payment

import (
	"context"
	"time"

	"github.com/swiftshopr/sdk-go/pkg/evm"
)

// NewChainConfirmation returns a ConfirmationWaiter that polls the chain
// directly for the transaction receipt instead of the backend. Useful when
// the backend webhook pipeline is degraded.
func NewChainConfirmation(client evm.Client, interval, timeout time.Duration) ConfirmationWaiter {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}

	return &chainConfirmation{
		client:   client,
		interval: interval,
		timeout:  timeout,
	}
}

type chainConfirmation struct {
	client   evm.Client
	interval time.Duration
	timeout  time.Duration
}

func (c *chainConfirmation) WaitForConfirmation(ctx context.Context, intentId, txHash string) PollResult {
	deadline := time.Now().Add(c.timeout)

	for time.Now().Before(deadline) {
		confirmed, err := c.client.GetTransactionConfirmed(ctx, txHash)
		if err == nil {
			if confirmed {
				return PollResult{Outcome: PollOutcomeSuccess}
			}
			// A mined transaction with a failed status is terminal
			return PollResult{Outcome: PollOutcomeFailed}
		}
		// ErrReceiptNotFound means the transaction is still pending. Any
		// other error is treated as transient; the deadline bounds it.

		select {
		case <-ctx.Done():
			return PollResult{Outcome: PollOutcomeAborted}
		case <-time.After(c.interval):
		}
	}

	return PollResult{Outcome: PollOutcomeTimeout}
}
