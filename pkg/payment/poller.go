package payment

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/swiftshopr/sdk-go/pkg/metrics"
	"github.com/swiftshopr/sdk-go/pkg/swiftshopr"
)

const (
	DefaultPollInterval = 3 * time.Second
	DefaultPollTimeout  = 120 * time.Second

	pollerMetricsStructName = "payment.poller"

	// Backend payment status values
	statusCompleted = "completed"
	statusFailed    = "failed"
	statusCanceled  = "canceled"
)

// PollOutcome is the terminal result of a polling loop.
type PollOutcome string

const (
	// PollOutcomeSuccess indicates the payment completed.
	PollOutcomeSuccess PollOutcome = "success"

	// PollOutcomeFailed and PollOutcomeCanceled indicate the backend
	// reported a terminal failure.
	PollOutcomeFailed   PollOutcome = "failed"
	PollOutcomeCanceled PollOutcome = "canceled"

	// PollOutcomeExpired indicates the intent is no longer valid.
	PollOutcomeExpired PollOutcome = "expired"

	// PollOutcomeTimeout indicates polling exhausted its time budget with
	// the payment still pending.
	PollOutcomeTimeout PollOutcome = "timeout"

	// PollOutcomeAborted indicates the caller canceled the polling context
	// before the timeout elapsed.
	PollOutcomeAborted PollOutcome = "aborted"
)

// PollResult carries the outcome of a polling loop along with the last
// observed payment status, when one was observed.
type PollResult struct {
	Outcome PollOutcome
	Status  *swiftshopr.PaymentStatus
}

// StatusAPI is the subset of the backend client used for status polling.
type StatusAPI interface {
	GetPaymentStatus(ctx context.Context, id, by string) (*swiftshopr.PaymentStatus, error)
}

type pollConfig struct {
	interval time.Duration
	timeout  time.Duration
	by       string
	onChange func(*swiftshopr.PaymentStatus)
}

// PollOption configures a single polling loop.
type PollOption func(*pollConfig)

// WithPollInterval overrides the sleep between polls.
func WithPollInterval(interval time.Duration) PollOption {
	return func(c *pollConfig) {
		c.interval = interval
	}
}

// WithPollTimeout overrides the total time budget for the loop.
func WithPollTimeout(timeout time.Duration) PollOption {
	return func(c *pollConfig) {
		c.timeout = timeout
	}
}

// WithLookupBy sets the id interpretation ("intent" or "order") for status
// lookups.
func WithLookupBy(by string) PollOption {
	return func(c *pollConfig) {
		c.by = by
	}
}

// WithOnChange registers a callback fired when the observed status value
// changes between polls. It never fires twice for the same value.
func WithOnChange(onChange func(*swiftshopr.PaymentStatus)) PollOption {
	return func(c *pollConfig) {
		c.onChange = onChange
	}
}

// StatusPoller watches an asynchronous backend-confirmed payment to
// completion.
type StatusPoller struct {
	log    *logrus.Entry
	client StatusAPI
}

// NewStatusPoller returns a poller over the provided status API.
func NewStatusPoller(client StatusAPI) *StatusPoller {
	return &StatusPoller{
		log:    logrus.StandardLogger().WithField("type", "payment/poller"),
		client: client,
	}
}

// Poll repeatedly queries payment status until it reaches a terminal value,
// the intent expires, the time budget is exhausted, or the context is
// canceled.
//
// Transient status fetch errors are tolerated; the loop keeps polling until
// a terminal condition is observed or time runs out.
func (p *StatusPoller) Poll(ctx context.Context, id string, opts ...PollOption) PollResult {
	tracer := metrics.TraceMethodCall(ctx, pollerMetricsStructName, "Poll")
	defer tracer.End()

	config := pollConfig{
		interval: DefaultPollInterval,
		timeout:  DefaultPollTimeout,
	}
	for _, opt := range opts {
		opt(&config)
	}

	deadline := time.Now().Add(config.timeout)
	var lastStatusValue string
	var lastObserved *swiftshopr.PaymentStatus

	for time.Now().Before(deadline) {
		status, err := p.client.GetPaymentStatus(ctx, id, config.by)
		if err != nil {
			p.log.WithError(err).WithField("id", id).Debug("status poll failed")
		} else {
			lastObserved = status

			if status.Status != lastStatusValue {
				lastStatusValue = status.Status
				if config.onChange != nil {
					config.onChange(status)
				}
			}

			switch {
			case status.Status == statusCompleted:
				return PollResult{Outcome: PollOutcomeSuccess, Status: status}
			case status.Status == statusFailed:
				return PollResult{Outcome: PollOutcomeFailed, Status: status}
			case status.Status == statusCanceled:
				return PollResult{Outcome: PollOutcomeCanceled, Status: status}
			case status.IsExpired:
				return PollResult{Outcome: PollOutcomeExpired, Status: status}
			}
		}

		// The sleep is the single suspension point per iteration, and the
		// point at which caller cancellation is observed.
		select {
		case <-ctx.Done():
			return PollResult{Outcome: PollOutcomeAborted, Status: lastObserved}
		case <-time.After(config.interval):
		}
	}

	return PollResult{Outcome: PollOutcomeTimeout, Status: lastObserved}
}
