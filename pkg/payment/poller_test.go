package payment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftshopr/sdk-go/pkg/swiftshopr"
)

type scriptedStatusAPI struct {
	mu       sync.Mutex
	script   []interface{} // *swiftshopr.PaymentStatus or error
	calls    int
	lastBy   string
	fallback *swiftshopr.PaymentStatus
}

func (a *scriptedStatusAPI) GetPaymentStatus(_ context.Context, _, by string) (*swiftshopr.PaymentStatus, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.calls++
	a.lastBy = by

	if len(a.script) > 0 {
		next := a.script[0]
		a.script = a.script[1:]
		if err, ok := next.(error); ok {
			return nil, err
		}
		return next.(*swiftshopr.PaymentStatus), nil
	}

	if a.fallback != nil {
		return a.fallback, nil
	}
	return &swiftshopr.PaymentStatus{IntentID: "intent1", Status: "pending"}, nil
}

func (a *scriptedStatusAPI) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.calls
}

func pending() *swiftshopr.PaymentStatus {
	return &swiftshopr.PaymentStatus{IntentID: "intent1", Status: "pending"}
}

func terminal(status string) *swiftshopr.PaymentStatus {
	return &swiftshopr.PaymentStatus{IntentID: "intent1", Status: status}
}

func TestStatusPoller_Completed(t *testing.T) {
	api := &scriptedStatusAPI{script: []interface{}{
		pending(),
		terminal(statusCompleted),
	}}

	result := NewStatusPoller(api).Poll(
		context.Background(),
		"intent1",
		WithPollInterval(time.Millisecond),
		WithLookupBy("intent"),
	)

	assert.Equal(t, PollOutcomeSuccess, result.Outcome)
	require.NotNil(t, result.Status)
	assert.Equal(t, statusCompleted, result.Status.Status)
	assert.Equal(t, 2, api.callCount())
	assert.Equal(t, "intent", api.lastBy)
}

func TestStatusPoller_TerminalFailures(t *testing.T) {
	for _, tc := range []struct {
		status  string
		outcome PollOutcome
	}{
		{statusFailed, PollOutcomeFailed},
		{statusCanceled, PollOutcomeCanceled},
	} {
		api := &scriptedStatusAPI{script: []interface{}{terminal(tc.status)}}

		result := NewStatusPoller(api).Poll(
			context.Background(),
			"intent1",
			WithPollInterval(time.Millisecond),
		)
		assert.Equal(t, tc.outcome, result.Outcome)
	}
}

func TestStatusPoller_Expired(t *testing.T) {
	expired := pending()
	expired.IsExpired = true

	api := &scriptedStatusAPI{script: []interface{}{expired}}

	result := NewStatusPoller(api).Poll(
		context.Background(),
		"intent1",
		WithPollInterval(time.Millisecond),
	)
	assert.Equal(t, PollOutcomeExpired, result.Outcome)
}

func TestStatusPoller_Timeout(t *testing.T) {
	api := &scriptedStatusAPI{}

	var changes int
	result := NewStatusPoller(api).Poll(
		context.Background(),
		"intent1",
		WithPollInterval(time.Millisecond),
		WithPollTimeout(50*time.Millisecond),
		WithOnChange(func(*swiftshopr.PaymentStatus) {
			changes++
		}),
	)

	assert.Equal(t, PollOutcomeTimeout, result.Outcome)
	require.NotNil(t, result.Status)
	assert.Equal(t, "pending", result.Status.Status)
	assert.True(t, api.callCount() > 1)

	// Only the initial pending observation fires onChange
	assert.Equal(t, 1, changes)
}

func TestStatusPoller_ToleratesTransientErrors(t *testing.T) {
	api := &scriptedStatusAPI{script: []interface{}{
		errors.New("network blip"),
		errors.New("network blip"),
		terminal(statusCompleted),
	}}

	result := NewStatusPoller(api).Poll(
		context.Background(),
		"intent1",
		WithPollInterval(time.Millisecond),
	)
	assert.Equal(t, PollOutcomeSuccess, result.Outcome)
}

func TestStatusPoller_OnChangeFiresOncePerValue(t *testing.T) {
	api := &scriptedStatusAPI{script: []interface{}{
		pending(),
		pending(),
		terminal("processing"),
		terminal("processing"),
		terminal(statusCompleted),
	}}

	var observed []string
	result := NewStatusPoller(api).Poll(
		context.Background(),
		"intent1",
		WithPollInterval(time.Millisecond),
		WithOnChange(func(status *swiftshopr.PaymentStatus) {
			observed = append(observed, status.Status)
		}),
	)

	assert.Equal(t, PollOutcomeSuccess, result.Outcome)
	assert.Equal(t, []string{"pending", "processing", statusCompleted}, observed)
}

func TestStatusPoller_ContextCancellation(t *testing.T) {
	api := &scriptedStatusAPI{}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	result := NewStatusPoller(api).Poll(
		ctx,
		"intent1",
		WithPollInterval(time.Hour),
		WithPollTimeout(time.Hour),
	)

	assert.Equal(t, PollOutcomeAborted, result.Outcome)
	require.NotNil(t, result.Status)
	assert.Equal(t, "pending", result.Status.Status)
}
