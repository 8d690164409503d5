// Package balance provides a coalescing, time-bounded cache over on-chain
// USDC balance reads.
package balance

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/swiftshopr/sdk-go/pkg/currency"
	"github.com/swiftshopr/sdk-go/pkg/evm"
	"github.com/swiftshopr/sdk-go/pkg/metrics"
	"github.com/swiftshopr/sdk-go/pkg/usdc"
)

const (
	// MaxCacheAge is the hard expiry after which a snapshot is treated as
	// absent.
	MaxCacheAge = 5 * time.Minute

	// StaleThreshold is the soft freshness threshold after which a snapshot
	// is still served, but flagged stale so consumers can refresh
	// proactively.
	StaleThreshold = 2 * time.Minute

	metricsStructName = "balance.cache"
)

// Snapshot is the result of a balance read. Snapshots are immutable values;
// the cache overwrites the whole entry on each successful fetch.
type Snapshot struct {
	Success     bool
	Amount      decimal.Decimal
	Currency    string
	Chain       evm.Network
	LastUpdated time.Time

	// IsStale is derived on read and only meaningful on snapshots returned
	// from Cached.
	IsStale bool

	Error string
}

// Listener receives balance snapshots as fetches complete.
type Listener func(Snapshot)

type inflightFetch struct {
	done   chan struct{}
	result Snapshot
}

// Cache coalesces and caches balance reads with multi-endpoint failover.
// Construct one per service instance; there is no package-level state.
type Cache struct {
	log *logrus.Entry

	clientFactory     func(endpoint string) evm.Client
	endpointOverrides []string
	now               func() time.Time

	mu               sync.Mutex
	snapshot         *Snapshot
	inflight         *inflightFetch
	subscribers      map[uint64]Listener
	nextSubscriberID uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithRpcEndpoints overrides the default RPC endpoints for the fetch
// failover sequence.
func WithRpcEndpoints(endpoints []string) Option {
	return func(c *Cache) {
		c.endpointOverrides = endpoints
	}
}

// WithClientFactory overrides how RPC clients are constructed per endpoint.
func WithClientFactory(factory func(endpoint string) evm.Client) Option {
	return func(c *Cache) {
		c.clientFactory = factory
	}
}

func withTimeSource(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache returns a new balance cache.
func NewCache(opts ...Option) *Cache {
	c := &Cache{
		log:           logrus.StandardLogger().WithField("type", "balance/cache"),
		clientFactory: evm.NewClient,
		now:           time.Now,
		subscribers:   make(map[uint64]Listener),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch reads the USDC balance for the owner address on the network. It
// never returns an error; failures are reported inside the snapshot.
//
// A fetch that starts while another is in flight attaches to the pending
// result instead of issuing a second network sequence. The in-flight marker
// is registered under the lock, before any suspension point, so two
// concurrent callers cannot both observe "no in-flight request".
func (c *Cache) Fetch(ctx context.Context, owner string, network evm.Network) Snapshot {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Fetch")
	defer tracer.End()

	if !evm.IsValidAddress(owner) {
		return Snapshot{
			Success:     false,
			Amount:      decimal.Zero,
			Currency:    "USDC",
			Chain:       network,
			LastUpdated: c.now(),
			Error:       "invalid wallet address",
		}
	}

	c.mu.Lock()
	if existing := c.inflight; existing != nil {
		c.mu.Unlock()

		select {
		case <-existing.done:
			return existing.result
		case <-ctx.Done():
			return Snapshot{
				Success:     false,
				Amount:      decimal.Zero,
				Currency:    "USDC",
				Chain:       network,
				LastUpdated: c.now(),
				Error:       ctx.Err().Error(),
			}
		}
	}

	fetch := &inflightFetch{done: make(chan struct{})}
	c.inflight = fetch
	c.mu.Unlock()

	result := c.fetchFromEndpoints(ctx, owner, network)

	c.mu.Lock()
	if result.Success {
		snapshot := result
		c.snapshot = &snapshot
	}
	// A failed fetch leaves any previous snapshot untouched
	c.inflight = nil
	listeners := c.currentListeners()
	c.mu.Unlock()

	if result.Success {
		for _, listener := range listeners {
			c.notify(listener, result)
		}
	}

	fetch.result = result
	close(fetch.done)

	return result
}

func (c *Cache) fetchFromEndpoints(ctx context.Context, owner string, network evm.Network) Snapshot {
	networkConfig := evm.GetNetworkConfig(network)
	endpoints := evm.GetRpcEndpoints(network, c.endpointOverrides)

	token := common.HexToAddress(networkConfig.UsdcAddress)
	ownerAddress := common.HexToAddress(owner)

	for _, endpoint := range endpoints {
		client := c.clientFactory(endpoint)

		requestCtx, cancel := context.WithTimeout(ctx, evm.RequestTimeout)
		quarks, err := client.GetTokenBalance(requestCtx, token, ownerAddress)
		cancel()

		if err != nil {
			c.log.WithError(err).WithField("endpoint", endpoint).Debug("balance read failed, trying next endpoint")
			continue
		}

		return Snapshot{
			Success:     true,
			Amount:      usdc.FromQuarks(quarks),
			Currency:    "USDC",
			Chain:       network,
			LastUpdated: c.now(),
		}
	}

	return Snapshot{
		Success:     false,
		Amount:      decimal.Zero,
		Currency:    "USDC",
		Chain:       network,
		LastUpdated: c.now(),
		Error:       "all rpc endpoints failed",
	}
}

// Cached returns the last snapshot, if still within the hard expiry.
// Snapshots past the soft threshold are returned flagged stale.
func (c *Cache) Cached() (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snapshot == nil {
		return Snapshot{}, false
	}

	age := c.now().Sub(c.snapshot.LastUpdated)
	if age > MaxCacheAge {
		c.snapshot = nil
		return Snapshot{}, false
	}

	snapshot := *c.snapshot
	snapshot.IsStale = age > StaleThreshold
	return snapshot, true
}

// Invalidate clears the cached snapshot unconditionally.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snapshot = nil
}

// Subscribe registers a listener for balance updates and returns an
// unsubscribe function. If a valid snapshot exists, it is delivered to the
// listener immediately.
func (c *Cache) Subscribe(listener Listener) func() {
	if listener == nil {
		return func() {}
	}

	c.mu.Lock()
	id := c.nextSubscriberID
	c.nextSubscriberID++
	c.subscribers[id] = listener
	c.mu.Unlock()

	if snapshot, ok := c.Cached(); ok {
		c.notify(listener, snapshot)
	}

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		delete(c.subscribers, id)
	}
}

func (c *Cache) currentListeners() []Listener {
	listeners := make([]Listener, 0, len(c.subscribers))
	for _, listener := range c.subscribers {
		listeners = append(listeners, listener)
	}
	return listeners
}

// notify isolates listener panics so one bad subscriber cannot abort
// notification of the others.
func (c *Cache) notify(listener Listener, snapshot Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			c.log.WithField("panic", r).Warn("balance listener panicked")
		}
	}()

	listener(snapshot)
}

// FormattedAmount renders the balance for display (eg. "$12.50").
func (s Snapshot) FormattedAmount() string {
	return currency.FormatUSD(s.Amount)
}

// NeedsRefresh reports whether a snapshot's age warrants a fresh fetch.
func (s Snapshot) NeedsRefresh(now time.Time) bool {
	if s.LastUpdated.IsZero() {
		return true
	}
	return now.Sub(s.LastUpdated) >= MaxCacheAge
}
