// Package product provides a TTL cache over backend product lookups.
package product

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/swiftshopr/sdk-go/pkg/metrics"
	"github.com/swiftshopr/sdk-go/pkg/swiftshopr"
)

const (
	// DefaultTTL is the maximum age at which a cached product is still
	// served.
	DefaultTTL = 5 * time.Minute

	metricsStructName = "product.cache"
)

// API is the subset of the backend client used for product lookups.
type API interface {
	LookupProduct(ctx context.Context, barcode, storeId string) (*swiftshopr.Product, error)
}

type cachedProduct struct {
	product  *swiftshopr.Product
	cachedAt time.Time
}

// Cache is a read-through product lookup cache keyed by (store, barcode).
// Expiry is checked lazily on read; expired entries are treated as misses
// and evicted.
type Cache struct {
	log    *logrus.Entry
	client API
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]cachedProduct
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides the default cache TTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

func withTimeSource(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache returns a product cache backed by the provided API client.
func NewCache(client API, opts ...Option) *Cache {
	c := &Cache{
		log:     logrus.StandardLogger().WithField("type", "product/cache"),
		client:  client,
		ttl:     DefaultTTL,
		now:     time.Now,
		entries: make(map[string]cachedProduct),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup resolves a barcode to a product for a store. A nil product with a
// nil error means the product isn't known to the backend. When useCache is
// false the cache is bypassed for the read, but a successful result is still
// stored.
func (c *Cache) Lookup(ctx context.Context, barcode, storeId string, useCache bool) (*swiftshopr.Product, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Lookup")
	defer tracer.End()

	key := cacheKey(storeId, barcode)

	if useCache {
		if product, ok := c.getCached(key); ok {
			return product, nil
		}
	}

	product, err := c.client.LookupProduct(ctx, barcode, storeId)
	if err != nil {
		tracer.OnError(err)
		return nil, err
	}

	if product != nil {
		c.mu.Lock()
		c.entries[key] = cachedProduct{
			product:  product,
			cachedAt: c.now(),
		}
		c.mu.Unlock()
	}

	return product, nil
}

// LookupMany issues independent lookups in parallel. A failed or unknown
// lookup maps to a nil entry in the result; the batch never aborts.
func (c *Cache) LookupMany(ctx context.Context, barcodes []string, storeId string) map[string]*swiftshopr.Product {
	results := make(map[string]*swiftshopr.Product, len(barcodes))
	if len(barcodes) == 0 {
		return results
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, barcode := range barcodes {
		wg.Add(1)
		go func(barcode string) {
			defer wg.Done()

			product, err := c.Lookup(ctx, barcode, storeId, true)
			if err != nil {
				c.log.WithError(err).WithField("barcode", barcode).Debug("product lookup failed")
				product = nil
			}

			mu.Lock()
			results[barcode] = product
			mu.Unlock()
		}(barcode)
	}
	wg.Wait()

	return results
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]cachedProduct)
}

func (c *Cache) getCached(key string) (*swiftshopr.Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	if c.now().Sub(entry.cachedAt) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}

	return entry.product, true
}

func cacheKey(storeId, barcode string) string {
	return fmt.Sprintf("%s:%s", storeId, barcode)
}
