package payments

import (
	"context"
	"time"
)

// RetryClient wraps a CatalogClient with a bounded retry. The lifecycle
// coordinator itself never retries; callers that want resilience opt in by
// wrapping the client, and the coordinator still observes a single logical
// call.
type RetryClient struct {
	inner    CatalogClient
	attempts int
	backoff  time.Duration
}

// NewRetryClient builds a retrying wrapper. attempts includes the first try.
func NewRetryClient(inner CatalogClient, attempts int, backoff time.Duration) *RetryClient {
	if attempts < 1 {
		attempts = 1
	}
	return &RetryClient{inner: inner, attempts: attempts, backoff: backoff}
}

// CreateProduct retries the inner create until it succeeds or attempts are
// exhausted.
func (c *RetryClient) CreateProduct(ctx context.Context, name string, unitAmountMinor int64, currency string) (CatalogProduct, error) {
	var product CatalogProduct
	err := c.retry(ctx, func() error {
		var innerErr error
		product, innerErr = c.inner.CreateProduct(ctx, name, unitAmountMinor, currency)
		return innerErr
	})
	return product, err
}

// UpdateProduct retries the inner update until it succeeds or attempts are
// exhausted.
func (c *RetryClient) UpdateProduct(ctx context.Context, productID, name, defaultPriceID string) (CatalogProduct, error) {
	var product CatalogProduct
	err := c.retry(ctx, func() error {
		var innerErr error
		product, innerErr = c.inner.UpdateProduct(ctx, productID, name, defaultPriceID)
		return innerErr
	})
	return product, err
}

func (c *RetryClient) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for i := 0; i < c.attempts; i++ {
		if i > 0 && c.backoff > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff):
			}
		}
		if lastErr = fn(); lastErr == nil {
			return nil
		}
	}
	return lastErr
}

var _ CatalogClient = (*StripeClient)(nil)
var _ CatalogClient = (*RetryClient)(nil)
