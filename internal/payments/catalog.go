// Package payments integrates with the external payment provider's product
// and price catalog.
package payments

import (
	"context"
	"errors"
	"math"
)

// ErrProvider indicates the payment provider rejected or failed a call.
var ErrProvider = errors.New("payment provider error")

// CatalogProduct holds the identifiers of the provider-side twin of a local
// product record.
type CatalogProduct struct {
	ProductID string
	PriceID   string
}

// CatalogClient creates and updates priced product resources in the external
// payment catalog. Both calls are synchronous; a returned error means the
// provider never confirmed the requested state.
type CatalogClient interface {
	CreateProduct(ctx context.Context, name string, unitAmountMinor int64, currency string) (CatalogProduct, error)
	UpdateProduct(ctx context.Context, productID, name, defaultPriceID string) (CatalogProduct, error)
}

// MinorUnits converts a decimal currency amount into the integer minor-unit
// representation the provider requires (e.g. 19.99 -> 1999). Rounding is
// half-away-from-zero; this affects externally charged prices, so every
// caller must go through this function.
func MinorUnits(price float64) int64 {
	return int64(math.Round(price * 100))
}
