package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// StripeClient talks to the Stripe products API over its form-encoded REST
// surface. Only product and price creation/update are used; checkout and
// webhooks are handled elsewhere.
type StripeClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewStripeClient constructs a client for the given API base URL and secret
// key. Pass "https://api.stripe.com" outside of tests.
func NewStripeClient(baseURL, apiKey string) *StripeClient {
	return &StripeClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type stripeProduct struct {
	ID           string          `json:"id"`
	DefaultPrice json.RawMessage `json:"default_price"`
}

type stripeError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// CreateProduct creates a product with an attached default price.
func (c *StripeClient) CreateProduct(ctx context.Context, name string, unitAmountMinor int64, currency string) (CatalogProduct, error) {
	form := url.Values{}
	form.Set("name", name)
	form.Set("default_price_data[currency]", currency)
	form.Set("default_price_data[unit_amount]", strconv.FormatInt(unitAmountMinor, 10))

	product, err := c.do(ctx, "/v1/products", form)
	if err != nil {
		return CatalogProduct{}, err
	}
	return product, nil
}

// UpdateProduct renames an existing product and re-attaches its default
// price.
func (c *StripeClient) UpdateProduct(ctx context.Context, productID, name, defaultPriceID string) (CatalogProduct, error) {
	form := url.Values{}
	form.Set("name", name)
	form.Set("default_price", defaultPriceID)

	product, err := c.do(ctx, "/v1/products/"+url.PathEscape(productID), form)
	if err != nil {
		return CatalogProduct{}, err
	}
	return product, nil
}

func (c *StripeClient) do(ctx context.Context, path string, form url.Values) (CatalogProduct, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return CatalogProduct{}, fmt.Errorf("payments: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return CatalogProduct{}, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return CatalogProduct{}, fmt.Errorf("%w: read response: %v", ErrProvider, err)
	}

	if resp.StatusCode >= 400 {
		var apiErr stripeError
		if jsonErr := json.Unmarshal(body, &apiErr); jsonErr == nil && apiErr.Error.Message != "" {
			return CatalogProduct{}, fmt.Errorf("%w: %s", ErrProvider, apiErr.Error.Message)
		}
		return CatalogProduct{}, fmt.Errorf("%w: status %d", ErrProvider, resp.StatusCode)
	}

	var product stripeProduct
	if err := json.Unmarshal(body, &product); err != nil {
		return CatalogProduct{}, fmt.Errorf("%w: decode response: %v", ErrProvider, err)
	}

	priceID, err := decodeDefaultPrice(product.DefaultPrice)
	if err != nil {
		return CatalogProduct{}, err
	}
	return CatalogProduct{ProductID: product.ID, PriceID: priceID}, nil
}

// decodeDefaultPrice handles the two shapes Stripe returns for
// default_price: a bare price id string, or an expanded price object.
func decodeDefaultPrice(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id, nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", fmt.Errorf("%w: unexpected default_price shape", ErrProvider)
	}
	return obj.ID, nil
}
