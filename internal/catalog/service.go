package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/codesagecoder/digital-marketplace/internal/observability"
	"github.com/codesagecoder/digital-marketplace/internal/payments"
	"github.com/codesagecoder/digital-marketplace/internal/platform/httpx"
	"github.com/codesagecoder/digital-marketplace/internal/shared"
)

// Error classes surfaced by the lifecycle coordinator.
var (
	// ErrSync wraps a failed payment-catalog call; the local write is
	// rejected and nothing is persisted.
	ErrSync = httpx.ErrSync
	// ErrConsistency marks an update on a record that never went through
	// the create sync path (no external product id).
	ErrConsistency = httpx.ErrConsistency
)

type operation string

const (
	opCreate operation = "create"
	opUpdate operation = "update"
)

// OwnershipIndex appends a newly created product to its owner's
// denormalized list.
type OwnershipIndex interface {
	Reindex(ctx context.Context, userID, productID string) error
}

// Service coordinates the product lifecycle. Every write runs the same
// fixed-order pipeline: attribute, sync with the payment catalog, persist,
// and (on create) reindex the owner's product list.
type Service struct {
	logger  *slog.Logger
	repo    Repository
	catalog payments.CatalogClient
	index   OwnershipIndex
	metrics *observability.Metrics
	// Currency sent to the payment catalog on create.
	currency string
	now      func() time.Time
	newID    func() string
}

// NewService constructs the coordinator.
func NewService(logger *slog.Logger, repo Repository, catalog payments.CatalogClient, index OwnershipIndex, metrics *observability.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger:   logger,
		repo:     repo,
		catalog:  catalog,
		index:    index,
		metrics:  metrics,
		currency: "usd",
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// attribute stamps the owner onto the record from the requesting principal.
// Whatever owner value the caller supplied has already been discarded by the
// request types; attribution is unconditional and never fails.
func attribute(product Product, principal *shared.Principal) Product {
	product.UserID = principal.UserID
	return product
}

// syncExternal mirrors the record's name and price into the payment catalog
// before persistence. A create makes a fresh provider product; an update
// requires the record to already carry its external product id.
func (s *Service) syncExternal(ctx context.Context, op operation, product Product) (Product, error) {
	switch op {
	case opCreate:
		created, err := s.catalog.CreateProduct(ctx, product.Name, payments.MinorUnits(product.Price), s.currency)
		if err != nil {
			s.metrics.RecordCatalogSync(string(op), false)
			return Product{}, fmt.Errorf("%w: %v", ErrSync, err)
		}
		product.StripeID = created.ProductID
		product.PriceID = created.PriceID
		s.metrics.RecordCatalogSync(string(op), true)
	case opUpdate:
		if product.StripeID == "" {
			return Product{}, fmt.Errorf("%w: product %s", ErrConsistency, product.ID)
		}
		updated, err := s.catalog.UpdateProduct(ctx, product.StripeID, product.Name, product.PriceID)
		if err != nil {
			s.metrics.RecordCatalogSync(string(op), false)
			return Product{}, fmt.Errorf("%w: %v", ErrSync, err)
		}
		product.StripeID = updated.ProductID
		if updated.PriceID != "" {
			product.PriceID = updated.PriceID
		}
		s.metrics.RecordCatalogSync(string(op), true)
	}
	return product, nil
}

// reindexOwner runs after a committed create. The product write has already
// succeeded, so a failure here is logged and reported as a metric but never
// rolls the product back; the periodic rebuild job reconverges the list.
func (s *Service) reindexOwner(ctx context.Context, product Product) {
	if err := s.index.Reindex(ctx, product.UserID, product.ID); err != nil {
		s.metrics.RecordReindexFailure()
		s.logger.Warn("ownership reindex failed after product create",
			slog.String("product_id", product.ID),
			slog.String("user_id", product.UserID),
			slog.Any("error", err))
	}
}

// Create runs the full pipeline for a new product.
func (s *Service) Create(ctx context.Context, principal *shared.Principal, req CreateProductRequest) (*Product, error) {
	if principal == nil {
		return nil, httpx.ErrUnauthorized
	}
	category := Category(req.Category)
	if !category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", httpx.ErrValidation, req.Category)
	}

	now := s.now().UTC()
	product := Product{
		ID:              s.newID(),
		Name:            req.Name,
		Description:     req.Description,
		Price:           req.Price,
		Category:        category,
		ProductFileID:   req.ProductFileID,
		ImageIDs:        req.ImageIDs,
		ApprovedForSale: ApprovalPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	product = attribute(product, principal)

	product, err := s.syncExternal(ctx, opCreate, product)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Insert(ctx, product); err != nil {
		return nil, fmt.Errorf("catalog: persist product: %w", err)
	}

	s.reindexOwner(ctx, product)

	return &product, nil
}

// Get returns a single product the principal may read.
func (s *Service) Get(ctx context.Context, principal *shared.Principal, id string) (*Product, error) {
	decision := CanRead(principal)
	if err := requireAccess(decision, principal, id); err != nil {
		return nil, err
	}
	product, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return product, nil
}

// List returns the products the principal may read, intersected with the
// requested filters. Filtered principals never see records outside their
// owned id set.
func (s *Service) List(ctx context.Context, principal *shared.Principal, req ListProductsRequest) ([]Product, int, error) {
	decision := CanRead(principal)
	switch decision.Kind {
	case DecisionDeny:
		return nil, 0, httpx.ErrUnauthorized
	case DecisionAllowFiltered:
		req.IDs = decision.IDFilter()
		if len(req.IDs) == 0 {
			return []Product{}, 0, nil
		}
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 50
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	return s.repo.List(ctx, req)
}

// Update applies an authorized partial update, re-syncs the payment catalog
// and persists the result. The owner field never changes: attribution on
// update preserves the stored owner and ignores any caller-supplied value.
func (s *Service) Update(ctx context.Context, principal *shared.Principal, id string, req UpdateProductRequest) (*Product, error) {
	decision := CanUpdate(principal)
	if err := requireAccess(decision, principal, id); err != nil {
		return nil, err
	}

	if req.ApprovedForSale != nil && !FieldWritable(principal, FieldApprovedForSale) {
		return nil, fmt.Errorf("%w: field %s", httpx.ErrForbidden, FieldApprovedForSale)
	}

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}

	product := *existing
	if req.Name != nil {
		if *req.Name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", httpx.ErrValidation)
		}
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = req.Description
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Category != nil {
		category := Category(*req.Category)
		if !category.Valid() {
			return nil, fmt.Errorf("%w: unknown category %q", httpx.ErrValidation, *req.Category)
		}
		product.Category = category
	}
	if req.ProductFileID != nil {
		if *req.ProductFileID == "" {
			return nil, fmt.Errorf("%w: productFileId cannot be empty", httpx.ErrValidation)
		}
		product.ProductFileID = *req.ProductFileID
	}
	if req.ImageIDs != nil {
		product.ImageIDs = *req.ImageIDs
	}
	if req.ApprovedForSale != nil {
		status := ApprovalStatus(*req.ApprovedForSale)
		if !status.Valid() {
			return nil, fmt.Errorf("%w: unknown approval status %q", httpx.ErrValidation, *req.ApprovedForSale)
		}
		product.ApprovedForSale = status
	}
	product.UserID = existing.UserID
	product.UpdatedAt = s.now().UTC()

	product, err = s.syncExternal(ctx, opUpdate, product)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("catalog: persist product: %w", err)
	}
	return &product, nil
}

// Delete removes a product record the principal may delete. The external
// twin is left untouched; deletion is access-gated but outside the sync
// contract.
func (s *Service) Delete(ctx context.Context, principal *shared.Principal, id string) error {
	decision := CanDelete(principal)
	if err := requireAccess(decision, principal, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return httpx.ErrNotFound
		}
		return err
	}
	return nil
}

// requireAccess converts a per-record decision into an error. A denied or
// out-of-scope request learns nothing about whether the record exists.
func requireAccess(decision Decision, principal *shared.Principal, productID string) error {
	if decision.Kind == DecisionDeny {
		if principal == nil {
			return httpx.ErrUnauthorized
		}
		return httpx.ErrForbidden
	}
	if !decision.Allows(productID) {
		return httpx.ErrForbidden
	}
	return nil
}
