// Package catalog implements the product lifecycle core: attribution,
// payment-catalog synchronization, ownership indexing and access policy.
package catalog

import (
	"time"
)

// ApprovalStatus tracks admin review of a listed product.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalDenied   ApprovalStatus = "denied"
)

// Valid reports whether the status is one of the known values.
func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalDenied:
		return true
	}
	return false
}

// Category is the fixed set of product categories.
type Category string

const (
	CategoryUIKits Category = "ui_kits"
	CategoryIcons  Category = "icons"
)

// Valid reports whether the category is one of the known values.
func (c Category) Valid() bool {
	switch c {
	case CategoryUIKits, CategoryIcons:
		return true
	}
	return false
}

// Product is the primary record. StripeID and PriceID are either both empty
// (never synced) or both set and consistent with the last synced name and
// price. UserID is derived from the requesting principal at creation and
// never changes afterwards.
type Product struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user"`
	Name            string         `json:"name"`
	Description     *string        `json:"description,omitempty"`
	Price           float64        `json:"price"`
	Category        Category       `json:"category"`
	ProductFileID   string         `json:"productFileId"`
	ImageIDs        []string       `json:"imageIds"`
	ApprovedForSale ApprovalStatus `json:"approvedForSale"`
	StripeID        string         `json:"stripeId"`
	PriceID         string         `json:"priceId"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// Synced reports whether the record already has its payment-catalog twin.
func (p *Product) Synced() bool {
	return p.StripeID != "" && p.PriceID != ""
}

// CreateProductRequest is the payload for creating a product. Any owner
// value a caller supplies is ignored; attribution always comes from the
// requesting principal.
type CreateProductRequest struct {
	Name          string   `json:"name" validate:"required,max=200"`
	Description   *string  `json:"description,omitempty"`
	Price         float64  `json:"price" validate:"gte=0,lte=1000"`
	Category      string   `json:"category" validate:"required"`
	ProductFileID string   `json:"productFileId" validate:"required"`
	ImageIDs      []string `json:"imageIds" validate:"required,min=1,max=4,dive,required"`
	Owner         string   `json:"user,omitempty"`
}

// UpdateProductRequest is the payload for updating a product. Nil fields are
// left unchanged. ApprovedForSale is accepted only from admin principals;
// Owner is always ignored.
type UpdateProductRequest struct {
	Name            *string   `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description     *string   `json:"description,omitempty"`
	Price           *float64  `json:"price,omitempty" validate:"omitempty,gte=0,lte=1000"`
	Category        *string   `json:"category,omitempty"`
	ProductFileID   *string   `json:"productFileId,omitempty" validate:"omitempty,min=1"`
	ImageIDs        *[]string `json:"imageIds,omitempty" validate:"omitempty,min=1,max=4,dive,required"`
	ApprovedForSale *string   `json:"approvedForSale,omitempty"`
	Owner           string    `json:"user,omitempty"`
}

// ListProductsRequest filters a product listing.
type ListProductsRequest struct {
	Category *Category
	Approved *ApprovalStatus
	// IDs restricts the listing to the given id set; used to apply
	// filtered access decisions as a batch intersection.
	IDs    []string
	Limit  int `validate:"gte=0,lte=100"`
	Offset int `validate:"gte=0"`
}
