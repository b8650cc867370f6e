// Package ownership maintains the denormalized per-user list of owned
// product ids used for access filtering.
package ownership

import (
	"context"
	"fmt"

	"github.com/codesagecoder/digital-marketplace/internal/users"
)

// UserStore provides the user-record reads and writes the index needs.
type UserStore interface {
	Get(ctx context.Context, id string) (*users.User, error)
	SetProductRefs(ctx context.Context, id string, productIDs []string) error
}

// ProductStore resolves product ownership from the product records
// themselves; used to rebuild a user's list from scratch.
type ProductStore interface {
	IDsByOwner(ctx context.Context, userID string) ([]string, error)
}

// Index keeps each user's owned-product list deduplicated and current.
type Index struct {
	userStore    UserStore
	productStore ProductStore
}

// NewIndex constructs an Index.
func NewIndex(userStore UserStore, productStore ProductStore) *Index {
	return &Index{userStore: userStore, productStore: productStore}
}

// Dedup collapses duplicate ids (first occurrence wins, order otherwise
// preserved) and appends newID when not already present. Input references
// may carry either bare ids or embedded objects; both normalize through
// ProductRef. Idempotent: applying it twice with the same newID yields the
// same result.
func Dedup(refs []users.ProductRef, newID string) []string {
	seen := make(map[string]struct{}, len(refs)+1)
	result := make([]string, 0, len(refs)+1)
	for _, ref := range refs {
		id := ref.ID()
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	if newID != "" {
		if _, ok := seen[newID]; !ok {
			result = append(result, newID)
		}
	}
	return result
}

// Reindex reads the owning user's current list, appends productID and writes
// the deduplicated result back. This is a read-modify-write with no version
// check: two concurrent creations by the same user can race, and the later
// write wins. The periodic Rebuild job reconverges such lists.
func (ix *Index) Reindex(ctx context.Context, userID, productID string) error {
	user, err := ix.userStore.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("ownership: load user %s: %w", userID, err)
	}
	ids := Dedup(user.Products, productID)
	if err := ix.userStore.SetProductRefs(ctx, userID, ids); err != nil {
		return fmt.Errorf("ownership: write product list for %s: %w", userID, err)
	}
	return nil
}

// Rebuild recomputes the user's list directly from product ownership fields.
// Safe to run at any time; repeated runs converge to the same list.
func (ix *Index) Rebuild(ctx context.Context, userID string) error {
	ids, err := ix.productStore.IDsByOwner(ctx, userID)
	if err != nil {
		return fmt.Errorf("ownership: list products for %s: %w", userID, err)
	}
	if err := ix.userStore.SetProductRefs(ctx, userID, ids); err != nil {
		return fmt.Errorf("ownership: write product list for %s: %w", userID, err)
	}
	return nil
}
