package users

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/codesagecoder/digital-marketplace/internal/shared"
)

// User represents a marketplace account.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         shared.Role
	// Products is the denormalized list of product ids the user owns. The
	// record store may hand the entries back either as bare ids or as
	// embedded objects; ProductRef normalizes both shapes.
	Products  []ProductRef
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProductRef is a reference to a product that may have been stored either as
// a bare id string or as an embedded object carrying an "id" field. All
// internal logic works with the bare id via ID().
type ProductRef struct {
	id string
}

// NewProductRef builds a reference from a bare product id.
func NewProductRef(id string) ProductRef {
	return ProductRef{id: id}
}

// ID returns the canonical bare product id.
func (r ProductRef) ID() string {
	return r.id
}

// UnmarshalJSON accepts either "abc123" or {"id": "abc123", ...}.
func (r *ProductRef) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		r.id = id
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("users: product reference has unsupported shape: %w", err)
	}
	r.id = obj.ID
	return nil
}

// MarshalJSON always writes the canonical bare id form.
func (r ProductRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.id)
}

// RefIDs collapses a list of references into bare ids.
func RefIDs(refs []ProductRef) []string {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.ID())
	}
	return ids
}
