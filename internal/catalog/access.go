package catalog

import (
	"github.com/codesagecoder/digital-marketplace/internal/shared"
)

// DecisionKind enumerates the possible access outcomes.
type DecisionKind int

const (
	// DecisionDeny rejects the request outright.
	DecisionDeny DecisionKind = iota
	// DecisionAllowAll grants unrestricted access.
	DecisionAllowAll
	// DecisionAllowFiltered grants access to an explicit id set.
	DecisionAllowFiltered
)

// Decision is the output of access evaluation. For filtered decisions the
// caller intersects the requested record set with OwnedIDs instead of
// invoking per-record logic, so one decision covers a whole batch read.
type Decision struct {
	Kind     DecisionKind
	OwnedIDs map[string]struct{}
}

// Allows reports whether the decision permits acting on the given product.
func (d Decision) Allows(productID string) bool {
	switch d.Kind {
	case DecisionAllowAll:
		return true
	case DecisionAllowFiltered:
		_, ok := d.OwnedIDs[productID]
		return ok
	}
	return false
}

// IDFilter returns the id set of a filtered decision as a slice, nil for
// unfiltered decisions.
func (d Decision) IDFilter() []string {
	if d.Kind != DecisionAllowFiltered {
		return nil
	}
	ids := make([]string, 0, len(d.OwnedIDs))
	for id := range d.OwnedIDs {
		ids = append(ids, id)
	}
	return ids
}

// Evaluate decides whether the principal may act on products. No principal
// denies; admins see everything; everyone else is scoped to the products
// they own. Read, update and delete share this exact policy.
func Evaluate(principal *shared.Principal) Decision {
	if principal == nil {
		return Decision{Kind: DecisionDeny}
	}
	if principal.IsAdmin() {
		return Decision{Kind: DecisionAllowAll}
	}
	owned := make(map[string]struct{}, len(principal.ProductIDs))
	for _, id := range principal.ProductIDs {
		if id == "" {
			continue
		}
		owned[id] = struct{}{}
	}
	return Decision{Kind: DecisionAllowFiltered, OwnedIDs: owned}
}

// CanRead evaluates read access.
func CanRead(principal *shared.Principal) Decision { return Evaluate(principal) }

// CanUpdate evaluates update access.
func CanUpdate(principal *shared.Principal) Decision { return Evaluate(principal) }

// CanDelete evaluates delete access.
func CanDelete(principal *shared.Principal) Decision { return Evaluate(principal) }
