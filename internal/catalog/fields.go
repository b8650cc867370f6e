package catalog

import (
	"github.com/codesagecoder/digital-marketplace/internal/shared"
)

// Wire names of fields with restricted access.
const (
	FieldApprovedForSale = "approvedForSale"
	FieldStripeID        = "stripeId"
	FieldPriceID         = "priceId"
)

// restrictedFields maps a field name to the role required to read or write
// it. Fields absent from the table follow the record-level decision only.
var restrictedFields = map[string]shared.Role{
	FieldApprovedForSale: shared.RoleAdmin,
	FieldStripeID:        shared.RoleAdmin,
	FieldPriceID:         shared.RoleAdmin,
}

// FieldVisible reports whether the principal may read the named field.
func FieldVisible(principal *shared.Principal, field string) bool {
	required, restricted := restrictedFields[field]
	if !restricted {
		return true
	}
	return principal != nil && principal.Role == required
}

// FieldWritable reports whether the principal may set the named field.
// Restricted fields share one read/write rule.
func FieldWritable(principal *shared.Principal, field string) bool {
	return FieldVisible(principal, field)
}
