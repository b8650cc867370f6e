package shared

// Role identifies the access level of an account.
type Role string

const (
	// RoleAdmin grants unrestricted access to every product and every field.
	RoleAdmin Role = "admin"
	// RoleUser is the default role for ordinary sellers.
	RoleUser Role = "user"
)

// Principal is the authenticated identity making a request. It is threaded
// explicitly through every operation that needs it; there is no ambient
// current-user state.
type Principal struct {
	UserID string
	Role   Role
	// ProductIDs holds the ids of products the principal owns, already
	// normalized to bare identifiers.
	ProductIDs []string
}

// IsAdmin reports whether the principal carries the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}
