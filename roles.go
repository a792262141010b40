package auth

// RoleCode identifies a role an account holds
type RoleCode = string

const (
	// RoleCustomer is the default storefront role
	RoleCustomer RoleCode = "customer"
	// RoleSupport can view and act on customer data
	RoleSupport RoleCode = "support"
	// RoleAdmin manages catalog, orders, and users
	RoleAdmin RoleCode = "admin"
	// RoleOwner has unrestricted access
	RoleOwner RoleCode = "owner"
)

// DefaultRole is assigned to every newly registered account
const DefaultRole = RoleCustomer

// IsValidRole checks if the role is one of the predefined valid roles
func IsValidRole(role RoleCode) bool {
	switch role {
	case RoleCustomer, RoleSupport, RoleAdmin, RoleOwner:
		return true
	default:
		return false
	}
}

// ParseRole safely parses a string into a RoleCode
func ParseRole(roleStr string) (RoleCode, bool) {
	role := RoleCode(roleStr)
	return role, IsValidRole(role)
}

// RoleIsAtLeast reports whether role meets the minimum required level
func RoleIsAtLeast(role, minRole RoleCode) bool {
	roleHierarchy := map[RoleCode]int{
		RoleCustomer: 0,
		RoleSupport:  1,
		RoleAdmin:    2,
		RoleOwner:    3,
	}

	currentLevel, exists := roleHierarchy[role]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// RolesInclude reports whether the role set carries the given code
func RolesInclude(roles []RoleCode, code RoleCode) bool {
	for _, r := range roles {
		if r == code {
			return true
		}
	}
	return false
}

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []RoleCode {
	return []RoleCode{
		RoleCustomer,
		RoleSupport,
		RoleAdmin,
		RoleOwner,
	}
}
