package identity

import "stockflow/internal/model"

// MapRole converts the provider's public_metadata.role to a local role.
// Anything unrecognized, including an absent value, maps to VIEWER.
func MapRole(providerRole string) model.Role {
	switch providerRole {
	case "admin":
		return model.RoleAdmin
	case "staff":
		return model.RoleStaff
	default:
		return model.RoleViewer
	}
}
