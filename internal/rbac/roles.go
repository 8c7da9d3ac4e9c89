package rbac

// Role names. Keep these stable; they are part of the dashboard auth contract.
const (
	RoleOwner      = "owner"
	RoleAnalyst    = "analyst"
	RoleSuperAdmin = "super_admin"
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }
