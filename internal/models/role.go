package models

// Role controls what a user may do. Raffle management requires Admin or
// SuperAdmin; SuperAdmin additionally manages users and sees every raffle.
type Role string

const (
	RolePublic     Role = "public"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

func (r Role) Valid() bool {
	switch r {
	case RolePublic, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// CanManageRaffles reports whether the role may create raffles and act on
// purchases at all. Ownership checks are applied separately.
func (r Role) CanManageRaffles() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// UserStatus gates account access. Self-registered admins start Pending
// until a superadmin approves them.
type UserStatus string

const (
	UserActive    UserStatus = "active"
	UserSuspended UserStatus = "suspended"
	UserPending   UserStatus = "pending"
)
