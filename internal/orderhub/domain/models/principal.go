package models

// Role of a resolved principal.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleKitchen  Role = "kitchen"
	RoleWaiter   Role = "waiter"
	RoleCashier  Role = "cashier"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// StaffLoginRole reports whether the role can be claimed through a QR shift
// login. Managers and admins authenticate with passwords instead.
func StaffLoginRole(r Role) bool {
	return r == RoleKitchen || r == RoleWaiter || r == RoleCashier
}

func (r Role) Managerial() bool {
	return r == RoleManager || r == RoleAdmin
}

// Principal is the authenticated result of resolving a credential. Every
// mutation is authorized against one of these.
type Principal struct {
	ActorID      string `json:"actor_id"`
	Name         string `json:"name,omitempty"`
	Role         Role   `json:"role"`
	RestaurantID string `json:"restaurant_id"`
	// TableID and SessionID are set for customer principals only.
	TableID   string `json:"table_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	// ShiftID is set for shift-scoped staff principals only.
	ShiftID string `json:"shift_id,omitempty"`
	OnDuty  bool   `json:"on_duty"`
}
