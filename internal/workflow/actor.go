package workflow

import (
	"backend/internal/model"

	"github.com/google/uuid"
)

// Capability codes checked by the authorization rule table. These match the
// permission codes seeded into the roles/permissions tables.
const (
	CapRequestCreate     = "requests.create"
	CapRequestUpdate     = "requests.update"
	CapRequestDelete     = "requests.delete"
	CapRequestSubmit     = "requests.submit"
	CapApproveDM         = "requests.approve_dm"
	CapApproveAccountant = "requests.approve_accountant"
	CapApproveFinal      = "requests.approve_final"
	CapTransferFunds     = "requests.transfer"
	CapRejectRequest     = "requests.reject"
	CapReturnRequest     = "requests.return"
	CapQuoteManage       = "quotes.manage"
	CapQuoteRead         = "quotes.read"
)

// Actor is the identity the core authorizes against. Role and permission
// resolution happens upstream (JWT claims + role tables); the core only
// sees the resolved sets.
type Actor struct {
	ID          uuid.UUID
	Roles       map[string]bool
	Permissions map[string]bool
	ManagerOf   map[uuid.UUID]bool
}

// NewActor builds an Actor from resolved role/permission/report data.
func NewActor(id uuid.UUID, roles []string, permissions []string, managerOf []uuid.UUID) Actor {
	a := Actor{
		ID:          id,
		Roles:       make(map[string]bool, len(roles)),
		Permissions: make(map[string]bool, len(permissions)),
		ManagerOf:   make(map[uuid.UUID]bool, len(managerOf)),
	}
	for _, r := range roles {
		a.Roles[r] = true
	}
	for _, p := range permissions {
		a.Permissions[p] = true
	}
	for _, u := range managerOf {
		a.ManagerOf[u] = true
	}
	return a
}

func (a Actor) HasRole(role string) bool {
	return a.Roles[role]
}

func (a Actor) HasCapability(code string) bool {
	return a.Permissions[code]
}

// IsAdmin reports whether the actor bypasses all stage-specific checks.
func (a Actor) IsAdmin() bool {
	return a.Roles[model.RoleAdmin]
}

// Manages reports whether userID reports directly to this actor.
func (a Actor) Manages(userID uuid.UUID) bool {
	return a.ManagerOf[userID]
}
