package workflow

import (
	"backend/internal/model"
)

// rule describes one row of the authorization matrix: from which statuses an
// action may fire, the capability it needs, and the relationship the actor
// must hold to the request. Admin-equivalent actors skip capability and
// relationship checks but never the status gate.
type rule struct {
	sources    []Status
	capability string
	relation   func(a Actor, req *model.Request) bool
}

func isOwner(a Actor, req *model.Request) bool {
	return a.ID == req.RequesterID
}

// stageActor matches the actor against the role whose stage the request
// currently sits in: direct manager at SUBMITTED, accountant through the
// quoting phase, final manager afterwards.
func stageActor(a Actor, req *model.Request) bool {
	switch Status(req.Status) {
	case StatusSubmitted:
		return a.HasRole(model.RoleDirectManager) && a.Manages(req.RequesterID)
	case StatusDMApproved, StatusQuotesRequested, StatusQuoteSelected:
		return a.HasRole(model.RoleAccountant)
	case StatusAcctApproved, StatusFinalApproved:
		return a.HasRole(model.RoleFinalManager)
	}
	return false
}

// transitionRules is the full authorization matrix, one row per action.
var transitionRules = map[Action]rule{
	ActionSubmit: {
		sources:    []Status{StatusDraft, StatusReturned},
		capability: CapRequestSubmit,
		relation:   isOwner,
	},
	ActionApproveDM: {
		sources:    []Status{StatusSubmitted},
		capability: CapApproveDM,
		relation: func(a Actor, req *model.Request) bool {
			return a.HasRole(model.RoleDirectManager) && a.Manages(req.RequesterID)
		},
	},
	ActionRequestQuotes: {
		sources:    []Status{StatusDMApproved},
		capability: CapQuoteManage,
		relation: func(a Actor, req *model.Request) bool {
			return a.HasRole(model.RoleAccountant)
		},
	},
	ActionSelectQuote: {
		sources:  []Status{StatusQuotesRequested},
		relation: isOwner, // requester only; accountants prepare quotes but never pick one
	},
	ActionApproveAccountant: {
		sources:    []Status{StatusDMApproved, StatusQuoteSelected},
		capability: CapApproveAccountant,
		relation: func(a Actor, req *model.Request) bool {
			return a.HasRole(model.RoleAccountant)
		},
	},
	ActionApproveFinal: {
		sources:    []Status{StatusAcctApproved},
		capability: CapApproveFinal,
		relation: func(a Actor, req *model.Request) bool {
			return a.HasRole(model.RoleFinalManager)
		},
	},
	ActionTransferFunds: {
		sources:    []Status{StatusFinalApproved},
		capability: CapTransferFunds,
		relation: func(a Actor, req *model.Request) bool {
			return a.HasRole(model.RoleFinalManager)
		},
	},
	// Reject additionally accepts RETURNED: no stage role owns that status
	// (the request sits with the requester), so stageActor denies everyone
	// there and only admin-equivalent actors can kill a stalled request.
	ActionReject: {
		sources: []Status{StatusSubmitted, StatusDMApproved, StatusQuotesRequested,
			StatusQuoteSelected, StatusAcctApproved, StatusFinalApproved, StatusReturned},
		capability: CapRejectRequest,
		relation:   stageActor,
	},
	ActionReturn: {
		sources: []Status{StatusSubmitted, StatusDMApproved, StatusQuotesRequested,
			StatusQuoteSelected, StatusAcctApproved, StatusFinalApproved},
		capability: CapReturnRequest,
		relation:   stageActor,
	},
	ActionCancel: {
		sources:  []Status{StatusDraft, StatusSubmitted},
		relation: isOwner,
	},
}

// Authorize is the single policy dispatcher: it evaluates the rule row for
// the action against the actor and request snapshot. Wrong source status is
// reported as ErrInvalidRequestState, an actor failing the capability or
// relationship check as ErrUnauthorized. Purely advisory, no side effects.
func Authorize(actor Actor, req *model.Request, action Action) error {
	r, ok := transitionRules[action]
	if !ok {
		return ErrUnauthorized
	}

	current, err := ParseStatus(req.Status)
	if err != nil {
		return err
	}

	sourceOK := false
	for _, s := range r.sources {
		if s == current {
			sourceOK = true
			break
		}
	}
	if !sourceOK {
		return ErrInvalidRequestState
	}

	// Admin short-circuit: bypasses capability and relationship checks,
	// never the status gate above.
	if actor.IsAdmin() {
		return nil
	}

	if r.capability != "" && !actor.HasCapability(r.capability) {
		return ErrUnauthorized
	}
	if r.relation != nil && !r.relation(actor, req) {
		return ErrUnauthorized
	}
	return nil
}

// CanCreate reports whether the actor may create requests.
func CanCreate(actor Actor) bool {
	return actor.IsAdmin() || actor.HasCapability(CapRequestCreate)
}

// CanUpdate reports whether the actor may edit request fields directly.
// Permitted only while the request is editable (DRAFT or RETURNED).
func CanUpdate(actor Actor, req *model.Request) error {
	if !Status(req.Status).Editable() {
		return ErrInvalidRequestState
	}
	if actor.IsAdmin() {
		return nil
	}
	if !isOwner(actor, req) || !actor.HasCapability(CapRequestUpdate) {
		return ErrUnauthorized
	}
	return nil
}

// CanDelete reports whether the actor may delete the request. Only DRAFT and
// SUBMITTED requests are deletable; everything past that is retained for
// audit.
func CanDelete(actor Actor, req *model.Request) error {
	s := Status(req.Status)
	if s != StatusDraft && s != StatusSubmitted {
		return ErrInvalidRequestState
	}
	if actor.IsAdmin() {
		return nil
	}
	if !isOwner(actor, req) || !actor.HasCapability(CapRequestDelete) {
		return ErrUnauthorized
	}
	return nil
}

// CanViewQuotes reports whether the actor may see the quotes on a request:
// admins, the requester, accountants, and the requester's direct manager.
func CanViewQuotes(actor Actor, req *model.Request) bool {
	if actor.IsAdmin() || isOwner(actor, req) {
		return true
	}
	if actor.HasRole(model.RoleAccountant) {
		return true
	}
	return actor.HasRole(model.RoleDirectManager) && actor.Manages(req.RequesterID)
}

// CanManageQuotes reports whether the actor may add or modify quotes on a
// request still in the quoting phase.
func CanManageQuotes(actor Actor) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.HasRole(model.RoleAccountant) && actor.HasCapability(CapQuoteManage)
}
