package workflow

import (
	"strings"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Input carries the actor and payload of a transition attempt.
type Input struct {
	Action               Action
	Actor                Actor
	Comments             string
	TransactionReference string    // TRANSFER_FUNDS only
	QuoteID              uuid.UUID // SELECT_QUOTE only
	Now                  time.Time
}

// Plan is the computed outcome of a transition: source, destination, and the
// ordered effect list the executor applies atomically.
type Plan struct {
	From    Status
	To      Status
	Effects []Effect
}

// transitions maps (action, source status) to destination status. The
// accountant approval accepts both the direct flow (DM_APPROVED) and the
// quote-extended flow (QUOTE_SELECTED) as sources.
var transitions = map[Action]map[Status]Status{
	ActionSubmit: {
		StatusDraft:    StatusSubmitted,
		StatusReturned: StatusSubmitted,
	},
	ActionApproveDM: {
		StatusSubmitted: StatusDMApproved,
	},
	ActionRequestQuotes: {
		StatusDMApproved: StatusQuotesRequested,
	},
	ActionSelectQuote: {
		StatusQuotesRequested: StatusQuoteSelected,
	},
	ActionApproveAccountant: {
		StatusDMApproved:    StatusAcctApproved,
		StatusQuoteSelected: StatusAcctApproved,
	},
	ActionApproveFinal: {
		StatusAcctApproved: StatusFinalApproved,
	},
	ActionTransferFunds: {
		StatusFinalApproved: StatusFundsTransferred,
	},
	ActionReject: {
		StatusSubmitted:       StatusRejected,
		StatusDMApproved:      StatusRejected,
		StatusQuotesRequested: StatusRejected,
		StatusQuoteSelected:   StatusRejected,
		StatusAcctApproved:    StatusRejected,
		StatusFinalApproved:   StatusRejected,
		StatusReturned:        StatusRejected,
	},
	ActionReturn: {
		StatusSubmitted:       StatusReturned,
		StatusDMApproved:      StatusReturned,
		StatusQuotesRequested: StatusReturned,
		StatusQuoteSelected:   StatusReturned,
		StatusAcctApproved:    StatusReturned,
		StatusFinalApproved:   StatusReturned,
	},
	ActionCancel: {
		StatusDraft:     StatusCancelled,
		StatusSubmitted: StatusCancelled,
	},
}

// Transition validates the attempt against the request snapshot and returns
// the effect plan. It never mutates the request; the executor owns all
// writes. The source status is re-checked here even though the policy layer
// already gated it, and checked once more at commit time by the executor's
// compare-and-set, so racing approvers cannot double-advance a request.
func Transition(req *model.Request, in Input) (*Plan, error) {
	current, err := ParseStatus(req.Status)
	if err != nil {
		return nil, err
	}

	dests, ok := transitions[in.Action]
	if !ok {
		return nil, &ValidationError{Field: "action", Message: "unknown action " + string(in.Action)}
	}
	dest, ok := dests[current]
	if !ok {
		return nil, ErrInvalidRequestState
	}

	if err := validateInput(req, current, in); err != nil {
		return nil, err
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	plan := &Plan{From: current, To: dest}
	plan.Effects = append(plan.Effects, AppendHistory{
		Action:      in.Action,
		ActorID:     in.Actor.ID,
		StatusAfter: dest,
		Comments:    in.Comments,
	})
	plan.Effects = append(plan.Effects, SetStatus{From: current, To: dest})

	switch in.Action {
	case ActionSubmit:
		plan.Effects = append(plan.Effects,
			SetSubmittedAt{At: now},
			Notify{TargetRole: model.RoleDirectManager, Event: EventRequestSubmitted})
	case ActionApproveDM:
		plan.Effects = append(plan.Effects,
			Notify{TargetRole: model.RoleAccountant, Event: EventDMApproved})
	case ActionRequestQuotes:
		plan.Effects = append(plan.Effects,
			Notify{TargetUserID: &req.RequesterID, Event: EventQuotesRequested})
	case ActionSelectQuote:
		plan.Effects = append(plan.Effects,
			MarkQuoteSelected{QuoteID: in.QuoteID},
			Notify{TargetRole: model.RoleAccountant, Event: EventQuoteSelected})
	case ActionApproveAccountant:
		plan.Effects = append(plan.Effects,
			Notify{TargetRole: model.RoleFinalManager, Event: EventAcctApproved})
	case ActionApproveFinal:
		plan.Effects = append(plan.Effects,
			Notify{TargetUserID: &req.RequesterID, Event: EventFinalApproved},
			Notify{TargetRole: model.RoleFinalManager, Event: EventFinalApproved})
	case ActionTransferFunds:
		plan.Effects = append(plan.Effects,
			SetTransactionReference{Reference: in.TransactionReference},
			SetCompletedAt{At: now},
			ConsumeBudget{
				DepartmentID: req.DepartmentID,
				FiscalYear:   now.Year(),
				Amount:       releasedAmount(req),
			},
			Notify{TargetUserID: &req.RequesterID, Event: EventFundsTransferred})
	case ActionReject:
		plan.Effects = append(plan.Effects,
			Notify{TargetUserID: &req.RequesterID, Event: EventRequestRejected})
	case ActionReturn:
		plan.Effects = append(plan.Effects,
			Notify{TargetUserID: &req.RequesterID, Event: EventRequestReturned})
	case ActionCancel:
		plan.Effects = append(plan.Effects,
			Notify{TargetUserID: &req.RequesterID, Event: EventRequestCancelled})
	}

	return plan, nil
}

// validateInput enforces per-action payload rules: reject/return always need
// a comment, fund transfer needs a transaction reference, quote selection
// needs a quote belonging to this request.
func validateInput(req *model.Request, current Status, in Input) error {
	switch in.Action {
	case ActionReject, ActionReturn:
		if strings.TrimSpace(in.Comments) == "" {
			return &ValidationError{Field: "comments", Message: "a comment is required when rejecting or returning a request"}
		}
	case ActionTransferFunds:
		if strings.TrimSpace(in.TransactionReference) == "" {
			return &ValidationError{Field: "transaction_reference", Message: "a transaction reference is required to transfer funds"}
		}
	case ActionSelectQuote:
		if in.QuoteID == uuid.Nil {
			return &ValidationError{Field: "quote_id", Message: "quote_id is required"}
		}
		found := false
		for _, q := range req.Quotes {
			if q.ID == in.QuoteID {
				found = true
				break
			}
		}
		if !found {
			return &ValidationError{Field: "quote_id", Message: "quote does not belong to this request"}
		}
	}
	return nil
}

// releasedAmount is what fund transfer charges against the budget: the
// selected quote's amount when quoting was used, the request total otherwise.
func releasedAmount(req *model.Request) decimal.Decimal {
	if q := req.SelectedQuote(); q != nil {
		return q.Amount
	}
	return req.TotalCost
}
