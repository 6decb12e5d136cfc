package workflow

import (
	"testing"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionSubmit(t *testing.T) {
	owner := newTestActor(model.RoleEmployee, CapRequestSubmit)
	req := newTestRequest(owner.ID, StatusDraft)
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	plan, err := Transition(req, Input{Action: ActionSubmit, Actor: owner, Now: now})
	require.NoError(t, err)

	assert.Equal(t, StatusDraft, plan.From)
	assert.Equal(t, StatusSubmitted, plan.To)

	// History first, then the status CAS, then the side effects.
	require.GreaterOrEqual(t, len(plan.Effects), 4)
	history, ok := plan.Effects[0].(AppendHistory)
	require.True(t, ok)
	assert.Equal(t, ActionSubmit, history.Action)
	assert.Equal(t, owner.ID, history.ActorID)
	assert.Equal(t, StatusSubmitted, history.StatusAfter)

	status, ok := plan.Effects[1].(SetStatus)
	require.True(t, ok)
	assert.Equal(t, StatusDraft, status.From)
	assert.Equal(t, StatusSubmitted, status.To)

	submitted, ok := plan.Effects[2].(SetSubmittedAt)
	require.True(t, ok)
	assert.Equal(t, now, submitted.At)

	notify, ok := plan.Effects[3].(Notify)
	require.True(t, ok)
	assert.Equal(t, model.RoleDirectManager, notify.TargetRole)
	assert.Equal(t, EventRequestSubmitted, notify.Event)
}

func TestTransitionResubmitAfterReturn(t *testing.T) {
	owner := newTestActor(model.RoleEmployee, CapRequestSubmit)
	req := newTestRequest(owner.ID, StatusReturned)

	plan, err := Transition(req, Input{Action: ActionSubmit, Actor: owner})
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, plan.To)
}

func TestTransitionWrongSourceStatus(t *testing.T) {
	owner := newTestActor(model.RoleEmployee, CapRequestSubmit)

	cases := []struct {
		action Action
		from   Status
	}{
		{ActionSubmit, StatusSubmitted},
		{ActionApproveDM, StatusDraft},
		{ActionApproveAccountant, StatusSubmitted},
		{ActionApproveFinal, StatusDMApproved},
		{ActionTransferFunds, StatusAcctApproved},
		{ActionCancel, StatusDMApproved},
		{ActionReject, StatusDraft},
		{ActionRequestQuotes, StatusQuotesRequested},
	}
	for _, tc := range cases {
		req := newTestRequest(owner.ID, tc.from)
		_, err := Transition(req, Input{Action: tc.action, Actor: owner, Comments: "x", TransactionReference: "x"})
		assert.ErrorIs(t, err, ErrInvalidRequestState, "%s from %s", tc.action, tc.from)
	}
}

func TestTransitionRejectRequiresComment(t *testing.T) {
	accountant := newTestActor(model.RoleAccountant, CapRejectRequest)
	req := newTestRequest(uuid.New(), StatusDMApproved)

	_, err := Transition(req, Input{Action: ActionReject, Actor: accountant, Comments: "   "})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "comments", vErr.Field)

	plan, err := Transition(req, Input{Action: ActionReject, Actor: accountant, Comments: "over budget"})
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, plan.To)
}

func TestTransitionRejectStalledReturnedRequest(t *testing.T) {
	admin := newTestActor(model.RoleAdmin)
	req := newTestRequest(uuid.New(), StatusReturned)

	plan, err := Transition(req, Input{Action: ActionReject, Actor: admin, Comments: "abandoned after return"})
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, plan.To)
}

func TestTransitionReturnRequiresComment(t *testing.T) {
	manager := newTestActor(model.RoleDirectManager, CapReturnRequest)
	req := newTestRequest(uuid.New(), StatusSubmitted)

	_, err := Transition(req, Input{Action: ActionReturn, Actor: manager})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "comments", vErr.Field)
}

func TestTransitionTransferFundsRequiresReference(t *testing.T) {
	fm := newTestActor(model.RoleFinalManager, CapTransferFunds)
	req := newTestRequest(uuid.New(), StatusFinalApproved)

	_, err := Transition(req, Input{Action: ActionTransferFunds, Actor: fm})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "transaction_reference", vErr.Field)
}

func TestTransitionTransferFundsEffects(t *testing.T) {
	fm := newTestActor(model.RoleFinalManager, CapTransferFunds)
	req := newTestRequest(uuid.New(), StatusFinalApproved)
	req.DepartmentID = uuid.New()
	req.TotalCost = decimal.RequireFromString("550.00")
	now := time.Date(2026, 8, 29, 16, 30, 0, 0, time.UTC)

	plan, err := Transition(req, Input{
		Action:               ActionTransferFunds,
		Actor:                fm,
		TransactionReference: "TXN-2026-0042",
		Now:                  now,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusFundsTransferred, plan.To)

	var ref *SetTransactionReference
	var completed *SetCompletedAt
	var budget *ConsumeBudget
	for _, e := range plan.Effects {
		switch eff := e.(type) {
		case SetTransactionReference:
			ref = &eff
		case SetCompletedAt:
			completed = &eff
		case ConsumeBudget:
			budget = &eff
		}
	}
	require.NotNil(t, ref)
	assert.Equal(t, "TXN-2026-0042", ref.Reference)
	require.NotNil(t, completed)
	assert.Equal(t, now, completed.At)
	require.NotNil(t, budget)
	assert.Equal(t, req.DepartmentID, budget.DepartmentID)
	assert.Equal(t, 2026, budget.FiscalYear)
	assert.True(t, budget.Amount.Equal(decimal.RequireFromString("550.00")))
}

func TestTransitionTransferFundsChargesSelectedQuote(t *testing.T) {
	fm := newTestActor(model.RoleFinalManager, CapTransferFunds)
	req := newTestRequest(uuid.New(), StatusFinalApproved)
	req.TotalCost = decimal.RequireFromString("1000.00")
	req.Quotes = []model.PriceQuote{
		{ID: uuid.New(), Amount: decimal.RequireFromString("980.00")},
		{ID: uuid.New(), Amount: decimal.RequireFromString("920.00"), IsSelected: true},
	}

	plan, err := Transition(req, Input{Action: ActionTransferFunds, Actor: fm, TransactionReference: "TXN-1"})
	require.NoError(t, err)

	for _, e := range plan.Effects {
		if budget, ok := e.(ConsumeBudget); ok {
			assert.True(t, budget.Amount.Equal(decimal.RequireFromString("920.00")),
				"expected the selected quote amount, got %s", budget.Amount)
			return
		}
	}
	t.Fatal("no ConsumeBudget effect in plan")
}

func TestTransitionSelectQuote(t *testing.T) {
	owner := newTestActor(model.RoleEmployee)
	req := newTestRequest(owner.ID, StatusQuotesRequested)
	quote := model.PriceQuote{ID: uuid.New(), Amount: decimal.RequireFromString("100.00")}
	req.Quotes = []model.PriceQuote{quote}

	plan, err := Transition(req, Input{Action: ActionSelectQuote, Actor: owner, QuoteID: quote.ID})
	require.NoError(t, err)
	assert.Equal(t, StatusQuoteSelected, plan.To)

	var marked *MarkQuoteSelected
	for _, e := range plan.Effects {
		if m, ok := e.(MarkQuoteSelected); ok {
			marked = &m
		}
	}
	require.NotNil(t, marked)
	assert.Equal(t, quote.ID, marked.QuoteID)
}

func TestTransitionSelectQuoteForeignQuote(t *testing.T) {
	owner := newTestActor(model.RoleEmployee)
	req := newTestRequest(owner.ID, StatusQuotesRequested)
	req.Quotes = []model.PriceQuote{{ID: uuid.New()}}

	_, err := Transition(req, Input{Action: ActionSelectQuote, Actor: owner, QuoteID: uuid.New()})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "quote_id", vErr.Field)
}

func TestTransitionFullApprovalChain(t *testing.T) {
	requester := uuid.New()
	manager := NewActor(uuid.New(), []string{model.RoleDirectManager}, []string{CapApproveDM}, []uuid.UUID{requester})
	accountant := newTestActor(model.RoleAccountant, CapApproveAccountant)
	fm := newTestActor(model.RoleFinalManager, CapApproveFinal, CapTransferFunds)
	owner := NewActor(requester, []string{model.RoleEmployee}, []string{CapRequestSubmit}, nil)

	req := newTestRequest(requester, StatusDraft)
	req.TotalCost = decimal.RequireFromString("550.00")

	steps := []struct {
		in   Input
		want Status
	}{
		{Input{Action: ActionSubmit, Actor: owner}, StatusSubmitted},
		{Input{Action: ActionApproveDM, Actor: manager}, StatusDMApproved},
		{Input{Action: ActionApproveAccountant, Actor: accountant}, StatusAcctApproved},
		{Input{Action: ActionApproveFinal, Actor: fm}, StatusFinalApproved},
		{Input{Action: ActionTransferFunds, Actor: fm, TransactionReference: "TXN-77"}, StatusFundsTransferred},
	}

	for _, step := range steps {
		require.NoError(t, Authorize(step.in.Actor, req, step.in.Action))
		plan, err := Transition(req, step.in)
		require.NoError(t, err)
		require.Equal(t, step.want, plan.To)
		req.Status = string(plan.To) // apply, as the executor would
	}

	assert.True(t, Status(req.Status).IsTerminal())
}
