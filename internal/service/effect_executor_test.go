package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type executorFixture struct {
	requestRepo *mockRequestRepo
	quoteRepo   *mockQuoteRepo
	budgetRepo  *mockBudgetRepo
	auditRepo   *mockAuditRepo
	notifier    *captureNotifier
	executor    *EffectExecutor
}

func newExecutorFixture() *executorFixture {
	f := &executorFixture{
		requestRepo: &mockRequestRepo{},
		quoteRepo:   &mockQuoteRepo{},
		budgetRepo:  &mockBudgetRepo{},
		auditRepo:   &mockAuditRepo{},
		notifier:    &captureNotifier{},
	}
	f.executor = NewEffectExecutor(f.requestRepo, f.quoteRepo, f.budgetRepo, f.auditRepo, passthroughTxManager{}, f.notifier)
	return f
}

func ownedRequest(owner workflow.Actor, status workflow.Status) *model.Request {
	return &model.Request{
		ID:          uuid.New(),
		RequesterID: owner.ID,
		Status:      string(status),
		Title:       "Laptops for QA",
	}
}

func employeeActor(caps ...string) workflow.Actor {
	return workflow.NewActor(uuid.New(), []string{model.RoleEmployee}, caps, nil)
}

func TestExecutorApplySubmitPlan(t *testing.T) {
	f := newExecutorFixture()
	owner := employeeActor(workflow.CapRequestSubmit)
	req := ownedRequest(owner, workflow.StatusDraft)

	in := workflow.Input{Action: workflow.ActionSubmit, Actor: owner, Now: time.Now()}
	plan, err := workflow.Transition(req, in)
	require.NoError(t, err)

	f.requestRepo.On("AdvanceStatus", mock.Anything, req.ID,
		string(workflow.StatusDraft), string(workflow.StatusSubmitted),
		mock.MatchedBy(func(fields map[string]interface{}) bool {
			_, ok := fields["submitted_at"]
			return ok
		})).Return(nil)
	f.requestRepo.On("AppendHistory", mock.Anything, mock.MatchedBy(func(entry *model.ApprovalHistoryEntry) bool {
		return entry.RequestID == req.ID &&
			entry.ActorID == owner.ID &&
			entry.Action == string(workflow.ActionSubmit) &&
			entry.StatusAfter == string(workflow.StatusSubmitted)
	})).Return(nil)
	f.auditRepo.On("Log", mock.Anything, mock.MatchedBy(func(entry *model.AuditLog) bool {
		return entry.EntityID == req.ID.String() && entry.Action == string(workflow.ActionSubmit)
	})).Return(nil)

	submitted := ownedRequest(owner, workflow.StatusSubmitted)
	submitted.ID = req.ID
	f.requestRepo.On("FindByIDFull", mock.Anything, req.ID).Return(submitted, nil)

	updated, err := f.executor.Apply(context.Background(), req, plan, in)
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StatusSubmitted), updated.Status)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, workflow.EventRequestSubmitted, f.notifier.sent[0].Event)
	assert.Equal(t, model.RoleDirectManager, f.notifier.sent[0].TargetRole)
	assert.Equal(t, req.ID, f.notifier.sent[0].RequestID)

	f.requestRepo.AssertExpectations(t)
	f.auditRepo.AssertExpectations(t)
}

func TestExecutorStaleStatusBecomesStateConflict(t *testing.T) {
	f := newExecutorFixture()
	owner := employeeActor(workflow.CapRequestSubmit)
	req := ownedRequest(owner, workflow.StatusDraft)

	in := workflow.Input{Action: workflow.ActionSubmit, Actor: owner, Now: time.Now()}
	plan, err := workflow.Transition(req, in)
	require.NoError(t, err)

	// Another actor advanced the request between the read and the CAS.
	f.requestRepo.On("AdvanceStatus", mock.Anything, req.ID,
		string(workflow.StatusDraft), string(workflow.StatusSubmitted), mock.Anything).
		Return(repository.ErrStaleStatus)

	_, err = f.executor.Apply(context.Background(), req, plan, in)
	assert.ErrorIs(t, err, workflow.ErrInvalidRequestState)

	assert.Empty(t, f.notifier.sent)
	f.requestRepo.AssertNotCalled(t, "AppendHistory", mock.Anything, mock.Anything)
	f.auditRepo.AssertNotCalled(t, "Log", mock.Anything, mock.Anything)
}

func TestExecutorAuditFailureSuppressesNotifications(t *testing.T) {
	f := newExecutorFixture()
	owner := employeeActor(workflow.CapRequestSubmit)
	req := ownedRequest(owner, workflow.StatusDraft)

	in := workflow.Input{Action: workflow.ActionSubmit, Actor: owner, Now: time.Now()}
	plan, err := workflow.Transition(req, in)
	require.NoError(t, err)

	f.requestRepo.On("AdvanceStatus", mock.Anything, req.ID, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.requestRepo.On("AppendHistory", mock.Anything, mock.Anything).Return(nil)
	f.auditRepo.On("Log", mock.Anything, mock.Anything).Return(errors.New("connection reset"))

	_, err = f.executor.Apply(context.Background(), req, plan, in)

	var pErr *workflow.PersistenceError
	require.ErrorAs(t, err, &pErr)
	assert.Empty(t, f.notifier.sent)
}

func transferPlan(t *testing.T, req *model.Request, fm workflow.Actor, now time.Time) (*workflow.Plan, workflow.Input) {
	t.Helper()
	in := workflow.Input{
		Action:               workflow.ActionTransferFunds,
		Actor:                fm,
		TransactionReference: "TXN-2026-0042",
		Now:                  now,
	}
	plan, err := workflow.Transition(req, in)
	require.NoError(t, err)
	return plan, in
}

func TestExecutorTransferConsumesBudget(t *testing.T) {
	f := newExecutorFixture()
	fm := workflow.NewActor(uuid.New(), []string{model.RoleFinalManager}, []string{workflow.CapTransferFunds}, nil)
	req := ownedRequest(employeeActor(), workflow.StatusFinalApproved)
	req.DepartmentID = uuid.New()
	req.TotalCost = decimal.RequireFromString("550.00")

	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	plan, in := transferPlan(t, req, fm, now)

	f.requestRepo.On("AdvanceStatus", mock.Anything, req.ID,
		string(workflow.StatusFinalApproved), string(workflow.StatusFundsTransferred),
		mock.MatchedBy(func(fields map[string]interface{}) bool {
			return fields["transaction_reference"] == "TXN-2026-0042"
		})).Return(nil)
	f.requestRepo.On("AppendHistory", mock.Anything, mock.Anything).Return(nil)
	f.budgetRepo.On("FindByDepartmentYear", mock.Anything, req.DepartmentID, 2026).Return(&model.Budget{}, nil)
	f.budgetRepo.On("Consume", mock.Anything, req.DepartmentID, 2026,
		mock.MatchedBy(func(amount decimal.Decimal) bool {
			return amount.Equal(decimal.RequireFromString("550.00"))
		})).Return(nil)
	f.auditRepo.On("Log", mock.Anything, mock.Anything).Return(nil)

	done := ownedRequest(employeeActor(), workflow.StatusFundsTransferred)
	done.ID = req.ID
	f.requestRepo.On("FindByIDFull", mock.Anything, req.ID).Return(done, nil)

	_, err := f.executor.Apply(context.Background(), req, plan, in)
	require.NoError(t, err)
	f.budgetRepo.AssertExpectations(t)
}

func TestExecutorTransferBudgetExceeded(t *testing.T) {
	f := newExecutorFixture()
	fm := workflow.NewActor(uuid.New(), []string{model.RoleFinalManager}, []string{workflow.CapTransferFunds}, nil)
	req := ownedRequest(employeeActor(), workflow.StatusFinalApproved)
	req.DepartmentID = uuid.New()
	req.TotalCost = decimal.RequireFromString("99999.00")

	plan, in := transferPlan(t, req, fm, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))

	f.requestRepo.On("AdvanceStatus", mock.Anything, req.ID, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.requestRepo.On("AppendHistory", mock.Anything, mock.Anything).Return(nil)
	f.budgetRepo.On("FindByDepartmentYear", mock.Anything, req.DepartmentID, 2026).Return(&model.Budget{}, nil)
	f.budgetRepo.On("Consume", mock.Anything, req.DepartmentID, 2026, mock.Anything).
		Return(repository.ErrBudgetExceeded)

	_, err := f.executor.Apply(context.Background(), req, plan, in)

	var vErr *workflow.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "amount", vErr.Field)
	assert.Empty(t, f.notifier.sent)
}

func TestExecutorTransferWithoutBudgetRowStillCompletes(t *testing.T) {
	f := newExecutorFixture()
	fm := workflow.NewActor(uuid.New(), []string{model.RoleFinalManager}, []string{workflow.CapTransferFunds}, nil)
	req := ownedRequest(employeeActor(), workflow.StatusFinalApproved)
	req.DepartmentID = uuid.New()
	req.TotalCost = decimal.RequireFromString("120.00")

	plan, in := transferPlan(t, req, fm, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))

	f.requestRepo.On("AdvanceStatus", mock.Anything, req.ID, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.requestRepo.On("AppendHistory", mock.Anything, mock.Anything).Return(nil)
	// No budget provisioned for this department and year.
	f.budgetRepo.On("FindByDepartmentYear", mock.Anything, req.DepartmentID, 2026).
		Return(nil, gorm.ErrRecordNotFound)
	f.auditRepo.On("Log", mock.Anything, mock.Anything).Return(nil)

	done := ownedRequest(employeeActor(), workflow.StatusFundsTransferred)
	done.ID = req.ID
	f.requestRepo.On("FindByIDFull", mock.Anything, req.ID).Return(done, nil)

	_, err := f.executor.Apply(context.Background(), req, plan, in)
	require.NoError(t, err)
	f.budgetRepo.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExecutorSelectQuoteFlipsSelection(t *testing.T) {
	f := newExecutorFixture()
	owner := employeeActor()
	req := ownedRequest(owner, workflow.StatusQuotesRequested)
	quote := model.PriceQuote{ID: uuid.New(), Amount: decimal.RequireFromString("300.00")}
	req.Quotes = []model.PriceQuote{quote}

	in := workflow.Input{Action: workflow.ActionSelectQuote, Actor: owner, QuoteID: quote.ID, Now: time.Now()}
	plan, err := workflow.Transition(req, in)
	require.NoError(t, err)

	f.requestRepo.On("AdvanceStatus", mock.Anything, req.ID,
		string(workflow.StatusQuotesRequested), string(workflow.StatusQuoteSelected), mock.Anything).Return(nil)
	f.requestRepo.On("AppendHistory", mock.Anything, mock.Anything).Return(nil)
	f.quoteRepo.On("Select", mock.Anything, req.ID, quote.ID).Return(nil)
	f.auditRepo.On("Log", mock.Anything, mock.Anything).Return(nil)

	selected := ownedRequest(owner, workflow.StatusQuoteSelected)
	selected.ID = req.ID
	f.requestRepo.On("FindByIDFull", mock.Anything, req.ID).Return(selected, nil)

	_, err = f.executor.Apply(context.Background(), req, plan, in)
	require.NoError(t, err)
	f.quoteRepo.AssertExpectations(t)
}
