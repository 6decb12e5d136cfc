package service

import (
	"context"
	"testing"

	"backend/internal/model"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type quoteServiceFixture struct {
	*executorFixture
	service QuoteService
}

func newQuoteServiceFixture() *quoteServiceFixture {
	f := newExecutorFixture()
	return &quoteServiceFixture{
		executorFixture: f,
		service: NewQuoteService(f.requestRepo, f.quoteRepo, f.auditRepo,
			passthroughTxManager{}, f.executor),
	}
}

func accountantActor(caps ...string) workflow.Actor {
	return workflow.NewActor(uuid.New(), []string{model.RoleAccountant}, caps, nil)
}

func validQuoteDTO() QuoteDTO {
	return QuoteDTO{
		VendorName: "Acme Supplies",
		Amount:     "300.00",
	}
}

func TestAddQuoteOnlyWhileQuoting(t *testing.T) {
	f := newQuoteServiceFixture()
	accountant := accountantActor(workflow.CapQuoteManage)
	req := ownedRequest(employeeActor(), workflow.StatusDMApproved)

	f.requestRepo.On("FindByID", mock.Anything, req.ID).Return(req, nil)

	_, err := f.service.AddQuote(context.Background(), accountant, req.ID, validQuoteDTO())
	assert.ErrorIs(t, err, workflow.ErrInvalidRequestState)
	f.quoteRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAddQuoteRequiresQuoteCapability(t *testing.T) {
	f := newQuoteServiceFixture()
	req := ownedRequest(employeeActor(), workflow.StatusQuotesRequested)

	f.requestRepo.On("FindByID", mock.Anything, req.ID).Return(req, nil)

	_, err := f.service.AddQuote(context.Background(), employeeActor(), req.ID, validQuoteDTO())
	assert.ErrorIs(t, err, workflow.ErrUnauthorized)
}

func TestAddQuoteCreatesRow(t *testing.T) {
	f := newQuoteServiceFixture()
	accountant := accountantActor(workflow.CapQuoteManage)
	req := ownedRequest(employeeActor(), workflow.StatusQuotesRequested)

	f.requestRepo.On("FindByID", mock.Anything, req.ID).Return(req, nil)
	f.quoteRepo.On("Create", mock.Anything, mock.MatchedBy(func(q *model.PriceQuote) bool {
		return q.RequestID == req.ID &&
			q.CreatorID == accountant.ID &&
			q.Amount.Equal(decimal.RequireFromString("300.00"))
	})).Return(nil)
	f.auditRepo.On("Log", mock.Anything, mock.MatchedBy(func(entry *model.AuditLog) bool {
		return entry.Action == model.ActionAddQuote
	})).Return(nil)

	resp, err := f.service.AddQuote(context.Background(), accountant, req.ID, validQuoteDTO())
	require.NoError(t, err)
	assert.Equal(t, "Acme Supplies", resp.VendorName)
	assert.Equal(t, "300.0000", resp.Amount)
	f.quoteRepo.AssertExpectations(t)
}

func TestAddQuoteRefusedWhenPhaseEndsConcurrently(t *testing.T) {
	f := newQuoteServiceFixture()
	accountant := accountantActor(workflow.CapQuoteManage)
	owner := employeeActor()

	// The first read sees the quoting phase; by the time the write
	// transaction re-reads, the requester has picked a quote.
	quoting := ownedRequest(owner, workflow.StatusQuotesRequested)
	selected := ownedRequest(owner, workflow.StatusQuoteSelected)
	selected.ID = quoting.ID
	f.requestRepo.On("FindByID", mock.Anything, quoting.ID).Return(quoting, nil).Once()
	f.requestRepo.On("FindByID", mock.Anything, quoting.ID).Return(selected, nil).Once()

	_, err := f.service.AddQuote(context.Background(), accountant, quoting.ID, validQuoteDTO())
	assert.ErrorIs(t, err, workflow.ErrInvalidRequestState)
	f.quoteRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestDeleteQuoteRefusedWhenPhaseEndsConcurrently(t *testing.T) {
	f := newQuoteServiceFixture()
	accountant := accountantActor(workflow.CapQuoteManage)
	owner := employeeActor()

	quoting := ownedRequest(owner, workflow.StatusQuotesRequested)
	rejected := ownedRequest(owner, workflow.StatusRejected)
	rejected.ID = quoting.ID
	quote := &model.PriceQuote{ID: uuid.New(), RequestID: quoting.ID}

	f.quoteRepo.On("FindByID", mock.Anything, quote.ID).Return(quote, nil)
	f.requestRepo.On("FindByID", mock.Anything, quoting.ID).Return(quoting, nil).Once()
	f.requestRepo.On("FindByID", mock.Anything, quoting.ID).Return(rejected, nil).Once()

	err := f.service.DeleteQuote(context.Background(), accountant, quote.ID)
	assert.ErrorIs(t, err, workflow.ErrQuoteLocked)
	f.quoteRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestUpdateQuoteLockedAfterSelection(t *testing.T) {
	f := newQuoteServiceFixture()
	accountant := accountantActor(workflow.CapQuoteManage)
	req := ownedRequest(employeeActor(), workflow.StatusQuotesRequested)
	quote := &model.PriceQuote{
		ID:         uuid.New(),
		RequestID:  req.ID,
		Amount:     decimal.RequireFromString("300.00"),
		IsSelected: true,
	}

	f.quoteRepo.On("FindByID", mock.Anything, quote.ID).Return(quote, nil)
	f.requestRepo.On("FindByID", mock.Anything, req.ID).Return(req, nil)

	_, err := f.service.UpdateQuote(context.Background(), accountant, quote.ID, validQuoteDTO())
	assert.ErrorIs(t, err, workflow.ErrQuoteLocked)
	f.quoteRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestDeleteQuoteLockedOncePhaseOver(t *testing.T) {
	f := newQuoteServiceFixture()
	accountant := accountantActor(workflow.CapQuoteManage)
	req := ownedRequest(employeeActor(), workflow.StatusQuoteSelected)
	quote := &model.PriceQuote{ID: uuid.New(), RequestID: req.ID}

	f.quoteRepo.On("FindByID", mock.Anything, quote.ID).Return(quote, nil)
	f.requestRepo.On("FindByID", mock.Anything, req.ID).Return(req, nil)

	err := f.service.DeleteQuote(context.Background(), accountant, quote.ID)
	assert.ErrorIs(t, err, workflow.ErrQuoteLocked)
}

func TestSelectQuoteRunsTransition(t *testing.T) {
	f := newQuoteServiceFixture()
	owner := employeeActor()
	req := ownedRequest(owner, workflow.StatusQuotesRequested)
	quote := model.PriceQuote{ID: uuid.New(), Amount: decimal.RequireFromString("300.00")}
	req.Quotes = []model.PriceQuote{quote}

	f.requestRepo.On("FindByID", mock.Anything, req.ID).Return(req, nil)
	f.requestRepo.On("AdvanceStatus", mock.Anything, req.ID,
		string(workflow.StatusQuotesRequested), string(workflow.StatusQuoteSelected), mock.Anything).Return(nil)
	f.requestRepo.On("AppendHistory", mock.Anything, mock.Anything).Return(nil)
	f.quoteRepo.On("Select", mock.Anything, req.ID, quote.ID).Return(nil)
	f.auditRepo.On("Log", mock.Anything, mock.Anything).Return(nil)

	selected := ownedRequest(owner, workflow.StatusQuoteSelected)
	selected.ID = req.ID
	f.requestRepo.On("FindByIDFull", mock.Anything, req.ID).Return(selected, nil)

	resp, err := f.service.SelectQuote(context.Background(), owner, req.ID, quote.ID, "cheapest compliant bid")
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StatusQuoteSelected), resp.Status)
	f.quoteRepo.AssertExpectations(t)
}

func TestSelectQuoteNotOwnersCall(t *testing.T) {
	f := newQuoteServiceFixture()
	req := ownedRequest(employeeActor(), workflow.StatusQuotesRequested)
	accountant := accountantActor(workflow.CapQuoteManage)

	f.requestRepo.On("FindByID", mock.Anything, req.ID).Return(req, nil)

	_, err := f.service.SelectQuote(context.Background(), accountant, req.ID, uuid.New(), "")
	assert.ErrorIs(t, err, workflow.ErrUnauthorized)
}
