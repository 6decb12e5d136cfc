package service

import (
	"context"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// passthroughTxManager runs the unit of work directly on the caller's
// context. The repository mocks assert on the calls made inside it.
type passthroughTxManager struct{}

func (passthroughTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// captureNotifier records notifications instead of pushing them to the hub.
type captureNotifier struct {
	sent []Notification
}

func (c *captureNotifier) Notify(n Notification) {
	c.sent = append(c.sent, n)
}

type mockRequestRepo struct{ mock.Mock }

func (m *mockRequestRepo) Create(ctx context.Context, req *model.Request) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockRequestRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Request), args.Error(1)
}

func (m *mockRequestRepo) FindByIDFull(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Request), args.Error(1)
}

func (m *mockRequestRepo) List(ctx context.Context, filter repository.RequestFilter) ([]model.Request, int64, error) {
	args := m.Called(ctx, filter)
	var requests []model.Request
	if args.Get(0) != nil {
		requests = args.Get(0).([]model.Request)
	}
	return requests, args.Get(1).(int64), args.Error(2)
}

func (m *mockRequestRepo) Save(ctx context.Context, req *model.Request) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockRequestRepo) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return m.Called(ctx, id, fields).Error(0)
}

func (m *mockRequestRepo) AdvanceStatus(ctx context.Context, id uuid.UUID, from, to string, fields map[string]interface{}) error {
	return m.Called(ctx, id, from, to, fields).Error(0)
}

func (m *mockRequestRepo) ReplaceItems(ctx context.Context, requestID uuid.UUID, items []model.RequestItem) error {
	return m.Called(ctx, requestID, items).Error(0)
}

func (m *mockRequestRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRequestRepo) AppendHistory(ctx context.Context, entry *model.ApprovalHistoryEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockRequestRepo) ListHistory(ctx context.Context, requestID uuid.UUID) ([]model.ApprovalHistoryEntry, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ApprovalHistoryEntry), args.Error(1)
}

type mockQuoteRepo struct{ mock.Mock }

func (m *mockQuoteRepo) Create(ctx context.Context, quote *model.PriceQuote) error {
	return m.Called(ctx, quote).Error(0)
}

func (m *mockQuoteRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.PriceQuote, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PriceQuote), args.Error(1)
}

func (m *mockQuoteRepo) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]model.PriceQuote, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PriceQuote), args.Error(1)
}

func (m *mockQuoteRepo) Update(ctx context.Context, quote *model.PriceQuote) error {
	return m.Called(ctx, quote).Error(0)
}

func (m *mockQuoteRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockQuoteRepo) Select(ctx context.Context, requestID, quoteID uuid.UUID) error {
	return m.Called(ctx, requestID, quoteID).Error(0)
}

type mockBudgetRepo struct{ mock.Mock }

func (m *mockBudgetRepo) Create(ctx context.Context, budget *model.Budget) error {
	return m.Called(ctx, budget).Error(0)
}

func (m *mockBudgetRepo) FindByDepartmentYear(ctx context.Context, departmentID uuid.UUID, fiscalYear int) (*model.Budget, error) {
	args := m.Called(ctx, departmentID, fiscalYear)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Budget), args.Error(1)
}

func (m *mockBudgetRepo) List(ctx context.Context, fiscalYear int) ([]model.Budget, error) {
	args := m.Called(ctx, fiscalYear)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Budget), args.Error(1)
}

func (m *mockBudgetRepo) Consume(ctx context.Context, departmentID uuid.UUID, fiscalYear int, amount decimal.Decimal) error {
	return m.Called(ctx, departmentID, fiscalYear, amount).Error(0)
}

type mockAuditRepo struct{ mock.Mock }

func (m *mockAuditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockAuditRepo) List(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	args := m.Called(ctx, page, limit)
	var logs []model.AuditLog
	if args.Get(0) != nil {
		logs = args.Get(0).([]model.AuditLog)
	}
	return logs, args.Get(1).(int64), args.Error(2)
}
