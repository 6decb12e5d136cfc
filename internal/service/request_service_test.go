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

type requestServiceFixture struct {
	*executorFixture
	service RequestService
}

func newRequestServiceFixture() *requestServiceFixture {
	f := newExecutorFixture()
	return &requestServiceFixture{
		executorFixture: f,
		service:         NewRequestService(f.requestRepo, f.auditRepo, passthroughTxManager{}, f.executor),
	}
}

func TestCreatePurchaseComputesTotalFromItems(t *testing.T) {
	f := newRequestServiceFixture()
	actor := employeeActor(workflow.CapRequestCreate)
	deptID := uuid.New()

	dto := CreateRequestDTO{
		DepartmentID: deptID.String(),
		Type:         model.RequestTypePurchase,
		Title:        "Laptops for QA",
		TotalCost:    "999999.00", // client-supplied total is ignored for purchases
		Items: []RequestItemDTO{
			{Description: "Laptop", Quantity: 3, UnitPrice: "100.00"},
			{Description: "Docking station", Quantity: 1, UnitPrice: "250.00"},
		},
	}

	var created *model.Request
	f.requestRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.Request")).
		Run(func(args mock.Arguments) {
			created = args.Get(1).(*model.Request)
			created.ID = uuid.New()
		}).Return(nil)
	f.auditRepo.On("Log", mock.Anything, mock.MatchedBy(func(entry *model.AuditLog) bool {
		return entry.Action == model.ActionCreateRequest
	})).Return(nil)
	f.requestRepo.On("FindByIDFull", mock.Anything, mock.Anything).
		Return(&model.Request{Status: string(workflow.StatusDraft)}, nil)

	_, err := f.service.Create(context.Background(), actor, dto)
	require.NoError(t, err)

	require.NotNil(t, created)
	assert.Equal(t, string(workflow.StatusDraft), created.Status)
	assert.Equal(t, actor.ID, created.RequesterID)
	assert.Equal(t, deptID, created.DepartmentID)
	assert.True(t, created.TotalCost.Equal(decimal.RequireFromString("550.00")),
		"expected the item sum, got %s", created.TotalCost)
}

func TestCreateRequiresCapability(t *testing.T) {
	f := newRequestServiceFixture()
	actor := employeeActor() // no create capability

	_, err := f.service.Create(context.Background(), actor, CreateRequestDTO{
		DepartmentID: uuid.NewString(),
		Type:         model.RequestTypePurchase,
		Title:        "Laptops",
	})
	assert.ErrorIs(t, err, workflow.ErrUnauthorized)
	f.requestRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreatePurchaseNeedsItems(t *testing.T) {
	f := newRequestServiceFixture()
	actor := employeeActor(workflow.CapRequestCreate)

	_, err := f.service.Create(context.Background(), actor, CreateRequestDTO{
		DepartmentID: uuid.NewString(),
		Type:         model.RequestTypePurchase,
		Title:        "Laptops",
	})

	var vErr *workflow.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "items", vErr.Field)
}

func TestCreateProjectNeedsDetail(t *testing.T) {
	f := newRequestServiceFixture()
	actor := employeeActor(workflow.CapRequestCreate)

	_, err := f.service.Create(context.Background(), actor, CreateRequestDTO{
		DepartmentID: uuid.NewString(),
		Type:         model.RequestTypeProject,
		Title:        "Office refit",
		TotalCost:    "5000.00",
	})

	var vErr *workflow.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "project_detail", vErr.Field)
}

func TestSubmitTransitionsDraft(t *testing.T) {
	f := newRequestServiceFixture()
	owner := employeeActor(workflow.CapRequestSubmit)
	req := ownedRequest(owner, workflow.StatusDraft)

	f.requestRepo.On("FindByID", mock.Anything, req.ID).Return(req, nil)
	f.requestRepo.On("AdvanceStatus", mock.Anything, req.ID,
		string(workflow.StatusDraft), string(workflow.StatusSubmitted), mock.Anything).Return(nil)
	f.requestRepo.On("AppendHistory", mock.Anything, mock.Anything).Return(nil)
	f.auditRepo.On("Log", mock.Anything, mock.Anything).Return(nil)

	submitted := ownedRequest(owner, workflow.StatusSubmitted)
	submitted.ID = req.ID
	f.requestRepo.On("FindByIDFull", mock.Anything, req.ID).Return(submitted, nil)

	resp, err := f.service.Submit(context.Background(), owner, req.ID, "please review")
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StatusSubmitted), resp.Status)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, workflow.EventRequestSubmitted, f.notifier.sent[0].Event)
}

func TestApproveRefusesUnrelatedManager(t *testing.T) {
	f := newRequestServiceFixture()
	owner := employeeActor(workflow.CapRequestSubmit)
	req := ownedRequest(owner, workflow.StatusSubmitted)

	// A manager who does not manage the requester.
	manager := workflow.NewActor(uuid.New(), []string{model.RoleDirectManager},
		[]string{workflow.CapApproveDM}, []uuid.UUID{uuid.New()})

	f.requestRepo.On("FindByID", mock.Anything, req.ID).Return(req, nil)

	_, err := f.service.ApproveAsDirectManager(context.Background(), manager, req.ID, "")
	assert.ErrorIs(t, err, workflow.ErrUnauthorized)
	f.requestRepo.AssertNotCalled(t, "AdvanceStatus",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRejectRequiresComment(t *testing.T) {
	f := newRequestServiceFixture()
	owner := employeeActor(workflow.CapRequestSubmit)
	req := ownedRequest(owner, workflow.StatusSubmitted)

	manager := workflow.NewActor(uuid.New(), []string{model.RoleDirectManager},
		[]string{workflow.CapRejectRequest}, []uuid.UUID{owner.ID})

	f.requestRepo.On("FindByID", mock.Anything, req.ID).Return(req, nil)

	_, err := f.service.Reject(context.Background(), manager, req.ID, "")

	var vErr *workflow.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "comments", vErr.Field)
	f.requestRepo.AssertNotCalled(t, "AdvanceStatus",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateRefusedOnceSubmitted(t *testing.T) {
	f := newRequestServiceFixture()
	owner := employeeActor(workflow.CapRequestUpdate)
	req := ownedRequest(owner, workflow.StatusSubmitted)

	f.requestRepo.On("FindByID", mock.Anything, req.ID).Return(req, nil)

	_, err := f.service.Update(context.Background(), owner, req.ID, UpdateRequestDTO{Title: "new title"})
	assert.ErrorIs(t, err, workflow.ErrInvalidRequestState)
	f.requestRepo.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateItemsRecomputesTotal(t *testing.T) {
	f := newRequestServiceFixture()
	owner := employeeActor(workflow.CapRequestUpdate)
	req := ownedRequest(owner, workflow.StatusDraft)
	req.Type = model.RequestTypePurchase

	f.requestRepo.On("FindByID", mock.Anything, req.ID).Return(req, nil)
	f.requestRepo.On("ReplaceItems", mock.Anything, req.ID, mock.Anything).Return(nil)
	f.requestRepo.On("UpdateFields", mock.Anything, req.ID,
		mock.MatchedBy(func(fields map[string]interface{}) bool {
			total, ok := fields["total_cost"].(decimal.Decimal)
			return ok && total.Equal(decimal.RequireFromString("80.00"))
		})).Return(nil)
	f.auditRepo.On("Log", mock.Anything, mock.Anything).Return(nil)
	f.requestRepo.On("FindByIDFull", mock.Anything, req.ID).Return(req, nil)

	_, err := f.service.Update(context.Background(), owner, req.ID, UpdateRequestDTO{
		Items: []RequestItemDTO{{Description: "Cable", Quantity: 4, UnitPrice: "20.00"}},
	})
	require.NoError(t, err)
	f.requestRepo.AssertExpectations(t)
}

func TestDeleteSubmittedRequestWithHistory(t *testing.T) {
	f := newRequestServiceFixture()
	owner := employeeActor(workflow.CapRequestDelete)

	// A submitted request always carries at least the submit history row.
	req := ownedRequest(owner, workflow.StatusSubmitted)
	req.History = []model.ApprovalHistoryEntry{
		{RequestID: req.ID, ActorID: owner.ID, Action: string(workflow.ActionSubmit), StatusAfter: string(workflow.StatusSubmitted)},
	}

	f.requestRepo.On("FindByID", mock.Anything, req.ID).Return(req, nil)
	f.requestRepo.On("Delete", mock.Anything, req.ID).Return(nil)
	f.auditRepo.On("Log", mock.Anything, mock.MatchedBy(func(entry *model.AuditLog) bool {
		return entry.Action == model.ActionDeleteRequest && entry.EntityID == req.ID.String()
	})).Return(nil)

	err := f.service.Delete(context.Background(), owner, req.ID)
	require.NoError(t, err)
	f.requestRepo.AssertExpectations(t)
}

func TestDeleteAllowedEarlyOnly(t *testing.T) {
	f := newRequestServiceFixture()
	owner := employeeActor(workflow.CapRequestDelete)

	approved := ownedRequest(owner, workflow.StatusDMApproved)
	f.requestRepo.On("FindByID", mock.Anything, approved.ID).Return(approved, nil)

	err := f.service.Delete(context.Background(), owner, approved.ID)
	assert.ErrorIs(t, err, workflow.ErrInvalidRequestState)
	f.requestRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
