package workflow

import (
	"testing"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestActor(role string, caps ...string) Actor {
	return NewActor(uuid.New(), []string{role}, caps, nil)
}

func newTestRequest(requester uuid.UUID, status Status) *model.Request {
	return &model.Request{
		ID:          uuid.New(),
		RequesterID: requester,
		Status:      string(status),
	}
}

func TestAuthorizeSubmitOwnerOnly(t *testing.T) {
	owner := newTestActor(model.RoleEmployee, CapRequestSubmit)
	req := newTestRequest(owner.ID, StatusDraft)

	require.NoError(t, Authorize(owner, req, ActionSubmit))

	stranger := newTestActor(model.RoleEmployee, CapRequestSubmit)
	assert.ErrorIs(t, Authorize(stranger, req, ActionSubmit), ErrUnauthorized)
}

func TestAuthorizeWrongStatusBeatsWrongActor(t *testing.T) {
	// A request already past SUBMITTED reports a state conflict even to an
	// actor who could never approve it; the status gate runs first.
	outsider := newTestActor(model.RoleEmployee)
	req := newTestRequest(uuid.New(), StatusAcctApproved)

	assert.ErrorIs(t, Authorize(outsider, req, ActionApproveDM), ErrInvalidRequestState)
}

func TestAuthorizeDMMustManageRequester(t *testing.T) {
	requester := uuid.New()
	req := newTestRequest(requester, StatusSubmitted)

	manager := NewActor(uuid.New(), []string{model.RoleDirectManager},
		[]string{CapApproveDM}, []uuid.UUID{requester})
	require.NoError(t, Authorize(manager, req, ActionApproveDM))

	otherManager := NewActor(uuid.New(), []string{model.RoleDirectManager},
		[]string{CapApproveDM}, []uuid.UUID{uuid.New()})
	assert.ErrorIs(t, Authorize(otherManager, req, ActionApproveDM), ErrUnauthorized)
}

func TestAuthorizeAdminBypassesActorChecksNotStatusGate(t *testing.T) {
	admin := newTestActor(model.RoleAdmin)

	// Admin may approve without managing the requester or holding the cap.
	req := newTestRequest(uuid.New(), StatusSubmitted)
	require.NoError(t, Authorize(admin, req, ActionApproveDM))

	// But a wrong source status still refuses, even for admin.
	done := newTestRequest(uuid.New(), StatusFundsTransferred)
	assert.ErrorIs(t, Authorize(admin, done, ActionApproveDM), ErrInvalidRequestState)
}

func TestAuthorizeAccountantApprovesBothFlows(t *testing.T) {
	accountant := newTestActor(model.RoleAccountant, CapApproveAccountant)

	for _, status := range []Status{StatusDMApproved, StatusQuoteSelected} {
		req := newTestRequest(uuid.New(), status)
		assert.NoError(t, Authorize(accountant, req, ActionApproveAccountant), "from %s", status)
	}

	req := newTestRequest(uuid.New(), StatusQuotesRequested)
	assert.ErrorIs(t, Authorize(accountant, req, ActionApproveAccountant), ErrInvalidRequestState)
}

func TestAuthorizeSelectQuoteRequesterOnly(t *testing.T) {
	owner := newTestActor(model.RoleEmployee)
	req := newTestRequest(owner.ID, StatusQuotesRequested)

	require.NoError(t, Authorize(owner, req, ActionSelectQuote))

	// The accountant who sourced the quotes still cannot pick the winner.
	accountant := newTestActor(model.RoleAccountant, CapQuoteManage, CapApproveAccountant)
	assert.ErrorIs(t, Authorize(accountant, req, ActionSelectQuote), ErrUnauthorized)
}

func TestAuthorizeRejectStageActor(t *testing.T) {
	requester := uuid.New()

	cases := []struct {
		name   string
		status Status
		actor  Actor
		want   error
	}{
		{
			name:   "manager rejects at SUBMITTED",
			status: StatusSubmitted,
			actor: NewActor(uuid.New(), []string{model.RoleDirectManager},
				[]string{CapRejectRequest}, []uuid.UUID{requester}),
		},
		{
			name:   "accountant rejects during quoting",
			status: StatusQuotesRequested,
			actor:  newTestActor(model.RoleAccountant, CapRejectRequest),
		},
		{
			name:   "final manager rejects at ACCT_APPROVED",
			status: StatusAcctApproved,
			actor:  newTestActor(model.RoleFinalManager, CapRejectRequest),
		},
		{
			name:   "accountant cannot reject at SUBMITTED",
			status: StatusSubmitted,
			actor:  newTestActor(model.RoleAccountant, CapRejectRequest),
			want:   ErrUnauthorized,
		},
		{
			name:   "manager cannot reject past their stage",
			status: StatusAcctApproved,
			actor: NewActor(uuid.New(), []string{model.RoleDirectManager},
				[]string{CapRejectRequest}, []uuid.UUID{requester}),
			want: ErrUnauthorized,
		},
		{
			name:   "admin rejects a stalled RETURNED request",
			status: StatusReturned,
			actor:  newTestActor(model.RoleAdmin),
		},
		{
			name:   "no stage role owns RETURNED",
			status: StatusReturned,
			actor: NewActor(uuid.New(), []string{model.RoleDirectManager},
				[]string{CapRejectRequest}, []uuid.UUID{requester}),
			want: ErrUnauthorized,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := newTestRequest(requester, tc.status)
			err := Authorize(tc.actor, req, ActionReject)
			if tc.want != nil {
				assert.ErrorIs(t, err, tc.want)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAuthorizeCancelOwnerEarlyOnly(t *testing.T) {
	owner := newTestActor(model.RoleEmployee)

	for _, status := range []Status{StatusDraft, StatusSubmitted} {
		req := newTestRequest(owner.ID, status)
		assert.NoError(t, Authorize(owner, req, ActionCancel), "from %s", status)
	}

	req := newTestRequest(owner.ID, StatusDMApproved)
	assert.ErrorIs(t, Authorize(owner, req, ActionCancel), ErrInvalidRequestState)
}

func TestCanUpdate(t *testing.T) {
	owner := newTestActor(model.RoleEmployee, CapRequestUpdate)

	editable := newTestRequest(owner.ID, StatusReturned)
	require.NoError(t, CanUpdate(owner, editable))

	locked := newTestRequest(owner.ID, StatusSubmitted)
	assert.ErrorIs(t, CanUpdate(owner, locked), ErrInvalidRequestState)

	stranger := newTestActor(model.RoleEmployee, CapRequestUpdate)
	assert.ErrorIs(t, CanUpdate(stranger, editable), ErrUnauthorized)
}

func TestCanDelete(t *testing.T) {
	owner := newTestActor(model.RoleEmployee, CapRequestDelete)

	require.NoError(t, CanDelete(owner, newTestRequest(owner.ID, StatusDraft)))
	require.NoError(t, CanDelete(owner, newTestRequest(owner.ID, StatusSubmitted)))
	assert.ErrorIs(t, CanDelete(owner, newTestRequest(owner.ID, StatusDMApproved)), ErrInvalidRequestState)
}

func TestCanViewQuotes(t *testing.T) {
	requester := uuid.New()
	req := newTestRequest(requester, StatusQuotesRequested)

	owner := NewActor(requester, []string{model.RoleEmployee}, nil, nil)
	assert.True(t, CanViewQuotes(owner, req))

	accountant := newTestActor(model.RoleAccountant)
	assert.True(t, CanViewQuotes(accountant, req))

	manager := NewActor(uuid.New(), []string{model.RoleDirectManager}, nil, []uuid.UUID{requester})
	assert.True(t, CanViewQuotes(manager, req))

	bystander := newTestActor(model.RoleEmployee)
	assert.False(t, CanViewQuotes(bystander, req))
}
