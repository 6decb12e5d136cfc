package workflow

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Effect is one step of a transition's outcome. The state machine only
// produces effects; the executor applies them atomically, so a status
// change and its history row always commit or roll back together.
type Effect interface {
	isEffect()
}

// AppendHistory appends one approval-history row.
type AppendHistory struct {
	Action      Action
	ActorID     uuid.UUID
	StatusAfter Status
	Comments    string
}

// SetStatus advances the request status. From is the expected source status
// the executor compares-and-sets against.
type SetStatus struct {
	From Status
	To   Status
}

// SetSubmittedAt stamps the submission time.
type SetSubmittedAt struct {
	At time.Time
}

// SetCompletedAt stamps the completion time.
type SetCompletedAt struct {
	At time.Time
}

// SetTransactionReference records the fund-transfer reference.
type SetTransactionReference struct {
	Reference string
}

// MarkQuoteSelected flags exactly one quote as selected, clearing any
// previous selection on the same request.
type MarkQuoteSelected struct {
	QuoteID uuid.UUID
}

// ConsumeBudget adds the released amount to the department budget's spent
// total for the fiscal year, guarded against overspend.
type ConsumeBudget struct {
	DepartmentID uuid.UUID
	FiscalYear   int
	Amount       decimal.Decimal
}

// Notify enqueues a notification for a role or a specific user. Delivery is
// fire-and-forget and happens only after the transition commits.
type Notify struct {
	TargetRole   string
	TargetUserID *uuid.UUID
	Event        string
}

func (AppendHistory) isEffect()           {}
func (SetStatus) isEffect()               {}
func (SetSubmittedAt) isEffect()          {}
func (SetCompletedAt) isEffect()          {}
func (SetTransactionReference) isEffect() {}
func (MarkQuoteSelected) isEffect()       {}
func (ConsumeBudget) isEffect()           {}
func (Notify) isEffect()                  {}
