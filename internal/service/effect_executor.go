package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/workflow"

	"gorm.io/gorm"
)

// EffectExecutor applies a transition plan atomically: the status
// compare-and-set, the approval-history row, timestamps, quote selection,
// budget consumption, and the audit row all commit or roll back together.
// Notifications are collected during the transaction and dispatched only
// after it commits.
type EffectExecutor struct {
	requestRepo repository.RequestRepository
	quoteRepo   repository.QuoteRepository
	budgetRepo  repository.BudgetRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	notifier    NotificationService
}

func NewEffectExecutor(
	requestRepo repository.RequestRepository,
	quoteRepo repository.QuoteRepository,
	budgetRepo repository.BudgetRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	notifier NotificationService,
) *EffectExecutor {
	return &EffectExecutor{
		requestRepo: requestRepo,
		quoteRepo:   quoteRepo,
		budgetRepo:  budgetRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		notifier:    notifier,
	}
}

// Apply executes the plan against the request. On success the request is
// reloaded with its full aggregate. A stale status read surfaces as
// ErrInvalidRequestState; any other storage failure aborts the whole unit
// and surfaces as a retryable PersistenceError.
func (e *EffectExecutor) Apply(ctx context.Context, req *model.Request, plan *workflow.Plan, in workflow.Input) (*model.Request, error) {
	// First pass: split the plan into row-field updates, the structural
	// effects, and the post-commit notifications.
	fields := map[string]interface{}{}
	var histories []workflow.AppendHistory
	var setStatus *workflow.SetStatus
	var selectQuote *workflow.MarkQuoteSelected
	var consumeBudget *workflow.ConsumeBudget
	var notifications []Notification

	for _, effect := range plan.Effects {
		switch ef := effect.(type) {
		case workflow.AppendHistory:
			histories = append(histories, ef)
		case workflow.SetStatus:
			setStatus = &ef
		case workflow.SetSubmittedAt:
			fields["submitted_at"] = ef.At
		case workflow.SetCompletedAt:
			fields["completed_at"] = ef.At
		case workflow.SetTransactionReference:
			fields["transaction_reference"] = ef.Reference
		case workflow.MarkQuoteSelected:
			selectQuote = &ef
		case workflow.ConsumeBudget:
			consumeBudget = &ef
		case workflow.Notify:
			notifications = append(notifications, Notification{
				TargetRole:   ef.TargetRole,
				TargetUserID: ef.TargetUserID,
				Event:        ef.Event,
				RequestID:    req.ID,
				RequestTitle: req.Title,
			})
		}
	}

	if setStatus == nil {
		return nil, fmt.Errorf("transition plan has no status change")
	}

	err := e.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// The CAS goes first: if the source status is stale, nothing else
		// should be attempted.
		if err := e.requestRepo.AdvanceStatus(txCtx, req.ID, string(setStatus.From), string(setStatus.To), fields); err != nil {
			return err
		}

		for _, h := range histories {
			entry := &model.ApprovalHistoryEntry{
				RequestID:   req.ID,
				ActorID:     h.ActorID,
				Action:      string(h.Action),
				StatusAfter: string(h.StatusAfter),
				Comments:    h.Comments,
			}
			if err := e.requestRepo.AppendHistory(txCtx, entry); err != nil {
				return fmt.Errorf("failed to append approval history: %w", err)
			}
		}

		if selectQuote != nil {
			if err := e.quoteRepo.Select(txCtx, req.ID, selectQuote.QuoteID); err != nil {
				return fmt.Errorf("failed to select quote: %w", err)
			}
		}

		if consumeBudget != nil {
			if err := e.applyBudget(txCtx, consumeBudget); err != nil {
				return err
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"from":     string(plan.From),
			"to":       string(plan.To),
			"comments": in.Comments,
		})
		actorID := in.Actor.ID
		audit := &model.AuditLog{
			UserID:     &actorID,
			Action:     string(in.Action),
			EntityID:   req.ID.String(),
			EntityName: req.Title,
			Details:    string(details),
		}
		if err := e.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, translatePersistence(err)
	}

	// Post-commit, fire-and-forget.
	for _, n := range notifications {
		e.notifier.Notify(n)
	}

	updated, err := e.requestRepo.FindByIDFull(ctx, req.ID)
	if err != nil {
		return nil, &workflow.PersistenceError{Err: err}
	}
	return updated, nil
}

// applyBudget consumes the released amount if a budget row exists for the
// department and fiscal year. A missing budget does not block the transfer;
// budgets are consulted, not mandatory.
func (e *EffectExecutor) applyBudget(ctx context.Context, eff *workflow.ConsumeBudget) error {
	_, err := e.budgetRepo.FindByDepartmentYear(ctx, eff.DepartmentID, eff.FiscalYear)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load budget: %w", err)
	}
	return e.budgetRepo.Consume(ctx, eff.DepartmentID, eff.FiscalYear, eff.Amount)
}

// translatePersistence maps storage-layer outcomes onto the workflow error
// kinds handlers understand.
func translatePersistence(err error) error {
	switch {
	case errors.Is(err, repository.ErrStaleStatus):
		return workflow.ErrInvalidRequestState
	case errors.Is(err, repository.ErrBudgetExceeded):
		return &workflow.ValidationError{Field: "amount", Message: "insufficient budget for this department and fiscal year"}
	default:
		return &workflow.PersistenceError{Err: err}
	}
}
