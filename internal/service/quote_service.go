package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type QuoteDTO struct {
	VendorName    string `json:"vendor_name" binding:"required"`
	VendorContact string `json:"vendor_contact"`
	VendorEmail   string `json:"vendor_email" binding:"omitempty,email"`
	VendorPhone   string `json:"vendor_phone"`
	Amount        string `json:"amount" binding:"required,decimalgt0"` // Decimal string
	ValidityDate  string `json:"validity_date" binding:"omitempty,rfc3339"` // RFC3339, optional
	PaymentTerms  string `json:"payment_terms"`
	DeliveryTime  string `json:"delivery_time"`
	Notes         string `json:"notes"`
}

type SelectQuoteDTO struct {
	QuoteID  string `json:"quote_id" binding:"required"`
	Comments string `json:"comments"`
}

type QuoteResponse struct {
	ID            string  `json:"id"`
	RequestID     string  `json:"request_id"`
	VendorName    string  `json:"vendor_name"`
	VendorContact string  `json:"vendor_contact"`
	VendorEmail   string  `json:"vendor_email"`
	VendorPhone   string  `json:"vendor_phone"`
	Amount        string  `json:"amount"`
	ValidityDate  *string `json:"validity_date"`
	PaymentTerms  string  `json:"payment_terms"`
	DeliveryTime  string  `json:"delivery_time"`
	Notes         string  `json:"notes"`
	CreatorID     string  `json:"creator_id"`
	CreatorName   string  `json:"creator_name,omitempty"`
	IsSelected    bool    `json:"is_selected"`
	CreatedAt     string  `json:"created_at"`
}

// --- Interface ---

// QuoteService manages the quoting sub-phase: accountants request and
// maintain vendor quotes, the requester picks one. Quote rows are frozen
// once the request leaves QUOTES_REQUESTED.
type QuoteService interface {
	RequestQuotes(ctx context.Context, actor workflow.Actor, requestID uuid.UUID, comments string) (*RequestResponse, error)
	AddQuote(ctx context.Context, actor workflow.Actor, requestID uuid.UUID, req QuoteDTO) (*QuoteResponse, error)
	UpdateQuote(ctx context.Context, actor workflow.Actor, quoteID uuid.UUID, req QuoteDTO) (*QuoteResponse, error)
	DeleteQuote(ctx context.Context, actor workflow.Actor, quoteID uuid.UUID) error
	SelectQuote(ctx context.Context, actor workflow.Actor, requestID, quoteID uuid.UUID, comments string) (*RequestResponse, error)
	ListQuotes(ctx context.Context, actor workflow.Actor, requestID uuid.UUID) ([]QuoteResponse, error)
}

type quoteService struct {
	requestRepo repository.RequestRepository
	quoteRepo   repository.QuoteRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	executor    *EffectExecutor
}

func NewQuoteService(
	requestRepo repository.RequestRepository,
	quoteRepo repository.QuoteRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	executor *EffectExecutor,
) QuoteService {
	return &quoteService{
		requestRepo: requestRepo,
		quoteRepo:   quoteRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		executor:    executor,
	}
}

// --- Implementation ---

// RequestQuotes moves the request into the quoting sub-phase. It is a
// regular workflow transition (DM_APPROVED -> QUOTES_REQUESTED).
func (s *quoteService) RequestQuotes(ctx context.Context, actor workflow.Actor, requestID uuid.UUID, comments string) (*RequestResponse, error) {
	request, err := s.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("request not found: %w", err)
	}

	in := workflow.Input{Action: workflow.ActionRequestQuotes, Actor: actor, Comments: comments, Now: time.Now()}
	if err := workflow.Authorize(actor, request, in.Action); err != nil {
		return nil, err
	}
	plan, err := workflow.Transition(request, in)
	if err != nil {
		return nil, err
	}
	updated, err := s.executor.Apply(ctx, request, plan, in)
	if err != nil {
		return nil, err
	}
	return toRequestResponse(updated), nil
}

// AddQuote appends a vendor quote without changing request status.
func (s *quoteService) AddQuote(ctx context.Context, actor workflow.Actor, requestID uuid.UUID, req QuoteDTO) (*QuoteResponse, error) {
	request, err := s.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("request not found: %w", err)
	}

	if !workflow.CanManageQuotes(actor) {
		return nil, workflow.ErrUnauthorized
	}
	if workflow.Status(request.Status) != workflow.StatusQuotesRequested {
		return nil, workflow.ErrInvalidRequestState
	}

	quote, err := quoteFromDTO(req)
	if err != nil {
		return nil, err
	}
	quote.RequestID = request.ID
	quote.CreatorID = actor.ID

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if checkErr := s.requireQuoting(txCtx, request.ID, workflow.ErrInvalidRequestState); checkErr != nil {
			return checkErr
		}
		if createErr := s.quoteRepo.Create(txCtx, quote); createErr != nil {
			return fmt.Errorf("failed to create quote: %w", createErr)
		}
		return s.logQuoteAudit(txCtx, actor, model.ActionAddQuote, quote, request.Title)
	})
	if err != nil {
		return nil, asQuoteError(err)
	}

	resp := toQuoteResponse(*quote)
	return &resp, nil
}

// UpdateQuote mutates an unselected quote while the request is still
// quoting. Past that the quote is locked.
func (s *quoteService) UpdateQuote(ctx context.Context, actor workflow.Actor, quoteID uuid.UUID, req QuoteDTO) (*QuoteResponse, error) {
	quote, request, err := s.loadQuoteWithRequest(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	if !workflow.CanManageQuotes(actor) {
		return nil, workflow.ErrUnauthorized
	}
	if workflow.Status(request.Status) != workflow.StatusQuotesRequested || quote.IsSelected {
		return nil, workflow.ErrQuoteLocked
	}

	updated, err := quoteFromDTO(req)
	if err != nil {
		return nil, err
	}
	quote.VendorName = updated.VendorName
	quote.VendorContact = updated.VendorContact
	quote.VendorEmail = updated.VendorEmail
	quote.VendorPhone = updated.VendorPhone
	quote.Amount = updated.Amount
	quote.ValidityDate = updated.ValidityDate
	quote.PaymentTerms = updated.PaymentTerms
	quote.DeliveryTime = updated.DeliveryTime
	quote.Notes = updated.Notes

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if checkErr := s.requireQuoting(txCtx, request.ID, workflow.ErrQuoteLocked); checkErr != nil {
			return checkErr
		}
		if updateErr := s.quoteRepo.Update(txCtx, quote); updateErr != nil {
			return fmt.Errorf("failed to update quote: %w", updateErr)
		}
		return s.logQuoteAudit(txCtx, actor, model.ActionUpdateQuote, quote, request.Title)
	})
	if err != nil {
		return nil, asQuoteError(err)
	}

	resp := toQuoteResponse(*quote)
	return &resp, nil
}

func (s *quoteService) DeleteQuote(ctx context.Context, actor workflow.Actor, quoteID uuid.UUID) error {
	quote, request, err := s.loadQuoteWithRequest(ctx, quoteID)
	if err != nil {
		return err
	}

	if !workflow.CanManageQuotes(actor) {
		return workflow.ErrUnauthorized
	}
	if workflow.Status(request.Status) != workflow.StatusQuotesRequested || quote.IsSelected {
		return workflow.ErrQuoteLocked
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if checkErr := s.requireQuoting(txCtx, request.ID, workflow.ErrQuoteLocked); checkErr != nil {
			return checkErr
		}
		if deleteErr := s.quoteRepo.Delete(txCtx, quote.ID); deleteErr != nil {
			return fmt.Errorf("failed to delete quote: %w", deleteErr)
		}
		return s.logQuoteAudit(txCtx, actor, model.ActionDeleteQuote, quote, request.Title)
	})
	if err != nil {
		return asQuoteError(err)
	}
	return nil
}

// SelectQuote is the requester's pick: a workflow transition
// (QUOTES_REQUESTED -> QUOTE_SELECTED) whose plan also flips the selection
// flag atomically.
func (s *quoteService) SelectQuote(ctx context.Context, actor workflow.Actor, requestID, quoteID uuid.UUID, comments string) (*RequestResponse, error) {
	request, err := s.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("request not found: %w", err)
	}

	in := workflow.Input{
		Action:   workflow.ActionSelectQuote,
		Actor:    actor,
		Comments: comments,
		QuoteID:  quoteID,
		Now:      time.Now(),
	}
	if err := workflow.Authorize(actor, request, in.Action); err != nil {
		return nil, err
	}
	plan, err := workflow.Transition(request, in)
	if err != nil {
		return nil, err
	}
	updated, err := s.executor.Apply(ctx, request, plan, in)
	if err != nil {
		return nil, err
	}
	return toRequestResponse(updated), nil
}

func (s *quoteService) ListQuotes(ctx context.Context, actor workflow.Actor, requestID uuid.UUID) ([]QuoteResponse, error) {
	request, err := s.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("request not found: %w", err)
	}

	if !workflow.CanViewQuotes(actor, request) {
		return nil, workflow.ErrUnauthorized
	}

	quotes, err := s.quoteRepo.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, &workflow.PersistenceError{Err: err}
	}

	result := make([]QuoteResponse, 0, len(quotes))
	for _, q := range quotes {
		result = append(result, toQuoteResponse(q))
	}
	return result, nil
}

// --- Helpers ---

func (s *quoteService) loadQuoteWithRequest(ctx context.Context, quoteID uuid.UUID) (*model.PriceQuote, *model.Request, error) {
	quote, err := s.quoteRepo.FindByID(ctx, quoteID)
	if err != nil {
		return nil, nil, fmt.Errorf("quote not found: %w", err)
	}
	request, err := s.requestRepo.FindByID(ctx, quote.RequestID)
	if err != nil {
		return nil, nil, fmt.Errorf("request not found: %w", err)
	}
	return quote, request, nil
}

// requireQuoting re-reads the request inside the transaction and fails with
// conflict once it has left the quoting phase. The pre-check outside the
// transaction gives callers a fast answer; this one makes quote writes safe
// against a transition racing them out of QUOTES_REQUESTED.
func (s *quoteService) requireQuoting(ctx context.Context, requestID uuid.UUID, conflict error) error {
	current, err := s.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		return fmt.Errorf("request not found: %w", err)
	}
	if workflow.Status(current.Status) != workflow.StatusQuotesRequested {
		return conflict
	}
	return nil
}

// asQuoteError keeps workflow conflicts surfaced from inside the transaction
// intact and wraps everything else as a storage failure.
func asQuoteError(err error) error {
	if errors.Is(err, workflow.ErrInvalidRequestState) || errors.Is(err, workflow.ErrQuoteLocked) {
		return err
	}
	return &workflow.PersistenceError{Err: err}
}

func (s *quoteService) logQuoteAudit(ctx context.Context, actor workflow.Actor, action string, quote *model.PriceQuote, requestTitle string) error {
	details, _ := json.Marshal(map[string]interface{}{
		"vendor": quote.VendorName,
		"amount": quote.Amount.StringFixed(4),
	})
	actorID := actor.ID
	audit := &model.AuditLog{
		UserID:     &actorID,
		Action:     action,
		EntityID:   quote.ID.String(),
		EntityName: requestTitle,
		Details:    string(details),
	}
	return s.auditRepo.Log(ctx, audit)
}

func quoteFromDTO(req QuoteDTO) (*model.PriceQuote, error) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		return nil, &workflow.ValidationError{Field: "amount", Message: "amount must be a positive decimal"}
	}

	quote := &model.PriceQuote{
		VendorName:    req.VendorName,
		VendorContact: req.VendorContact,
		VendorEmail:   req.VendorEmail,
		VendorPhone:   req.VendorPhone,
		Amount:        amount,
		PaymentTerms:  req.PaymentTerms,
		DeliveryTime:  req.DeliveryTime,
		Notes:         req.Notes,
	}
	if req.ValidityDate != "" {
		validity, parseErr := time.Parse(time.RFC3339, req.ValidityDate)
		if parseErr != nil {
			return nil, &workflow.ValidationError{Field: "validity_date", Message: "validity_date must be RFC3339"}
		}
		quote.ValidityDate = &validity
	}
	return quote, nil
}

func toQuoteResponse(q model.PriceQuote) QuoteResponse {
	resp := QuoteResponse{
		ID:            q.ID.String(),
		RequestID:     q.RequestID.String(),
		VendorName:    q.VendorName,
		VendorContact: q.VendorContact,
		VendorEmail:   q.VendorEmail,
		VendorPhone:   q.VendorPhone,
		Amount:        q.Amount.StringFixed(4),
		PaymentTerms:  q.PaymentTerms,
		DeliveryTime:  q.DeliveryTime,
		Notes:         q.Notes,
		CreatorID:     q.CreatorID.String(),
		IsSelected:    q.IsSelected,
		CreatedAt:     q.CreatedAt.Format(time.RFC3339),
	}
	if q.Creator != nil {
		resp.CreatorName = q.Creator.Username
	}
	if q.ValidityDate != nil {
		s := q.ValidityDate.Format(time.RFC3339)
		resp.ValidityDate = &s
	}
	return resp
}
