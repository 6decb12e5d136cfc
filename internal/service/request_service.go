package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type RequestItemDTO struct {
	Description string `json:"description" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required,gt=0"`
	UnitPrice   string `json:"unit_price" binding:"required,decimalgt0"` // Decimal string
}

type MilestoneDTO struct {
	Title   string `json:"title" binding:"required"`
	DueDate string `json:"due_date" binding:"required,rfc3339"` // RFC3339
	Amount  string `json:"amount" binding:"omitempty,decimal"`
}

type ProjectDetailDTO struct {
	StartDate      string         `json:"start_date" binding:"required,rfc3339"` // RFC3339
	EndDate        string         `json:"end_date" binding:"required,rfc3339"`
	RiskAssessment string         `json:"risk_assessment"`
	Milestones     []MilestoneDTO `json:"milestones"`
}

type CreateRequestDTO struct {
	DepartmentID  string            `json:"department_id" binding:"required"`
	Type          string            `json:"type" binding:"required,oneof=PURCHASE PROJECT"`
	Title         string            `json:"title" binding:"required"`
	Description   string            `json:"description"`
	TotalCost     string            `json:"total_cost" binding:"omitempty,decimalgt0"` // PROJECT only; PURCHASE totals are computed from items
	Items         []RequestItemDTO  `json:"items"`
	ProjectDetail *ProjectDetailDTO `json:"project_detail"`
}

type UpdateRequestDTO struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	TotalCost   string           `json:"total_cost" binding:"omitempty,decimalgt0"`
	Items       []RequestItemDTO `json:"items"`
}

type TransitionDTO struct {
	Comments string `json:"comments"`
}

type TransferFundsDTO struct {
	Comments             string `json:"comments"`
	TransactionReference string `json:"transaction_reference"`
}

type HistoryEntryResponse struct {
	ID          uint   `json:"id"`
	ActorID     string `json:"actor_id"`
	ActorName   string `json:"actor_name"`
	Action      string `json:"action"`
	StatusAfter string `json:"status_after"`
	Comments    string `json:"comments"`
	CreatedAt   string `json:"created_at"`
}

type RequestItemResponse struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	LineTotal   string `json:"line_total"`
}

type RequestResponse struct {
	ID                   string                 `json:"id"`
	RequesterID          string                 `json:"requester_id"`
	RequesterName        string                 `json:"requester_name,omitempty"`
	DepartmentID         string                 `json:"department_id"`
	Type                 string                 `json:"type"`
	Status               string                 `json:"status"`
	Title                string                 `json:"title"`
	Description          string                 `json:"description"`
	TotalCost            string                 `json:"total_cost"`
	SubmittedAt          *string                `json:"submitted_at"`
	CompletedAt          *string                `json:"completed_at"`
	TransactionReference *string                `json:"transaction_reference"`
	Items                []RequestItemResponse  `json:"items"`
	Quotes               []QuoteResponse        `json:"quotes,omitempty"`
	History              []HistoryEntryResponse `json:"history,omitempty"`
	CreatedAt            string                 `json:"created_at"`
}

// --- Interface ---

// RequestService is the entry point for everything a request goes through:
// DRAFT-phase CRUD plus every workflow transition. Each transition runs
// policy → state machine → effect executor.
type RequestService interface {
	Create(ctx context.Context, actor workflow.Actor, req CreateRequestDTO) (*RequestResponse, error)
	Get(ctx context.Context, actor workflow.Actor, id uuid.UUID) (*RequestResponse, error)
	List(ctx context.Context, actor workflow.Actor, filter repository.RequestFilter) ([]RequestResponse, int64, error)
	Update(ctx context.Context, actor workflow.Actor, id uuid.UUID, req UpdateRequestDTO) (*RequestResponse, error)
	Delete(ctx context.Context, actor workflow.Actor, id uuid.UUID) error

	Submit(ctx context.Context, actor workflow.Actor, id uuid.UUID, comments string) (*RequestResponse, error)
	ApproveAsDirectManager(ctx context.Context, actor workflow.Actor, id uuid.UUID, comments string) (*RequestResponse, error)
	ApproveAsAccountant(ctx context.Context, actor workflow.Actor, id uuid.UUID, comments string) (*RequestResponse, error)
	ApproveAsFinalManager(ctx context.Context, actor workflow.Actor, id uuid.UUID, comments string) (*RequestResponse, error)
	TransferFunds(ctx context.Context, actor workflow.Actor, id uuid.UUID, comments, transactionRef string) (*RequestResponse, error)
	Reject(ctx context.Context, actor workflow.Actor, id uuid.UUID, comments string) (*RequestResponse, error)
	Return(ctx context.Context, actor workflow.Actor, id uuid.UUID, comments string) (*RequestResponse, error)
	Cancel(ctx context.Context, actor workflow.Actor, id uuid.UUID, comments string) (*RequestResponse, error)
}

type requestService struct {
	requestRepo repository.RequestRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	executor    *EffectExecutor
}

func NewRequestService(
	requestRepo repository.RequestRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	executor *EffectExecutor,
) RequestService {
	return &requestService{
		requestRepo: requestRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		executor:    executor,
	}
}

// --- CRUD ---

func (s *requestService) Create(ctx context.Context, actor workflow.Actor, req CreateRequestDTO) (*RequestResponse, error) {
	if !workflow.CanCreate(actor) {
		return nil, workflow.ErrUnauthorized
	}

	departmentID, err := uuid.Parse(req.DepartmentID)
	if err != nil {
		return nil, &workflow.ValidationError{Field: "department_id", Message: "invalid department id"}
	}

	request := &model.Request{
		RequesterID:  actor.ID,
		DepartmentID: departmentID,
		Type:         req.Type,
		Status:       string(workflow.StatusDraft),
		Title:        req.Title,
		Description:  req.Description,
	}

	switch req.Type {
	case model.RequestTypePurchase:
		if len(req.Items) == 0 {
			return nil, &workflow.ValidationError{Field: "items", Message: "a purchase request needs at least one item"}
		}
		items, err := parseItems(req.Items)
		if err != nil {
			return nil, err
		}
		request.Items = items
		// The item sum is authoritative; a client-supplied total is ignored.
		request.TotalCost = request.ItemsTotal()
	case model.RequestTypeProject:
		if req.ProjectDetail == nil {
			return nil, &workflow.ValidationError{Field: "project_detail", Message: "a project request needs project details"}
		}
		total, err := decimal.NewFromString(req.TotalCost)
		if err != nil || total.LessThanOrEqual(decimal.Zero) {
			return nil, &workflow.ValidationError{Field: "total_cost", Message: "total_cost must be a positive decimal"}
		}
		detail, err := parseProjectDetail(*req.ProjectDetail)
		if err != nil {
			return nil, err
		}
		request.TotalCost = total
		request.ProjectDetail = detail
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.requestRepo.Create(txCtx, request); createErr != nil {
			return fmt.Errorf("failed to create request: %w", createErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"type":       req.Type,
			"title":      req.Title,
			"total_cost": request.TotalCost.StringFixed(4),
		})
		actorID := actor.ID
		audit := &model.AuditLog{
			UserID:     &actorID,
			Action:     model.ActionCreateRequest,
			EntityID:   request.ID.String(),
			EntityName: req.Title,
			Details:    string(details),
		}
		if auditErr := s.auditRepo.Log(txCtx, audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
	if err != nil {
		return nil, &workflow.PersistenceError{Err: err}
	}

	full, err := s.requestRepo.FindByIDFull(ctx, request.ID)
	if err != nil {
		return nil, &workflow.PersistenceError{Err: err}
	}
	return toRequestResponse(full), nil
}

func (s *requestService) Get(ctx context.Context, actor workflow.Actor, id uuid.UUID) (*RequestResponse, error) {
	request, err := s.requestRepo.FindByIDFull(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("request not found: %w", err)
	}

	resp := toRequestResponse(request)
	// Quote visibility is narrower than request visibility.
	if !workflow.CanViewQuotes(actor, request) {
		resp.Quotes = nil
	}
	return resp, nil
}

func (s *requestService) List(ctx context.Context, actor workflow.Actor, filter repository.RequestFilter) ([]RequestResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	requests, total, err := s.requestRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch requests: %w", err)
	}

	result := make([]RequestResponse, 0, len(requests))
	for i := range requests {
		result = append(result, *toRequestResponse(&requests[i]))
	}
	return result, total, nil
}

func (s *requestService) Update(ctx context.Context, actor workflow.Actor, id uuid.UUID, req UpdateRequestDTO) (*RequestResponse, error) {
	request, err := s.requestRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("request not found: %w", err)
	}

	if err := workflow.CanUpdate(actor, request); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if req.Title != "" {
		fields["title"] = req.Title
	}
	if req.Description != "" {
		fields["description"] = req.Description
	}

	var items []model.RequestItem
	if req.Items != nil {
		if request.Type != model.RequestTypePurchase {
			return nil, &workflow.ValidationError{Field: "items", Message: "items apply to purchase requests only"}
		}
		items, err = parseItems(req.Items)
		if err != nil {
			return nil, err
		}
	}

	if request.Type == model.RequestTypeProject && req.TotalCost != "" {
		total, parseErr := decimal.NewFromString(req.TotalCost)
		if parseErr != nil || total.LessThanOrEqual(decimal.Zero) {
			return nil, &workflow.ValidationError{Field: "total_cost", Message: "total_cost must be a positive decimal"}
		}
		fields["total_cost"] = total
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if items != nil {
			if replaceErr := s.requestRepo.ReplaceItems(txCtx, request.ID, items); replaceErr != nil {
				return fmt.Errorf("failed to replace items: %w", replaceErr)
			}
			total := decimal.Zero
			for _, item := range items {
				total = total.Add(item.LineTotal())
			}
			fields["total_cost"] = total
		}
		if len(fields) > 0 {
			if updateErr := s.requestRepo.UpdateFields(txCtx, request.ID, fields); updateErr != nil {
				return fmt.Errorf("failed to update request: %w", updateErr)
			}
		}

		details, _ := json.Marshal(fields)
		actorID := actor.ID
		audit := &model.AuditLog{
			UserID:     &actorID,
			Action:     model.ActionUpdateRequest,
			EntityID:   request.ID.String(),
			EntityName: request.Title,
			Details:    string(details),
		}
		return s.auditRepo.Log(txCtx, audit)
	})
	if err != nil {
		return nil, &workflow.PersistenceError{Err: err}
	}

	full, err := s.requestRepo.FindByIDFull(ctx, request.ID)
	if err != nil {
		return nil, &workflow.PersistenceError{Err: err}
	}
	return toRequestResponse(full), nil
}

func (s *requestService) Delete(ctx context.Context, actor workflow.Actor, id uuid.UUID) error {
	request, err := s.requestRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("request not found: %w", err)
	}

	if err := workflow.CanDelete(actor, request); err != nil {
		return err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if deleteErr := s.requestRepo.Delete(txCtx, request.ID); deleteErr != nil {
			return fmt.Errorf("failed to delete request: %w", deleteErr)
		}
		actorID := actor.ID
		audit := &model.AuditLog{
			UserID:     &actorID,
			Action:     model.ActionDeleteRequest,
			EntityID:   request.ID.String(),
			EntityName: request.Title,
		}
		return s.auditRepo.Log(txCtx, audit)
	})
	if err != nil {
		return &workflow.PersistenceError{Err: err}
	}
	return nil
}

// --- Transitions ---

func (s *requestService) Submit(ctx context.Context, actor workflow.Actor, id uuid.UUID, comments string) (*RequestResponse, error) {
	return s.transition(ctx, id, workflow.Input{Action: workflow.ActionSubmit, Actor: actor, Comments: comments})
}

func (s *requestService) ApproveAsDirectManager(ctx context.Context, actor workflow.Actor, id uuid.UUID, comments string) (*RequestResponse, error) {
	return s.transition(ctx, id, workflow.Input{Action: workflow.ActionApproveDM, Actor: actor, Comments: comments})
}

func (s *requestService) ApproveAsAccountant(ctx context.Context, actor workflow.Actor, id uuid.UUID, comments string) (*RequestResponse, error) {
	return s.transition(ctx, id, workflow.Input{Action: workflow.ActionApproveAccountant, Actor: actor, Comments: comments})
}

func (s *requestService) ApproveAsFinalManager(ctx context.Context, actor workflow.Actor, id uuid.UUID, comments string) (*RequestResponse, error) {
	return s.transition(ctx, id, workflow.Input{Action: workflow.ActionApproveFinal, Actor: actor, Comments: comments})
}

func (s *requestService) TransferFunds(ctx context.Context, actor workflow.Actor, id uuid.UUID, comments, transactionRef string) (*RequestResponse, error) {
	return s.transition(ctx, id, workflow.Input{
		Action:               workflow.ActionTransferFunds,
		Actor:                actor,
		Comments:             comments,
		TransactionReference: transactionRef,
	})
}

func (s *requestService) Reject(ctx context.Context, actor workflow.Actor, id uuid.UUID, comments string) (*RequestResponse, error) {
	return s.transition(ctx, id, workflow.Input{Action: workflow.ActionReject, Actor: actor, Comments: comments})
}

func (s *requestService) Return(ctx context.Context, actor workflow.Actor, id uuid.UUID, comments string) (*RequestResponse, error) {
	return s.transition(ctx, id, workflow.Input{Action: workflow.ActionReturn, Actor: actor, Comments: comments})
}

func (s *requestService) Cancel(ctx context.Context, actor workflow.Actor, id uuid.UUID, comments string) (*RequestResponse, error) {
	return s.transition(ctx, id, workflow.Input{Action: workflow.ActionCancel, Actor: actor, Comments: comments})
}

// transition is the shared policy → machine → executor pipeline.
func (s *requestService) transition(ctx context.Context, id uuid.UUID, in workflow.Input) (*RequestResponse, error) {
	request, err := s.requestRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("request not found: %w", err)
	}

	if err := workflow.Authorize(in.Actor, request, in.Action); err != nil {
		return nil, err
	}

	in.Now = time.Now()
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

// --- Helpers ---

func parseItems(dtos []RequestItemDTO) ([]model.RequestItem, error) {
	items := make([]model.RequestItem, 0, len(dtos))
	for _, dto := range dtos {
		price, err := decimal.NewFromString(dto.UnitPrice)
		if err != nil || price.IsNegative() {
			return nil, &workflow.ValidationError{Field: "items.unit_price", Message: "unit_price must be a non-negative decimal"}
		}
		if dto.Quantity <= 0 {
			return nil, &workflow.ValidationError{Field: "items.quantity", Message: "quantity must be positive"}
		}
		items = append(items, model.RequestItem{
			Description: dto.Description,
			Quantity:    dto.Quantity,
			UnitPrice:   price,
		})
	}
	return items, nil
}

func parseProjectDetail(dto ProjectDetailDTO) (*model.ProjectDetail, error) {
	start, err := time.Parse(time.RFC3339, dto.StartDate)
	if err != nil {
		return nil, &workflow.ValidationError{Field: "project_detail.start_date", Message: "start_date must be RFC3339"}
	}
	end, err := time.Parse(time.RFC3339, dto.EndDate)
	if err != nil {
		return nil, &workflow.ValidationError{Field: "project_detail.end_date", Message: "end_date must be RFC3339"}
	}
	if end.Before(start) {
		return nil, &workflow.ValidationError{Field: "project_detail.end_date", Message: "end_date must not precede start_date"}
	}

	detail := &model.ProjectDetail{
		StartDate:      start,
		EndDate:        end,
		RiskAssessment: dto.RiskAssessment,
	}
	for _, m := range dto.Milestones {
		due, err := time.Parse(time.RFC3339, m.DueDate)
		if err != nil {
			return nil, &workflow.ValidationError{Field: "project_detail.milestones.due_date", Message: "due_date must be RFC3339"}
		}
		amount := decimal.Zero
		if m.Amount != "" {
			amount, err = decimal.NewFromString(m.Amount)
			if err != nil {
				return nil, &workflow.ValidationError{Field: "project_detail.milestones.amount", Message: "amount must be a decimal"}
			}
		}
		detail.Milestones = append(detail.Milestones, model.Milestone{
			Title:   m.Title,
			DueDate: due,
			Amount:  amount,
		})
	}
	return detail, nil
}

func toRequestResponse(r *model.Request) *RequestResponse {
	resp := &RequestResponse{
		ID:           r.ID.String(),
		RequesterID:  r.RequesterID.String(),
		DepartmentID: r.DepartmentID.String(),
		Type:         r.Type,
		Status:       r.Status,
		Title:        r.Title,
		Description:  r.Description,
		TotalCost:    r.TotalCost.StringFixed(4),
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
	}
	if r.Requester != nil {
		resp.RequesterName = r.Requester.Username
	}
	if r.SubmittedAt != nil {
		s := r.SubmittedAt.Format(time.RFC3339)
		resp.SubmittedAt = &s
	}
	if r.CompletedAt != nil {
		s := r.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &s
	}
	resp.TransactionReference = r.TransactionReference

	for _, item := range r.Items {
		resp.Items = append(resp.Items, RequestItemResponse{
			ID:          item.ID.String(),
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.StringFixed(4),
			LineTotal:   item.LineTotal().StringFixed(4),
		})
	}
	for i := range r.Quotes {
		resp.Quotes = append(resp.Quotes, toQuoteResponse(r.Quotes[i]))
	}
	for _, h := range r.History {
		entry := HistoryEntryResponse{
			ID:          h.ID,
			ActorID:     h.ActorID.String(),
			Action:      h.Action,
			StatusAfter: h.StatusAfter,
			Comments:    h.Comments,
			CreatedAt:   h.CreatedAt.Format(time.RFC3339),
		}
		if h.Actor != nil {
			entry.ActorName = h.Actor.Username
		}
		resp.History = append(resp.History, entry)
	}
	return resp
}
