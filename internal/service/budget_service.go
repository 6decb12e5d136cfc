package service

import (
	"context"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CreateBudgetDTO struct {
	DepartmentID string `json:"department_id" binding:"required"`
	FiscalYear   int    `json:"fiscal_year" binding:"required,gte=2000"`
	TotalAmount  string `json:"total_amount" binding:"required,decimalgt0"` // Decimal string
}

type BudgetResponse struct {
	ID             string `json:"id"`
	DepartmentID   string `json:"department_id"`
	DepartmentName string `json:"department_name,omitempty"`
	FiscalYear     int    `json:"fiscal_year"`
	TotalAmount    string `json:"total_amount"`
	SpentAmount    string `json:"spent_amount"`
	Remaining      string `json:"remaining"`
	CreatedAt      string `json:"created_at"`
}

// --- Interface ---

// BudgetService exposes department budgets. Consumption happens inside the
// fund-transfer transaction via the effect executor, not here.
type BudgetService interface {
	CreateBudget(ctx context.Context, req CreateBudgetDTO) (*BudgetResponse, error)
	GetBudget(ctx context.Context, departmentID uuid.UUID, fiscalYear int) (*BudgetResponse, error)
	ListBudgets(ctx context.Context, fiscalYear int) ([]BudgetResponse, error)
}

type budgetService struct {
	budgetRepo repository.BudgetRepository
}

func NewBudgetService(budgetRepo repository.BudgetRepository) BudgetService {
	return &budgetService{budgetRepo: budgetRepo}
}

// --- Implementation ---

func (s *budgetService) CreateBudget(ctx context.Context, req CreateBudgetDTO) (*BudgetResponse, error) {
	departmentID, err := uuid.Parse(req.DepartmentID)
	if err != nil {
		return nil, &workflow.ValidationError{Field: "department_id", Message: "invalid department id"}
	}

	total, err := decimal.NewFromString(req.TotalAmount)
	if err != nil || total.LessThanOrEqual(decimal.Zero) {
		return nil, &workflow.ValidationError{Field: "total_amount", Message: "total_amount must be a positive decimal"}
	}

	budget := &model.Budget{
		DepartmentID: departmentID,
		FiscalYear:   req.FiscalYear,
		TotalAmount:  total,
		SpentAmount:  decimal.Zero,
	}
	if err := s.budgetRepo.Create(ctx, budget); err != nil {
		return nil, fmt.Errorf("failed to create budget: %w", err)
	}

	resp := toBudgetResponse(*budget)
	return &resp, nil
}

func (s *budgetService) GetBudget(ctx context.Context, departmentID uuid.UUID, fiscalYear int) (*BudgetResponse, error) {
	budget, err := s.budgetRepo.FindByDepartmentYear(ctx, departmentID, fiscalYear)
	if err != nil {
		return nil, fmt.Errorf("budget not found: %w", err)
	}
	resp := toBudgetResponse(*budget)
	return &resp, nil
}

func (s *budgetService) ListBudgets(ctx context.Context, fiscalYear int) ([]BudgetResponse, error) {
	budgets, err := s.budgetRepo.List(ctx, fiscalYear)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch budgets: %w", err)
	}

	result := make([]BudgetResponse, 0, len(budgets))
	for _, b := range budgets {
		result = append(result, toBudgetResponse(b))
	}
	return result, nil
}

// --- Helpers ---

func toBudgetResponse(b model.Budget) BudgetResponse {
	resp := BudgetResponse{
		ID:           b.ID.String(),
		DepartmentID: b.DepartmentID.String(),
		FiscalYear:   b.FiscalYear,
		TotalAmount:  b.TotalAmount.StringFixed(4),
		SpentAmount:  b.SpentAmount.StringFixed(4),
		Remaining:    b.Remaining().StringFixed(4),
		CreatedAt:    b.CreatedAt.Format(time.RFC3339),
	}
	if b.Department != nil {
		resp.DepartmentName = b.Department.Name
	}
	return resp
}
