package repository

import (
	"context"
	"errors"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrBudgetExceeded is returned when consuming an amount would push
// spent_amount past total_amount.
var ErrBudgetExceeded = errors.New("budget exceeded for department and fiscal year")

type BudgetRepository interface {
	Create(ctx context.Context, budget *model.Budget) error
	FindByDepartmentYear(ctx context.Context, departmentID uuid.UUID, fiscalYear int) (*model.Budget, error)
	List(ctx context.Context, fiscalYear int) ([]model.Budget, error)
	Consume(ctx context.Context, departmentID uuid.UUID, fiscalYear int, amount decimal.Decimal) error
}

type budgetRepository struct {
	db *gorm.DB
}

func NewBudgetRepository(db *gorm.DB) BudgetRepository {
	return &budgetRepository{db: db}
}

func (r *budgetRepository) Create(ctx context.Context, budget *model.Budget) error {
	return GetDB(ctx, r.db).Create(budget).Error
}

func (r *budgetRepository) FindByDepartmentYear(ctx context.Context, departmentID uuid.UUID, fiscalYear int) (*model.Budget, error) {
	var budget model.Budget
	err := GetDB(ctx, r.db).
		Preload("Department").
		Where("department_id = ? AND fiscal_year = ?", departmentID, fiscalYear).
		First(&budget).Error
	if err != nil {
		return nil, err
	}
	return &budget, nil
}

func (r *budgetRepository) List(ctx context.Context, fiscalYear int) ([]model.Budget, error) {
	var budgets []model.Budget
	query := GetDB(ctx, r.db).Preload("Department")
	if fiscalYear != 0 {
		query = query.Where("fiscal_year = ?", fiscalYear)
	}
	if err := query.Order("fiscal_year desc").Find(&budgets).Error; err != nil {
		return nil, err
	}
	return budgets, nil
}

// Consume adds amount to spent_amount with the overspend guard in the WHERE
// clause, so concurrent fund transfers in the same department/year cannot
// race past the budget total.
func (r *budgetRepository) Consume(ctx context.Context, departmentID uuid.UUID, fiscalYear int, amount decimal.Decimal) error {
	res := GetDB(ctx, r.db).Model(&model.Budget{}).
		Where("department_id = ? AND fiscal_year = ? AND spent_amount + ? <= total_amount",
			departmentID, fiscalYear, amount).
		Update("spent_amount", gorm.Expr("spent_amount + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrBudgetExceeded
	}
	return nil
}
