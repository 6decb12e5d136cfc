package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Department groups users and budgets
type Department struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Budget tracks spend allowance per department and fiscal year.
// Invariant: SpentAmount <= TotalAmount, enforced by a guarded UPDATE at
// fund-transfer time rather than application-side checks.
type Budget struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DepartmentID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_budget_dept_year" json:"department_id"`
	Department   *Department     `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
	FiscalYear   int             `gorm:"not null;uniqueIndex:idx_budget_dept_year" json:"fiscal_year"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total_amount"`
	SpentAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"spent_amount"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Remaining returns the unspent portion of the budget
func (b Budget) Remaining() decimal.Decimal {
	return b.TotalAmount.Sub(b.SpentAmount)
}
