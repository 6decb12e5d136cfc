package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RequestType enum constants
const (
	RequestTypePurchase = "PURCHASE"
	RequestTypeProject  = "PROJECT"
)

// Request represents a spend request (purchase or project) moving through
// the approval chain. After leaving DRAFT it is mutated only through
// state-machine transitions.
type Request struct {
	ID                   uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequesterID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"requester_id"`
	Requester            *User           `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	DepartmentID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"department_id"`
	Department           *Department     `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
	Type                 string          `gorm:"type:varchar(20);not null" json:"type"` // PURCHASE, PROJECT
	Status               string          `gorm:"type:varchar(30);not null;default:'DRAFT';index" json:"status"`
	Title                string          `gorm:"type:varchar(255);not null" json:"title"`
	Description          string          `gorm:"type:text" json:"description"`
	TotalCost            decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"total_cost"`
	SubmittedAt          *time.Time      `json:"submitted_at"`
	CompletedAt          *time.Time      `json:"completed_at"`
	TransactionReference *string         `gorm:"type:varchar(100)" json:"transaction_reference"`

	Items         []RequestItem          `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE" json:"items"`
	ProjectDetail *ProjectDetail         `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE" json:"project_detail,omitempty"`
	Quotes        []PriceQuote           `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE" json:"quotes,omitempty"`
	History       []ApprovalHistoryEntry `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE" json:"history,omitempty"`
	Attachments   []Attachment           `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE" json:"attachments,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RequestItem represents a line item within a purchase request
type RequestItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"request_id"`
	Description string          `gorm:"type:varchar(255);not null" json:"description"`
	Quantity    int             `gorm:"type:int;not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
}

// LineTotal returns quantity x unit price for this item
func (i RequestItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ItemsTotal sums quantity x unit price across all items. For PURCHASE
// requests this is the authoritative total cost.
func (r Request) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// SelectedQuote returns the selected quote, if any
func (r Request) SelectedQuote() *PriceQuote {
	for i := range r.Quotes {
		if r.Quotes[i].IsSelected {
			return &r.Quotes[i]
		}
	}
	return nil
}

// ProjectDetail holds the project-specific fields of a PROJECT request
type ProjectDetail struct {
	ID             uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID      uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex" json:"request_id"`
	StartDate      time.Time   `gorm:"not null" json:"start_date"`
	EndDate        time.Time   `gorm:"not null" json:"end_date"`
	RiskAssessment string      `gorm:"type:text" json:"risk_assessment"`
	Milestones     []Milestone `gorm:"foreignKey:ProjectDetailID;constraint:OnDelete:CASCADE" json:"milestones"`
}

// Milestone represents a deliverable stage within a project request
type Milestone struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectDetailID uuid.UUID       `gorm:"type:uuid;not null;index" json:"project_detail_id"`
	Title           string          `gorm:"type:varchar(255);not null" json:"title"`
	DueDate         time.Time       `gorm:"not null" json:"due_date"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"amount"`
}
