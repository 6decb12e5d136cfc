package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceQuote represents a vendor price offer attached to a request during
// the quoting sub-phase. At most one quote per request is selected, and the
// selection is immutable once the request leaves quoting.
type PriceQuote struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"request_id"`
	VendorName    string          `gorm:"type:varchar(255);not null" json:"vendor_name"`
	VendorContact string          `gorm:"type:varchar(255)" json:"vendor_contact"`
	VendorEmail   string          `gorm:"type:varchar(255)" json:"vendor_email"`
	VendorPhone   string          `gorm:"type:varchar(50)" json:"vendor_phone"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	ValidityDate  *time.Time      `json:"validity_date"`
	PaymentTerms  string          `gorm:"type:varchar(255)" json:"payment_terms"`
	DeliveryTime  string          `gorm:"type:varchar(255)" json:"delivery_time"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CreatorID     uuid.UUID       `gorm:"type:uuid;not null" json:"creator_id"`
	Creator       *User           `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	IsSelected    bool            `gorm:"not null;default:false" json:"is_selected"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
