package model

import (
	"time"

	"github.com/google/uuid"
)

// ApprovalHistoryEntry is one row of a request's audit trail: who performed
// which transition, when, and the status it produced. Append-only; rows are
// never updated or deleted. The last entry's StatusAfter always equals the
// request's current status.
type ApprovalHistoryEntry struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	RequestID   uuid.UUID `gorm:"type:uuid;not null;index" json:"request_id"`
	ActorID     uuid.UUID `gorm:"type:uuid;not null" json:"actor_id"`
	Actor       *User     `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	Action      string    `gorm:"type:varchar(30);not null" json:"action"`
	StatusAfter string    `gorm:"type:varchar(30);not null" json:"status_after"`
	Comments    string    `gorm:"type:text" json:"comments"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}
