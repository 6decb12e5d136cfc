package model

import (
	"time"

	"github.com/google/uuid"
)

// Attachment references a stored file belonging to a request. The core only
// tracks existence and ownership; the bytes live behind the storage
// collaborator.
type Attachment struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID   uuid.UUID `gorm:"type:uuid;not null;index" json:"request_id"`
	UploaderID  uuid.UUID `gorm:"type:uuid;not null" json:"uploader_id"`
	Uploader    *User     `gorm:"foreignKey:UploaderID" json:"uploader,omitempty"`
	FileName    string    `gorm:"type:varchar(255);not null" json:"file_name"`
	StoragePath string    `gorm:"type:text;not null" json:"-"`
	ContentType string    `gorm:"type:varchar(100)" json:"content_type"`
	SizeBytes   int64     `gorm:"not null" json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}
