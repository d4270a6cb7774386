package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	OwnerCustomer         = "customer"
	OwnerPayment          = "payment"
	OwnerInstallationTask = "installation_task"
	OwnerRequest          = "request"
)

// Attachment is a stored object and the record that points at it.
type Attachment struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	OwnerType   string        `json:"owner_type"`
	OwnerID     snowflake.ID  `json:"owner_id"`
	ObjectKey   string        `json:"-"`
	FileName    string        `json:"file_name"`
	ContentType string        `json:"content_type"`
	SizeBytes   int64         `json:"size_bytes"`
	UploadedBy  *snowflake.ID `json:"uploaded_by,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

func (Attachment) TableName() string { return "attachments" }

func ValidOwnerType(ownerType string) bool {
	switch ownerType {
	case OwnerCustomer, OwnerPayment, OwnerInstallationTask, OwnerRequest:
		return true
	}
	return false
}
