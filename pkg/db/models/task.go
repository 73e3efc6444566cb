package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/selleropsapp/sellerops-backend/pkg/enums"
)

// Task is a recurring operational to-do tracked on the dashboard.
type Task struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title       string           `gorm:"column:title;not null"`
	Description *string          `gorm:"column:description"`
	Type        enums.TaskType   `gorm:"column:type;not null"`
	Status      enums.TaskStatus `gorm:"column:status;not null;default:'pending';index"`
	AssigneeID  *uuid.UUID       `gorm:"column:assignee_id;type:uuid"`
	DueAt       time.Time        `gorm:"column:due_at;not null;index"`

	// Completion evidence: operators attach a proof URL when closing a task.
	CompletedAt   *time.Time `gorm:"column:completed_at"`
	CompletedBy   *uuid.UUID `gorm:"column:completed_by;type:uuid"`
	AttachmentURL *string    `gorm:"column:attachment_url"`

	// Admin sign-off after reviewing the attachment.
	VerifiedAt *time.Time `gorm:"column:verified_at"`
	VerifiedBy *uuid.UUID `gorm:"column:verified_by;type:uuid"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (Task) TableName() string { return "tasks" }
