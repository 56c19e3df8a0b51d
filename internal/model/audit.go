package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	EntityProject       = "project"
	EntityBudgetItem    = "budget_item"
	EntityChangeRequest = "change_request"
)

const (
	ActionProjectCreated       = "project_created"
	ActionBudgetItemAdded      = "budget_item_added"
	ActionChangeRequestCreated = "change_request_created"
	ActionChangeRequestSent    = "change_request_sent"
	ActionClientApproved       = "client_approved"
	ActionClientRejected       = "client_rejected"
)

// AuditLog tracks who did what and when on a project. Rows are never updated or deleted.
// IDs are UUIDv7 so that id order follows insertion order within a process.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID  uuid.UUID  `gorm:"type:uuid;not null;index:idx_audit_project_created,priority:1" json:"project_id"`
	ActorID    *uuid.UUID `gorm:"type:uuid;index" json:"actor_id"` // nil for the public client
	Actor      *User      `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	EntityType string     `gorm:"type:varchar(50);not null" json:"entity_type"`
	EntityID   string     `gorm:"type:varchar(50);not null;index" json:"entity_id"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	Meta       string     `gorm:"type:jsonb" json:"meta"` // serialized JSON object
	CreatedAt  time.Time  `gorm:"index:idx_audit_project_created,priority:2" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		a.ID = id
	}
	return nil
}
