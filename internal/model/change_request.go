package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChangeRequestStatus is the lifecycle state of a change request.
type ChangeRequestStatus string

const (
	StatusDraft    ChangeRequestStatus = "draft"
	StatusPending  ChangeRequestStatus = "pending"
	StatusApproved ChangeRequestStatus = "approved"
	StatusRejected ChangeRequestStatus = "rejected"
)

// ErrInvalidTransition is returned for any status change outside the transition table.
var ErrInvalidTransition = errors.New("invalid change request status transition")

// allowedTransitions is the complete lifecycle: draft -> pending -> approved | rejected.
var allowedTransitions = map[ChangeRequestStatus][]ChangeRequestStatus{
	StatusDraft:   {StatusPending},
	StatusPending: {StatusApproved, StatusRejected},
}

func (s ChangeRequestStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition exists out of s.
func (s ChangeRequestStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to ChangeRequestStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition is CanTransition as an error.
func CheckTransition(from, to ChangeRequestStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// ChangeRequest is a proposed budget (DeltaCents) and timeline (DelayDays) change that the
// client signs off through the public link addressed by ClientToken.
type ChangeRequest struct {
	ID          uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID   uuid.UUID           `gorm:"type:uuid;not null;index" json:"project_id"`
	Project     *Project            `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE;" json:"-"`
	CreatedBy   uuid.UUID           `gorm:"type:uuid;not null;index" json:"created_by"`
	Reason      string              `gorm:"type:text;not null" json:"reason"`
	DeltaCents  int64               `gorm:"not null" json:"delta_cents"`
	DelayDays   int                 `gorm:"not null;default:0" json:"delay_days"`
	Status      ChangeRequestStatus `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	ClientToken string              `gorm:"type:varchar(64);uniqueIndex;not null" json:"client_token"`
	SentAt      *time.Time          `json:"sent_at"`
	DecidedAt   *time.Time          `json:"decided_at"`
	CreatedAt   time.Time           `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func (cr *ChangeRequest) BeforeCreate(_ *gorm.DB) error {
	if cr.ID == uuid.Nil {
		cr.ID = uuid.New()
	}
	return nil
}

// TransitionTo moves the in-memory status along the transition table and stamps
// SentAt/DecidedAt. It is the only place Status is changed after creation.
func (cr *ChangeRequest) TransitionTo(next ChangeRequestStatus, at time.Time) error {
	if err := CheckTransition(cr.Status, next); err != nil {
		return err
	}
	cr.Status = next
	cr.UpdatedAt = at
	switch next {
	case StatusPending:
		cr.SentAt = &at
	case StatusApproved, StatusRejected:
		cr.DecidedAt = &at
	}
	return nil
}

// Decision is a client's verdict on a pending change request.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

func (d Decision) Valid() bool {
	return d == DecisionApproved || d == DecisionRejected
}

// Status is the terminal status a decision leads to.
func (d Decision) Status() ChangeRequestStatus {
	return ChangeRequestStatus(d)
}

// Approval records a client decision. IP and user agent are advisory forensic data only.
type Approval struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ChangeRequestID uuid.UUID      `gorm:"type:uuid;not null;index" json:"change_request_id"`
	ChangeRequest   *ChangeRequest `gorm:"foreignKey:ChangeRequestID;constraint:OnDelete:CASCADE;" json:"-"`
	Action          Decision       `gorm:"type:varchar(20);not null" json:"action"`
	ClientIP        *string        `gorm:"type:varchar(255)" json:"client_ip"`
	ClientUserAgent *string        `gorm:"type:text" json:"client_user_agent"`
	CreatedAt       time.Time      `json:"created_at"`
}

func (a *Approval) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
