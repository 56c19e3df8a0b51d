package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"projectos/internal/auth"
	"projectos/internal/metrics"
	"projectos/internal/model"
	"projectos/internal/repository"
	"projectos/pkg/pagination"

	"github.com/google/uuid"
)

// AuditEvent describes one state-changing action to append to the trail.
type AuditEvent struct {
	ProjectID  uuid.UUID
	ActorID    *uuid.UUID
	EntityType string
	EntityID   uuid.UUID
	Action     string
	Meta       map[string]interface{}
}

type AuditLogResponse struct {
	ID         string                 `json:"id"`
	ActorID    *string                `json:"actor_id"`
	ActorEmail string                 `json:"actor_email"`
	EntityType string                 `json:"entity_type"`
	EntityID   string                 `json:"entity_id"`
	Action     string                 `json:"action"`
	Meta       map[string]interface{} `json:"meta"`
	CreatedAt  string                 `json:"created_at"`
}

type AuditService interface {
	// Record appends an entry. Run it with the caller's transaction context so the entry and
	// the change it describes commit or roll back together.
	Record(ctx context.Context, event AuditEvent) (*model.AuditLog, error)
	ListForProject(ctx context.Context, session *auth.Session, projectID uuid.UUID, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	auditRepo   repository.AuditRepository
	projectRepo repository.ProjectRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repository.AuditRepository, projectRepo repository.ProjectRepository) AuditService {
	return &auditService{auditRepo: auditRepo, projectRepo: projectRepo}
}

func (s *auditService) Record(ctx context.Context, event AuditEvent) (*model.AuditLog, error) {
	meta := event.Meta
	if meta == nil {
		meta = map[string]interface{}{}
	}
	details, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode audit meta: %w", err)
	}

	entry := &model.AuditLog{
		ProjectID:  event.ProjectID,
		ActorID:    event.ActorID,
		EntityType: event.EntityType,
		EntityID:   event.EntityID.String(),
		Action:     event.Action,
		Meta:       string(details),
	}
	if err := s.auditRepo.Log(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to write audit log: %w", err)
	}
	metrics.AuditEntries.WithLabelValues(event.Action).Inc()
	return entry, nil
}

// ListForProject returns the owner's audit trail, newest first.
func (s *auditService) ListForProject(ctx context.Context, session *auth.Session, projectID uuid.UUID, page, limit int) ([]AuditLogResponse, int64, error) {
	if session == nil {
		return nil, 0, unauthenticatedError()
	}
	if _, err := s.projectRepo.FindOwned(ctx, session.UserID, projectID); err != nil {
		return nil, 0, lookupError("load project", "Project not found.", err)
	}

	p := pagination.New(page, limit)
	logs, total, err := s.auditRepo.ListByProject(ctx, projectID, p.Offset, p.Limit)
	if err != nil {
		return nil, 0, storageError("list audit logs", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		res = append(res, toAuditResponse(l))
	}
	return res, total, nil
}

func toAuditResponse(l model.AuditLog) AuditLogResponse {
	resp := AuditLogResponse{
		ID:         l.ID.String(),
		EntityType: l.EntityType,
		EntityID:   l.EntityID,
		Action:     l.Action,
		CreatedAt:  l.CreatedAt.UTC().Format(time.RFC3339),
	}
	if l.ActorID != nil {
		id := l.ActorID.String()
		resp.ActorID = &id
	}
	if l.Actor != nil {
		resp.ActorEmail = l.Actor.Email
	} else {
		resp.ActorEmail = "Client"
	}
	if l.Meta != "" {
		_ = json.Unmarshal([]byte(l.Meta), &resp.Meta)
	}
	return resp
}
