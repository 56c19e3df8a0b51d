package service

import (
	"context"
	"encoding/json"
	"time"

	"projectos/internal/metrics"
	"projectos/internal/model"
	"projectos/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// --- DTOs ---

type DecideRequest struct {
	Token  string `json:"token"`
	Action string `json:"action"`
}

// ChangeRequestView is what a client sees behind an approval link.
type ChangeRequestView struct {
	ID          string `json:"id"`
	Reason      string `json:"reason"`
	DeltaCents  int64  `json:"delta_cents"`
	DelayDays   int    `json:"delay_days"`
	Status      string `json:"status"`
	ProjectName string `json:"project_name"`
	ClientName  string `json:"client_name"`
}

type DecisionResponse struct {
	Status string `json:"status"`
}

// ClientInfo is best-effort forensic data about the deciding client. It is never used
// for authorization.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// DecisionEvent is pushed to the project owner after a client decides.
type DecisionEvent struct {
	Type            string `json:"type"`
	ProjectID       string `json:"project_id"`
	ChangeRequestID string `json:"change_request_id"`
	Status          string `json:"status"`
	DecidedAt       string `json:"decided_at"`
}

const EventChangeRequestDecided = "change_request.decided"

// Notifier delivers a message to every live connection of a user.
type Notifier interface {
	Notify(userID uuid.UUID, message []byte)
}

// --- Interface ---

// ApprovalService is the public approval gateway: the only mutation reachable without a session.
type ApprovalService interface {
	FetchByToken(ctx context.Context, token string) (ChangeRequestView, error)
	Decide(ctx context.Context, req DecideRequest, client ClientInfo) (DecisionResponse, error)
}

type approvalService struct {
	changeRequestRepo repository.ChangeRequestRepository
	approvalRepo      repository.ApprovalRepository
	audit             AuditService
	txManager         repository.TransactionManager
	notifier          Notifier
	log               logrus.FieldLogger
	now               func() time.Time
}

// NewApprovalService wires the gateway. notifier may be nil.
func NewApprovalService(
	changeRequestRepo repository.ChangeRequestRepository,
	approvalRepo repository.ApprovalRepository,
	audit AuditService,
	txManager repository.TransactionManager,
	notifier Notifier,
	log logrus.FieldLogger,
) ApprovalService {
	return &approvalService{
		changeRequestRepo: changeRequestRepo,
		approvalRepo:      approvalRepo,
		audit:             audit,
		txManager:         txManager,
		notifier:          notifier,
		log:               log,
		now:               time.Now,
	}
}

// --- Implementation ---

func (s *approvalService) FetchByToken(ctx context.Context, token string) (ChangeRequestView, error) {
	if token == "" {
		return ChangeRequestView{}, validationError("Missing token.")
	}
	cr, err := s.changeRequestRepo.FindByToken(ctx, token)
	if err != nil {
		return ChangeRequestView{}, lookupError("find change request by token", "Not found.", err)
	}

	return ChangeRequestView{
		ID:          cr.ID.String(),
		Reason:      cr.Reason,
		DeltaCents:  cr.DeltaCents,
		DelayDays:   cr.DelayDays,
		Status:      string(cr.Status),
		ProjectName: cr.Project.Name,
		ClientName:  cr.Project.ClientName,
	}, nil
}

// Decide finalizes a pending change request. The status guard is a conditional update
// inside the same transaction as the approval row and the audit entry, so of two
// concurrent decisions exactly one commits and the other gets a conflict.
func (s *approvalService) Decide(ctx context.Context, req DecideRequest, client ClientInfo) (DecisionResponse, error) {
	if req.Token == "" || req.Action == "" {
		return DecisionResponse{}, validationError("Missing data.")
	}
	decision := model.Decision(req.Action)
	if !decision.Valid() {
		return DecisionResponse{}, validationError("Invalid action.")
	}

	var (
		cr  *model.ChangeRequest
		now = s.now()
	)
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		found, findErr := s.changeRequestRepo.FindByToken(txCtx, req.Token)
		if findErr != nil {
			return lookupError("find change request by token", "Not found.", findErr)
		}
		cr = found

		if cr.Status != model.StatusPending {
			return conflictError("Change request already finalized.")
		}

		ok, casErr := s.changeRequestRepo.CompareAndSetStatus(txCtx, cr.ID, model.StatusPending, decision.Status(), now)
		if casErr != nil {
			return storageError("update change request status", casErr)
		}
		if !ok {
			return conflictError("Change request already finalized.")
		}
		if transErr := cr.TransitionTo(decision.Status(), now); transErr != nil {
			return transErr
		}

		approval := model.Approval{
			ChangeRequestID: cr.ID,
			Action:          decision,
			ClientIP:        optional(client.IP),
			ClientUserAgent: optional(client.UserAgent),
		}
		if createErr := s.approvalRepo.Create(txCtx, &approval); createErr != nil {
			return storageError("insert approval", createErr)
		}

		action := model.ActionClientApproved
		if decision == model.DecisionRejected {
			action = model.ActionClientRejected
		}
		_, auditErr := s.audit.Record(txCtx, AuditEvent{
			ProjectID:  cr.ProjectID,
			EntityType: model.EntityChangeRequest,
			EntityID:   cr.ID,
			Action:     action,
			Meta:       map[string]interface{}{"action": string(decision)},
		})
		if auditErr != nil {
			return storageError("append audit entry", auditErr)
		}
		return nil
	})
	if err != nil {
		if isConflict(err) {
			metrics.DecisionConflicts.Inc()
		}
		return DecisionResponse{}, passThrough("decide change request", err)
	}

	metrics.ChangeRequestTransitions.WithLabelValues(string(cr.Status)).Inc()
	s.log.WithFields(logrus.Fields{
		"change_request_id": cr.ID.String(),
		"project_id":        cr.ProjectID.String(),
		"status":            string(cr.Status),
	}).Info("client decided change request")
	s.notifyOwner(cr, now)

	return DecisionResponse{Status: string(cr.Status)}, nil
}

func (s *approvalService) notifyOwner(cr *model.ChangeRequest, at time.Time) {
	if s.notifier == nil || cr.Project == nil {
		return
	}
	payload, err := json.Marshal(DecisionEvent{
		Type:            EventChangeRequestDecided,
		ProjectID:       cr.ProjectID.String(),
		ChangeRequestID: cr.ID.String(),
		Status:          string(cr.Status),
		DecidedAt:       at.UTC().Format(time.RFC3339),
	})
	if err != nil {
		s.log.WithError(err).Warn("encode decision event")
		return
	}
	s.notifier.Notify(cr.Project.OwnerID, payload)
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
