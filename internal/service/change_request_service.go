package service

import (
	"context"
	"strings"
	"time"

	"projectos/internal/auth"
	"projectos/internal/metrics"
	"projectos/internal/model"
	"projectos/internal/repository"
	"projectos/pkg/currency"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// --- DTOs ---

// CreateChangeRequestRequest takes the delta either as signed cents or as a decimal amount.
type CreateChangeRequestRequest struct {
	Reason     string `json:"reason" binding:"required"`
	DeltaCents *int64 `json:"delta_cents"`
	Delta      string `json:"delta"`
	DelayDays  int    `json:"delay_days" binding:"min=0"`
}

type ChangeRequestResponse struct {
	ID           string  `json:"id"`
	ProjectID    string  `json:"project_id"`
	Reason       string  `json:"reason"`
	DeltaCents   int64   `json:"delta_cents"`
	Delta        string  `json:"delta"`
	DelayDays    int     `json:"delay_days"`
	Status       string  `json:"status"`
	ClientToken  string  `json:"client_token"`
	ApprovalLink *string `json:"approval_link"`
	SentAt       *string `json:"sent_at"`
	DecidedAt    *string `json:"decided_at"`
	CreatedAt    string  `json:"created_at"`
}

// --- Interface ---

type ChangeRequestService interface {
	Create(ctx context.Context, session *auth.Session, projectID uuid.UUID, req CreateChangeRequestRequest) (ChangeRequestResponse, error)
	Send(ctx context.Context, session *auth.Session, projectID, id uuid.UUID) (ChangeRequestResponse, error)
	Get(ctx context.Context, session *auth.Session, projectID, id uuid.UUID) (ChangeRequestResponse, error)
	List(ctx context.Context, session *auth.Session, projectID uuid.UUID) ([]ChangeRequestResponse, error)
}

type changeRequestService struct {
	projectRepo       repository.ProjectRepository
	changeRequestRepo repository.ChangeRequestRepository
	audit             AuditService
	txManager         repository.TransactionManager
	formatter         currency.Formatter
	links             LinkBuilder
	log               logrus.FieldLogger
	newToken          func() (string, error)
	now               func() time.Time
}

func NewChangeRequestService(
	projectRepo repository.ProjectRepository,
	changeRequestRepo repository.ChangeRequestRepository,
	audit AuditService,
	txManager repository.TransactionManager,
	formatter currency.Formatter,
	links LinkBuilder,
	log logrus.FieldLogger,
) ChangeRequestService {
	return &changeRequestService{
		projectRepo:       projectRepo,
		changeRequestRepo: changeRequestRepo,
		audit:             audit,
		txManager:         txManager,
		formatter:         formatter,
		links:             links,
		log:               log,
		newToken:          auth.NewToken,
		now:               time.Now,
	}
}

// --- Implementation ---

// Create stores a draft with a fresh client token. The caller must own the project.
func (s *changeRequestService) Create(ctx context.Context, session *auth.Session, projectID uuid.UUID, req CreateChangeRequestRequest) (ChangeRequestResponse, error) {
	if session == nil {
		return ChangeRequestResponse{}, unauthenticatedError()
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return ChangeRequestResponse{}, validationError("A reason is required.")
	}
	if req.DelayDays < 0 {
		return ChangeRequestResponse{}, validationError("Delay days must not be negative.")
	}
	delta, err := resolveCents(req.DeltaCents, req.Delta, "cost delta")
	if err != nil {
		return ChangeRequestResponse{}, err
	}

	token, err := s.newToken()
	if err != nil {
		return ChangeRequestResponse{}, storageError("generate client token", err)
	}

	var cr model.ChangeRequest
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		project, findErr := s.projectRepo.FindOwned(txCtx, session.UserID, projectID)
		if findErr != nil {
			return lookupError("load project", "Project not found.", findErr)
		}

		cr = model.ChangeRequest{
			ProjectID:   project.ID,
			CreatedBy:   session.UserID,
			Reason:      reason,
			DeltaCents:  delta,
			DelayDays:   req.DelayDays,
			Status:      model.StatusDraft,
			ClientToken: token,
		}
		if createErr := s.changeRequestRepo.Create(txCtx, &cr); createErr != nil {
			return storageError("create change request", createErr)
		}

		_, auditErr := s.audit.Record(txCtx, AuditEvent{
			ProjectID:  project.ID,
			ActorID:    &session.UserID,
			EntityType: model.EntityChangeRequest,
			EntityID:   cr.ID,
			Action:     model.ActionChangeRequestCreated,
			Meta: map[string]interface{}{
				"reason":      cr.Reason,
				"delta_cents": cr.DeltaCents,
				"delay_days":  cr.DelayDays,
			},
		})
		return auditErr
	})
	if err != nil {
		return ChangeRequestResponse{}, passThrough("create change request", err)
	}

	return toChangeRequestResponse(cr, s.formatter, s.links), nil
}

// Send moves a draft to pending and exposes its approval link. Sending a pending request
// again changes nothing and returns the same link. Finalized requests are refused.
func (s *changeRequestService) Send(ctx context.Context, session *auth.Session, projectID, id uuid.UUID) (ChangeRequestResponse, error) {
	if session == nil {
		return ChangeRequestResponse{}, unauthenticatedError()
	}

	var cr *model.ChangeRequest
	transitioned := false
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, findErr := s.projectRepo.FindOwned(txCtx, session.UserID, projectID); findErr != nil {
			return lookupError("load project", "Project not found.", findErr)
		}
		found, findErr := s.changeRequestRepo.FindByID(txCtx, projectID, id)
		if findErr != nil {
			return lookupError("load change request", "Change request not found.", findErr)
		}
		cr = found

		switch {
		case cr.Status == model.StatusPending:
			return nil
		case cr.Status.Terminal():
			return conflictError("Change request already finalized.")
		}

		now := s.now()
		ok, casErr := s.changeRequestRepo.CompareAndSetStatus(txCtx, cr.ID, cr.Status, model.StatusPending, now)
		if casErr != nil {
			return storageError("send change request", casErr)
		}
		if !ok {
			// Someone else sent it between our read and write; re-read to report the truth.
			latest, reloadErr := s.changeRequestRepo.FindByID(txCtx, projectID, id)
			if reloadErr != nil {
				return storageError("reload change request", reloadErr)
			}
			cr = latest
			if cr.Status == model.StatusPending {
				return nil
			}
			return conflictError("Change request already finalized.")
		}
		if transErr := cr.TransitionTo(model.StatusPending, now); transErr != nil {
			return transErr
		}
		transitioned = true

		_, auditErr := s.audit.Record(txCtx, AuditEvent{
			ProjectID:  cr.ProjectID,
			ActorID:    &session.UserID,
			EntityType: model.EntityChangeRequest,
			EntityID:   cr.ID,
			Action:     model.ActionChangeRequestSent,
			Meta:       map[string]interface{}{"status": string(model.StatusPending)},
		})
		return auditErr
	})
	if err != nil {
		return ChangeRequestResponse{}, passThrough("send change request", err)
	}

	if transitioned {
		metrics.ChangeRequestTransitions.WithLabelValues(string(model.StatusPending)).Inc()
		s.log.WithFields(logrus.Fields{
			"change_request_id": cr.ID.String(),
			"project_id":        cr.ProjectID.String(),
		}).Info("change request sent to client")
	}

	return toChangeRequestResponse(*cr, s.formatter, s.links), nil
}

func (s *changeRequestService) Get(ctx context.Context, session *auth.Session, projectID, id uuid.UUID) (ChangeRequestResponse, error) {
	if session == nil {
		return ChangeRequestResponse{}, unauthenticatedError()
	}
	if _, err := s.projectRepo.FindOwned(ctx, session.UserID, projectID); err != nil {
		return ChangeRequestResponse{}, lookupError("load project", "Project not found.", err)
	}
	cr, err := s.changeRequestRepo.FindByID(ctx, projectID, id)
	if err != nil {
		return ChangeRequestResponse{}, lookupError("load change request", "Change request not found.", err)
	}
	return toChangeRequestResponse(*cr, s.formatter, s.links), nil
}

func (s *changeRequestService) List(ctx context.Context, session *auth.Session, projectID uuid.UUID) ([]ChangeRequestResponse, error) {
	if session == nil {
		return nil, unauthenticatedError()
	}
	if _, err := s.projectRepo.FindOwned(ctx, session.UserID, projectID); err != nil {
		return nil, lookupError("load project", "Project not found.", err)
	}
	crs, err := s.changeRequestRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, storageError("list change requests", err)
	}
	res := make([]ChangeRequestResponse, 0, len(crs))
	for _, cr := range crs {
		res = append(res, toChangeRequestResponse(cr, s.formatter, s.links))
	}
	return res, nil
}

// --- Helpers ---

// toChangeRequestResponse exposes the approval link only once the request has been sent.
func toChangeRequestResponse(cr model.ChangeRequest, f currency.Formatter, links LinkBuilder) ChangeRequestResponse {
	resp := ChangeRequestResponse{
		ID:          cr.ID.String(),
		ProjectID:   cr.ProjectID.String(),
		Reason:      cr.Reason,
		DeltaCents:  cr.DeltaCents,
		Delta:       f.FormatSigned(cr.DeltaCents),
		DelayDays:   cr.DelayDays,
		Status:      string(cr.Status),
		ClientToken: cr.ClientToken,
		CreatedAt:   cr.CreatedAt.UTC().Format(time.RFC3339),
	}
	if cr.Status != model.StatusDraft {
		link := links.ApprovalLink(cr.ClientToken)
		resp.ApprovalLink = &link
	}
	if cr.SentAt != nil {
		at := cr.SentAt.UTC().Format(time.RFC3339)
		resp.SentAt = &at
	}
	if cr.DecidedAt != nil {
		at := cr.DecidedAt.UTC().Format(time.RFC3339)
		resp.DecidedAt = &at
	}
	return resp
}
