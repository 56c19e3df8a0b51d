package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"projectos/internal/auth"
	"projectos/internal/model"
	"projectos/internal/repository"
	"projectos/pkg/currency"

	"github.com/google/uuid"
)

// --- DTOs ---

type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	ClientName  string `json:"client_name" binding:"required"`
	ClientEmail string `json:"client_email" binding:"required,email"`
}

// AddBudgetItemRequest takes the cost either as integer cents or as a decimal amount in
// major units ("1999.99"). Exactly one must be set.
type AddBudgetItemRequest struct {
	Name              string `json:"name" binding:"required"`
	ApprovedCostCents *int64 `json:"approved_cost_cents"`
	ApprovedCost      string `json:"approved_cost"`
}

type ProjectResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ClientName  string `json:"client_name"`
	ClientEmail string `json:"client_email"`
	CreatedAt   string `json:"created_at"`
}

type BudgetItemResponse struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	ApprovedCostCents int64  `json:"approved_cost_cents"`
	ApprovedCost      string `json:"approved_cost"`
	CreatedAt         string `json:"created_at"`
}

type MoneySnapshotResponse struct {
	model.BudgetSnapshot
	Currency        string `json:"currency"`
	BaseBudget      string `json:"base_budget"`
	ApprovedChanges string `json:"approved_changes"`
	ApprovedTotal   string `json:"approved_total"`
}

type ProjectSummaryResponse struct {
	Project        ProjectResponse         `json:"project"`
	BudgetItems    []BudgetItemResponse    `json:"budget_items"`
	ChangeRequests []ChangeRequestResponse `json:"change_requests"`
	Money          MoneySnapshotResponse   `json:"money"`
}

// --- Interface ---

type ProjectService interface {
	CreateProject(ctx context.Context, session *auth.Session, req CreateProjectRequest) (ProjectResponse, error)
	ListProjects(ctx context.Context, session *auth.Session) ([]ProjectResponse, error)
	GetProjectSummary(ctx context.Context, session *auth.Session, projectID uuid.UUID) (ProjectSummaryResponse, error)
	AddBudgetItem(ctx context.Context, session *auth.Session, projectID uuid.UUID, req AddBudgetItemRequest) (BudgetItemResponse, error)
}

type projectService struct {
	projectRepo       repository.ProjectRepository
	budgetItemRepo    repository.BudgetItemRepository
	changeRequestRepo repository.ChangeRequestRepository
	audit             AuditService
	txManager         repository.TransactionManager
	formatter         currency.Formatter
	links             LinkBuilder
}

func NewProjectService(
	projectRepo repository.ProjectRepository,
	budgetItemRepo repository.BudgetItemRepository,
	changeRequestRepo repository.ChangeRequestRepository,
	audit AuditService,
	txManager repository.TransactionManager,
	formatter currency.Formatter,
	links LinkBuilder,
) ProjectService {
	return &projectService{
		projectRepo:       projectRepo,
		budgetItemRepo:    budgetItemRepo,
		changeRequestRepo: changeRequestRepo,
		audit:             audit,
		txManager:         txManager,
		formatter:         formatter,
		links:             links,
	}
}

// --- Implementation ---

func (s *projectService) CreateProject(ctx context.Context, session *auth.Session, req CreateProjectRequest) (ProjectResponse, error) {
	if session == nil {
		return ProjectResponse{}, unauthenticatedError()
	}

	name := strings.TrimSpace(req.Name)
	clientName := strings.TrimSpace(req.ClientName)
	if name == "" || clientName == "" {
		return ProjectResponse{}, validationError("Project name and client name are required.")
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(req.ClientEmail))
	if err != nil {
		return ProjectResponse{}, validationError("Client email is invalid.")
	}

	project := model.Project{
		Name:        name,
		ClientName:  clientName,
		ClientEmail: addr.Address,
		OwnerID:     session.UserID,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.projectRepo.Create(txCtx, &project); createErr != nil {
			return storageError("create project", createErr)
		}
		_, auditErr := s.audit.Record(txCtx, AuditEvent{
			ProjectID:  project.ID,
			ActorID:    &session.UserID,
			EntityType: model.EntityProject,
			EntityID:   project.ID,
			Action:     model.ActionProjectCreated,
			Meta:       map[string]interface{}{"name": project.Name, "client_name": project.ClientName},
		})
		return auditErr
	})
	if err != nil {
		return ProjectResponse{}, passThrough("create project", err)
	}

	return toProjectResponse(project), nil
}

func (s *projectService) ListProjects(ctx context.Context, session *auth.Session) ([]ProjectResponse, error) {
	if session == nil {
		return nil, unauthenticatedError()
	}
	projects, err := s.projectRepo.ListByOwner(ctx, session.UserID)
	if err != nil {
		return nil, storageError("list projects", err)
	}
	res := make([]ProjectResponse, 0, len(projects))
	for _, p := range projects {
		res = append(res, toProjectResponse(p))
	}
	return res, nil
}

func (s *projectService) GetProjectSummary(ctx context.Context, session *auth.Session, projectID uuid.UUID) (ProjectSummaryResponse, error) {
	if session == nil {
		return ProjectSummaryResponse{}, unauthenticatedError()
	}
	project, err := s.projectRepo.FindOwned(ctx, session.UserID, projectID)
	if err != nil {
		return ProjectSummaryResponse{}, lookupError("load project", "Project not found.", err)
	}

	items, err := s.budgetItemRepo.ListByProject(ctx, project.ID)
	if err != nil {
		return ProjectSummaryResponse{}, storageError("list budget items", err)
	}
	crs, err := s.changeRequestRepo.ListByProject(ctx, project.ID)
	if err != nil {
		return ProjectSummaryResponse{}, storageError("list change requests", err)
	}

	snap := ComputeSnapshot(items, crs)
	resp := ProjectSummaryResponse{
		Project:        toProjectResponse(*project),
		BudgetItems:    make([]BudgetItemResponse, 0, len(items)),
		ChangeRequests: make([]ChangeRequestResponse, 0, len(crs)),
		Money: MoneySnapshotResponse{
			BudgetSnapshot:  snap,
			Currency:        s.formatter.Code(),
			BaseBudget:      s.formatter.Format(snap.BaseBudgetCents),
			ApprovedChanges: s.formatter.Format(snap.ApprovedChangesCents),
			ApprovedTotal:   s.formatter.Format(snap.ApprovedTotalCents),
		},
	}
	for _, item := range items {
		resp.BudgetItems = append(resp.BudgetItems, s.toBudgetItemResponse(item))
	}
	for _, cr := range crs {
		resp.ChangeRequests = append(resp.ChangeRequests, toChangeRequestResponse(cr, s.formatter, s.links))
	}
	return resp, nil
}

func (s *projectService) AddBudgetItem(ctx context.Context, session *auth.Session, projectID uuid.UUID, req AddBudgetItemRequest) (BudgetItemResponse, error) {
	if session == nil {
		return BudgetItemResponse{}, unauthenticatedError()
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return BudgetItemResponse{}, validationError("Item name is required.")
	}
	cost, err := resolveCents(req.ApprovedCostCents, req.ApprovedCost, "approved cost")
	if err != nil {
		return BudgetItemResponse{}, err
	}
	if cost < 0 {
		return BudgetItemResponse{}, validationError("Approved cost must not be negative.")
	}

	var item model.BudgetItem
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		project, findErr := s.projectRepo.FindOwned(txCtx, session.UserID, projectID)
		if findErr != nil {
			return lookupError("load project", "Project not found.", findErr)
		}

		item = model.BudgetItem{
			ProjectID:         project.ID,
			Name:              name,
			ApprovedCostCents: cost,
		}
		if createErr := s.budgetItemRepo.Create(txCtx, &item); createErr != nil {
			return storageError("create budget item", createErr)
		}

		_, auditErr := s.audit.Record(txCtx, AuditEvent{
			ProjectID:  project.ID,
			ActorID:    &session.UserID,
			EntityType: model.EntityBudgetItem,
			EntityID:   item.ID,
			Action:     model.ActionBudgetItemAdded,
			Meta:       map[string]interface{}{"name": item.Name, "approved_cost_cents": item.ApprovedCostCents},
		})
		return auditErr
	})
	if err != nil {
		return BudgetItemResponse{}, passThrough("add budget item", err)
	}

	return s.toBudgetItemResponse(item), nil
}

// --- Helpers ---

// resolveCents accepts either an explicit cents value or a decimal major-unit string.
func resolveCents(cents *int64, amount, field string) (int64, error) {
	amount = strings.TrimSpace(amount)
	switch {
	case cents != nil && amount != "":
		return 0, validationError("Provide the " + field + " either in cents or as an amount, not both.")
	case cents != nil:
		if err := currency.CheckRange(*cents); err != nil {
			return 0, validationError("The " + field + " is out of range.")
		}
		return *cents, nil
	case amount != "":
		parsed, err := currency.ParseCents(amount)
		if err != nil {
			if errors.Is(err, currency.ErrOutOfRange) {
				return 0, validationError("The " + field + " is out of range.")
			}
			return 0, validationError("The " + field + " is not a valid amount.")
		}
		return parsed, nil
	default:
		return 0, validationError("The " + field + " is required.")
	}
}

func toProjectResponse(p model.Project) ProjectResponse {
	return ProjectResponse{
		ID:          p.ID.String(),
		Name:        p.Name,
		ClientName:  p.ClientName,
		ClientEmail: p.ClientEmail,
		CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *projectService) toBudgetItemResponse(item model.BudgetItem) BudgetItemResponse {
	return BudgetItemResponse{
		ID:                item.ID.String(),
		Name:              item.Name,
		ApprovedCostCents: item.ApprovedCostCents,
		ApprovedCost:      s.formatter.Format(item.ApprovedCostCents),
		CreatedAt:         item.CreatedAt.UTC().Format(time.RFC3339),
	}
}
