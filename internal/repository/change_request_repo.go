package repository

import (
	"context"
	"time"

	"projectos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChangeRequestRepository interface {
	Create(ctx context.Context, cr *model.ChangeRequest) error
	FindByID(ctx context.Context, projectID, id uuid.UUID) (*model.ChangeRequest, error)
	FindByToken(ctx context.Context, token string) (*model.ChangeRequest, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]model.ChangeRequest, error)
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to model.ChangeRequestStatus, at time.Time) (bool, error)
}

type changeRequestRepository struct {
	db *gorm.DB
}

func NewChangeRequestRepository(db *gorm.DB) ChangeRequestRepository {
	return &changeRequestRepository{db: db}
}

func (r *changeRequestRepository) Create(ctx context.Context, cr *model.ChangeRequest) error {
	return GetDB(ctx, r.db).Create(cr).Error
}

func (r *changeRequestRepository) FindByID(ctx context.Context, projectID, id uuid.UUID) (*model.ChangeRequest, error) {
	var cr model.ChangeRequest
	if err := GetDB(ctx, r.db).First(&cr, "id = ? AND project_id = ?", id, projectID).Error; err != nil {
		return nil, err
	}
	return &cr, nil
}

// FindByToken resolves a client token with an exact, case-sensitive match. The owning
// project is always loaded so callers never deal with a missing join.
func (r *changeRequestRepository) FindByToken(ctx context.Context, token string) (*model.ChangeRequest, error) {
	var cr model.ChangeRequest
	if err := GetDB(ctx, r.db).Preload("Project").First(&cr, "client_token = ?", token).Error; err != nil {
		return nil, err
	}
	if cr.Project == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &cr, nil
}

func (r *changeRequestRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]model.ChangeRequest, error) {
	var crs []model.ChangeRequest
	if err := GetDB(ctx, r.db).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&crs).Error; err != nil {
		return nil, err
	}
	return crs, nil
}

// CompareAndSetStatus moves a change request from one status to another only if it is
// still in `from`. It returns false when another writer got there first. Transitions outside
// the lifecycle table are rejected before touching the database.
func (r *changeRequestRepository) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to model.ChangeRequestStatus, at time.Time) (bool, error) {
	if err := model.CheckTransition(from, to); err != nil {
		return false, err
	}

	updates := map[string]interface{}{
		"status":     to,
		"updated_at": at,
	}
	switch to {
	case model.StatusPending:
		updates["sent_at"] = at
	case model.StatusApproved, model.StatusRejected:
		updates["decided_at"] = at
	}

	res := GetDB(ctx, r.db).Model(&model.ChangeRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
