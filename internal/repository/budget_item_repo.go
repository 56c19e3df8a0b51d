package repository

import (
	"context"

	"projectos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BudgetItemRepository interface {
	Create(ctx context.Context, item *model.BudgetItem) error
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]model.BudgetItem, error)
}

type budgetItemRepository struct {
	db *gorm.DB
}

func NewBudgetItemRepository(db *gorm.DB) BudgetItemRepository {
	return &budgetItemRepository{db: db}
}

func (r *budgetItemRepository) Create(ctx context.Context, item *model.BudgetItem) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *budgetItemRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]model.BudgetItem, error) {
	var items []model.BudgetItem
	if err := GetDB(ctx, r.db).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
