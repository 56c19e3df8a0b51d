package repository

import (
	"context"
	"time"

	"projectos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository defines data access for designers and their login links.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetOrCreateByEmail(ctx context.Context, email string) (*model.User, error)
	CreateMagicLink(ctx context.Context, link *model.MagicLink) error
	FindMagicLink(ctx context.Context, digest string) (*model.MagicLink, error)
	ConsumeMagicLink(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new instance of UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetOrCreateByEmail is safe against two first-time logins racing on the same address:
// the insert is a no-op on conflict and the row is read back.
func (r *userRepository) GetOrCreateByEmail(ctx context.Context, email string) (*model.User, error) {
	db := GetDB(ctx, r.db)
	user := model.User{Email: email}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoNothing: true,
	}).Create(&user).Error; err != nil {
		return nil, err
	}

	var stored model.User
	if err := db.First(&stored, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *userRepository) CreateMagicLink(ctx context.Context, link *model.MagicLink) error {
	return GetDB(ctx, r.db).Create(link).Error
}

func (r *userRepository) FindMagicLink(ctx context.Context, digest string) (*model.MagicLink, error) {
	var link model.MagicLink
	if err := GetDB(ctx, r.db).First(&link, "token_digest = ?", digest).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

// ConsumeMagicLink marks a link used if it is still unused and unexpired.
func (r *userRepository) ConsumeMagicLink(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.MagicLink{}).
		Where("id = ? AND used_at IS NULL AND expires_at > ?", id, now).
		Update("used_at", now)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
