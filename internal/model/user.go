package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a designer account. Designers authenticate through single-use email links only.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// MagicLink stores the digest of a login link token. The raw token only ever leaves the
// server inside the emailed URL.
type MagicLink struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TokenDigest string     `gorm:"type:varchar(128);uniqueIndex;not null" json:"-"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User        *User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Email       string     `gorm:"type:varchar(255);not null" json:"email"`
	ExpiresAt   time.Time  `gorm:"not null" json:"expires_at"`
	UsedAt      *time.Time `json:"used_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (m *MagicLink) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
