package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project groups the budget and change requests a designer runs for one client.
type Project struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	ClientName  string    `gorm:"type:varchar(255);not null" json:"client_name"`
	ClientEmail string    `gorm:"type:varchar(255);not null" json:"client_email"`
	OwnerID     uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`
	Owner       *User     `gorm:"foreignKey:OwnerID" json:"-"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p *Project) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// BudgetItem is an approved line of the base budget. Amounts are integer cents.
type BudgetItem struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID         uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	Project           *Project  `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE;" json:"-"`
	Name              string    `gorm:"type:varchar(255);not null" json:"name"`
	ApprovedCostCents int64     `gorm:"not null" json:"approved_cost_cents"`
	CreatedAt         time.Time `gorm:"index" json:"created_at"`
}

func (b *BudgetItem) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
