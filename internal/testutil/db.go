// Package testutil provides an in-memory database and fixtures for tests.
package testutil

import (
	"testing"

	"projectos/internal/database"
	"projectos/internal/model"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated in-memory SQLite database. It is pinned to one connection
// because every new connection to ":memory:" would see an empty database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func SeedUser(t *testing.T, db *gorm.DB, email string) *model.User {
	t.Helper()
	user := &model.User{Email: email}
	require.NoError(t, db.Create(user).Error)
	return user
}

func SeedProject(t *testing.T, db *gorm.DB, owner *model.User, name string) *model.Project {
	t.Helper()
	project := &model.Project{
		Name:        name,
		ClientName:  "Ana Client",
		ClientEmail: "ana@client.test",
		OwnerID:     owner.ID,
	}
	require.NoError(t, db.Create(project).Error)
	return project
}

func SeedBudgetItem(t *testing.T, db *gorm.DB, project *model.Project, name string, cents int64) *model.BudgetItem {
	t.Helper()
	item := &model.BudgetItem{ProjectID: project.ID, Name: name, ApprovedCostCents: cents}
	require.NoError(t, db.Create(item).Error)
	return item
}

// SeedChangeRequest stores a change request directly in the given status.
func SeedChangeRequest(t *testing.T, db *gorm.DB, project *model.Project, token string, status model.ChangeRequestStatus, deltaCents int64) *model.ChangeRequest {
	t.Helper()
	cr := &model.ChangeRequest{
		ProjectID:   project.ID,
		CreatedBy:   project.OwnerID,
		Reason:      "Seeded change",
		DeltaCents:  deltaCents,
		DelayDays:   1,
		Status:      status,
		ClientToken: token,
	}
	require.NoError(t, db.Create(cr).Error)
	return cr
}
