package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"projectos/internal/auth"
	"projectos/internal/model"
	"projectos/internal/testutil"
	"projectos/pkg/currency"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndListProjects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.projects.CreateProject(ctx, env.session, CreateProjectRequest{
		Name:        "Kitchen",
		ClientName:  "Bo Client",
		ClientEmail: "Bo Client <bo@client.test>",
	})
	require.NoError(t, err)
	assert.Equal(t, "bo@client.test", created.ClientEmail)

	list, err := env.projects.ListProjects(ctx, env.session)
	require.NoError(t, err)
	ids := make([]string, 0, len(list))
	for _, p := range list {
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []string{env.project.ID.String(), created.ID}, ids)

	stranger := testutil.SeedUser(t, env.db, "stranger@studio.test")
	foreign, err := env.projects.ListProjects(ctx, &auth.Session{UserID: stranger.ID})
	require.NoError(t, err)
	assert.Empty(t, foreign)

	var entry model.AuditLog
	require.NoError(t, env.db.First(&entry, "action = ?", model.ActionProjectCreated).Error)
	assert.Equal(t, created.ID, entry.EntityID)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, env.owner.ID, *entry.ActorID)
}

func TestCreateProjectValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.projects.CreateProject(context.Background(), env.session, CreateProjectRequest{Name: "X", ClientName: "Y", ClientEmail: "not-an-email"})
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = env.projects.CreateProject(context.Background(), env.session, CreateProjectRequest{Name: " ", ClientName: "Y", ClientEmail: "y@client.test"})
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = env.projects.CreateProject(context.Background(), nil, CreateProjectRequest{Name: "X", ClientName: "Y", ClientEmail: "y@client.test"})
	assert.True(t, errors.Is(err, ErrUnauthenticated))
}

func TestAddBudgetItem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	item, err := env.projects.AddBudgetItem(ctx, env.session, env.project.ID, AddBudgetItemRequest{Name: "Flooring", ApprovedCost: "1999.99"})
	require.NoError(t, err)
	assert.Equal(t, int64(199999), item.ApprovedCostCents)

	_, err = env.projects.AddBudgetItem(ctx, env.session, env.project.ID, AddBudgetItemRequest{Name: "Refund", ApprovedCostCents: ptr(int64(-1))})
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = env.projects.AddBudgetItem(ctx, env.session, uuid.New(), AddBudgetItemRequest{Name: "Paint", ApprovedCostCents: ptr(int64(10))})
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.Equal(t, []string{model.ActionBudgetItemAdded}, env.auditActions(t))
}

func TestAddBudgetItemRejectsAmountsThatCouldOverflowTotals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, req := range []AddBudgetItemRequest{
		{Name: "Huge", ApprovedCostCents: ptr(int64(math.MaxInt64))},
		{Name: "Huge", ApprovedCostCents: ptr(currency.MaxAbsCents + 1)},
		{Name: "Huge", ApprovedCost: "92233720368547758.07"},
	} {
		_, err := env.projects.AddBudgetItem(ctx, env.session, env.project.ID, req)
		assert.True(t, errors.Is(err, ErrValidation), "got %v", err)
	}

	_, err := env.projects.AddBudgetItem(ctx, env.session, env.project.ID, AddBudgetItemRequest{Name: "Max", ApprovedCostCents: ptr(currency.MaxAbsCents)})
	require.NoError(t, err)
	_, err = env.projects.AddBudgetItem(ctx, env.session, env.project.ID, AddBudgetItemRequest{Name: "Max again", ApprovedCostCents: ptr(currency.MaxAbsCents)})
	require.NoError(t, err)

	summary, err := env.projects.GetProjectSummary(ctx, env.session, env.project.ID)
	require.NoError(t, err)
	assert.Equal(t, 2*currency.MaxAbsCents, summary.Money.ApprovedTotalCents)
}

func TestGetProjectSummaryMoney(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	testutil.SeedBudgetItem(t, env.db, env.project, "Structure", 300000)
	testutil.SeedBudgetItem(t, env.db, env.project, "Finishes", 200000)
	testutil.SeedChangeRequest(t, env.db, env.project, "tok-approved", model.StatusApproved, -20000)
	testutil.SeedChangeRequest(t, env.db, env.project, "tok-pending", model.StatusPending, 100000)

	summary, err := env.projects.GetProjectSummary(ctx, env.session, env.project.ID)
	require.NoError(t, err)

	assert.Len(t, summary.BudgetItems, 2)
	assert.Len(t, summary.ChangeRequests, 2)
	assert.Equal(t, int64(500000), summary.Money.BaseBudgetCents)
	assert.Equal(t, int64(-20000), summary.Money.ApprovedChangesCents)
	assert.Equal(t, int64(480000), summary.Money.ApprovedTotalCents)
	assert.Equal(t, int64(100000), summary.Money.PendingChangesCents)

	f := currency.NewFormatter("EUR")
	assert.Equal(t, "EUR", summary.Money.Currency)
	assert.Equal(t, f.Format(480000), summary.Money.ApprovedTotal)

	stranger := testutil.SeedUser(t, env.db, "stranger@studio.test")
	_, err = env.projects.GetProjectSummary(ctx, &auth.Session{UserID: stranger.ID}, env.project.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}
