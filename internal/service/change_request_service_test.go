package service

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"projectos/internal/auth"
	"projectos/internal/model"
	"projectos/internal/testutil"
	"projectos/pkg/currency"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tokenPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

func TestCreateChangeRequest(t *testing.T) {
	env := newTestEnv(t)

	cr, err := env.changeRequests.Create(context.Background(), env.session, env.project.ID, CreateChangeRequestRequest{
		Reason:    "  Add skylight  ",
		Delta:     "-12.50",
		DelayDays: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, "Add skylight", cr.Reason)
	assert.Equal(t, int64(-1250), cr.DeltaCents)
	assert.Equal(t, 3, cr.DelayDays)
	assert.Equal(t, "draft", cr.Status)
	assert.Regexp(t, tokenPattern, cr.ClientToken)
	assert.Nil(t, cr.ApprovalLink)
	assert.Nil(t, cr.SentAt)

	assert.Equal(t, []string{model.ActionChangeRequestCreated}, env.auditActions(t))
}

func TestCreateChangeRequestTokensAreUnique(t *testing.T) {
	env := newTestEnv(t)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		cr, err := env.changeRequests.Create(context.Background(), env.session, env.project.ID, CreateChangeRequestRequest{
			Reason:     "Change",
			DeltaCents: ptr(int64(i)),
		})
		require.NoError(t, err)
		assert.False(t, seen[cr.ClientToken])
		seen[cr.ClientToken] = true
	}
}

func TestCreateChangeRequestValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		req  CreateChangeRequestRequest
	}{
		{"empty reason", CreateChangeRequestRequest{Reason: "   ", DeltaCents: ptr(int64(100))}},
		{"negative delay", CreateChangeRequestRequest{Reason: "Late delivery", DeltaCents: ptr(int64(0)), DelayDays: -1}},
		{"no delta", CreateChangeRequestRequest{Reason: "Late delivery"}},
		{"both delta forms", CreateChangeRequestRequest{Reason: "Late delivery", DeltaCents: ptr(int64(1)), Delta: "0.01"}},
		{"unparsable delta", CreateChangeRequestRequest{Reason: "Late delivery", Delta: "twelve"}},
		{"delta cents beyond bound", CreateChangeRequestRequest{Reason: "Late delivery", DeltaCents: ptr(-currency.MaxAbsCents - 1)}},
		{"delta amount beyond bound", CreateChangeRequestRequest{Reason: "Late delivery", Delta: "10000000000.01"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.changeRequests.Create(context.Background(), env.session, env.project.ID, tt.req)
			assert.True(t, errors.Is(err, ErrValidation), "got %v", err)
		})
	}
	assert.Empty(t, env.auditActions(t))
}

func TestCreateChangeRequestRequiresOwner(t *testing.T) {
	env := newTestEnv(t)
	stranger := testutil.SeedUser(t, env.db, "stranger@studio.test")
	req := CreateChangeRequestRequest{Reason: "Sneaky", DeltaCents: ptr(int64(1))}

	_, err := env.changeRequests.Create(context.Background(), nil, env.project.ID, req)
	assert.True(t, errors.Is(err, ErrUnauthenticated))

	_, err = env.changeRequests.Create(context.Background(), &auth.Session{UserID: stranger.ID}, env.project.ID, req)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = env.changeRequests.Create(context.Background(), env.session, uuid.New(), req)
	assert.True(t, errors.Is(err, ErrNotFound))

	var count int64
	require.NoError(t, env.db.Model(&model.ChangeRequest{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSendIsIdempotentWhilePending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.sentChangeRequest(t, "Add skylight", 150000, 5)
	require.NotNil(t, first.SentAt)

	again, err := env.changeRequests.Send(ctx, env.session, env.project.ID, uuid.MustParse(first.ID))
	require.NoError(t, err)
	assert.Equal(t, "pending", again.Status)
	assert.Equal(t, first.ClientToken, again.ClientToken)
	assert.Equal(t, *first.ApprovalLink, *again.ApprovalLink)
	assert.Equal(t, *first.SentAt, *again.SentAt)

	assert.Equal(t, []string{
		model.ActionChangeRequestCreated,
		model.ActionChangeRequestSent,
	}, env.auditActions(t))
}

func TestSendFinalizedConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, status := range []model.ChangeRequestStatus{model.StatusApproved, model.StatusRejected} {
		t.Run(string(status), func(t *testing.T) {
			cr := testutil.SeedChangeRequest(t, env.db, env.project, "tok-"+string(status), status, 100)

			_, err := env.changeRequests.Send(ctx, env.session, env.project.ID, cr.ID)
			assert.True(t, errors.Is(err, ErrConflict))
			assert.Equal(t, status, env.loadChangeRequest(t, cr.ID.String()).Status)
		})
	}
	assert.Empty(t, env.auditActions(t))
}

func TestSendUnknownOrForeign(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sent := env.sentChangeRequest(t, "Add skylight", 150000, 5)

	_, err := env.changeRequests.Send(ctx, env.session, env.project.ID, uuid.New())
	assert.True(t, errors.Is(err, ErrNotFound))

	stranger := testutil.SeedUser(t, env.db, "stranger@studio.test")
	_, err = env.changeRequests.Send(ctx, &auth.Session{UserID: stranger.ID}, env.project.ID, uuid.MustParse(sent.ID))
	assert.True(t, errors.Is(err, ErrNotFound))

	other := testutil.SeedProject(t, env.db, env.owner, "Other project")
	_, err = env.changeRequests.Send(ctx, env.session, other.ID, uuid.MustParse(sent.ID))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGetAndListChangeRequests(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sent := env.sentChangeRequest(t, "Add skylight", 150000, 5)
	got, err := env.changeRequests.Get(ctx, env.session, env.project.ID, uuid.MustParse(sent.ID))
	require.NoError(t, err)
	assert.Equal(t, sent.ClientToken, got.ClientToken)
	assert.Equal(t, "pending", got.Status)

	list, err := env.changeRequests.List(ctx, env.session, env.project.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, sent.ID, list[0].ID)

	_, err = env.changeRequests.List(ctx, nil, env.project.ID)
	assert.True(t, errors.Is(err, ErrUnauthenticated))
}
