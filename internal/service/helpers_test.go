package service

import (
	"context"
	"sync"
	"testing"

	"projectos/internal/auth"
	"projectos/internal/model"
	"projectos/internal/repository"
	"projectos/internal/testutil"
	"projectos/pkg/currency"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages map[uuid.UUID][][]byte
}

func (n *recordingNotifier) Notify(userID uuid.UUID, message []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.messages == nil {
		n.messages = map[uuid.UUID][][]byte{}
	}
	n.messages[userID] = append(n.messages[userID], message)
}

func (n *recordingNotifier) For(userID uuid.UUID) [][]byte {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.messages[userID]
}

type failingAudit struct {
	AuditService
	err error
}

func (f failingAudit) Record(context.Context, AuditEvent) (*model.AuditLog, error) {
	return nil, f.err
}

type testEnv struct {
	db       *gorm.DB
	owner    *model.User
	session  *auth.Session
	project  *model.Project
	log      logrus.FieldLogger
	hook     *test.Hook
	notifier *recordingNotifier
	links    LinkBuilder

	projectRepo       repository.ProjectRepository
	changeRequestRepo repository.ChangeRequestRepository
	approvalRepo      repository.ApprovalRepository
	txManager         repository.TransactionManager

	audit          AuditService
	projects       ProjectService
	changeRequests ChangeRequestService
	gateway        ApprovalService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewDB(t)
	owner := testutil.SeedUser(t, db, "designer@studio.test")
	project := testutil.SeedProject(t, db, owner, "Loft renovation")
	log, hook := test.NewNullLogger()

	env := &testEnv{
		db:                db,
		owner:             owner,
		session:           &auth.Session{UserID: owner.ID, Email: owner.Email},
		project:           project,
		log:               log,
		hook:              hook,
		notifier:          &recordingNotifier{},
		links:             NewLinkBuilder("https://app.projectos.test/"),
		projectRepo:       repository.NewProjectRepository(db),
		changeRequestRepo: repository.NewChangeRequestRepository(db),
		approvalRepo:      repository.NewApprovalRepository(db),
		txManager:         repository.NewTransactionManager(db),
	}
	formatter := currency.NewFormatter("EUR")

	env.audit = NewAuditService(repository.NewAuditRepository(db), env.projectRepo)
	env.projects = NewProjectService(env.projectRepo, repository.NewBudgetItemRepository(db), env.changeRequestRepo, env.audit, env.txManager, formatter, env.links)
	env.changeRequests = NewChangeRequestService(env.projectRepo, env.changeRequestRepo, env.audit, env.txManager, formatter, env.links, log)
	env.gateway = NewApprovalService(env.changeRequestRepo, env.approvalRepo, env.audit, env.txManager, env.notifier, log)
	return env
}

// sentChangeRequest drafts and sends a change request, returning its client token.
func (e *testEnv) sentChangeRequest(t *testing.T, reason string, deltaCents int64, delayDays int) ChangeRequestResponse {
	t.Helper()
	ctx := context.Background()

	created, err := e.changeRequests.Create(ctx, e.session, e.project.ID, CreateChangeRequestRequest{
		Reason:     reason,
		DeltaCents: &deltaCents,
		DelayDays:  delayDays,
	})
	require.NoError(t, err)

	sent, err := e.changeRequests.Send(ctx, e.session, e.project.ID, uuid.MustParse(created.ID))
	require.NoError(t, err)
	return sent
}

func (e *testEnv) auditActions(t *testing.T) []string {
	t.Helper()
	var actions []string
	require.NoError(t, e.db.Model(&model.AuditLog{}).
		Where("project_id = ?", e.project.ID).
		Order("created_at asc").Order("id asc").
		Pluck("action", &actions).Error)
	return actions
}

func (e *testEnv) loadChangeRequest(t *testing.T, id string) model.ChangeRequest {
	t.Helper()
	var cr model.ChangeRequest
	require.NoError(t, e.db.First(&cr, "id = ?", uuid.MustParse(id)).Error)
	return cr
}

func (e *testEnv) approvalCount(t *testing.T, changeRequestID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&model.Approval{}).Where("change_request_id = ?", uuid.MustParse(changeRequestID)).Count(&n).Error)
	return n
}

func ptr[T any](v T) *T { return &v }
