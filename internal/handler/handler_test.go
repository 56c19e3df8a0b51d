package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"projectos/internal/auth"
	"projectos/internal/middleware"
	"projectos/internal/model"
	"projectos/internal/repository"
	"projectos/internal/service"
	"projectos/internal/testutil"
	"projectos/pkg/currency"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testServer struct {
	router  *gin.Engine
	db      *gorm.DB
	owner   *model.User
	project *model.Project
	token   string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	owner := testutil.SeedUser(t, db, "designer@studio.test")
	project := testutil.SeedProject(t, db, owner, "Loft renovation")
	log, _ := test.NewNullLogger()

	sessions := auth.NewSessionIssuer([]byte("test-secret"), time.Hour)
	token, _, err := sessions.Issue(auth.Session{UserID: owner.ID, Email: owner.Email})
	require.NoError(t, err)

	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	changeRequestRepo := repository.NewChangeRequestRepository(db)
	formatter := currency.NewFormatter("EUR")
	links := service.NewLinkBuilder("https://app.projectos.test")

	auditService := service.NewAuditService(repository.NewAuditRepository(db), projectRepo)
	userService := service.NewUserService(userRepo, txManager, sessions, service.LogMailer{Log: log}, links, time.Minute, log)
	projectService := service.NewProjectService(projectRepo, repository.NewBudgetItemRepository(db), changeRequestRepo, auditService, txManager, formatter, links)
	changeRequestService := service.NewChangeRequestService(projectRepo, changeRequestRepo, auditService, txManager, formatter, links, log)
	approvalService := service.NewApprovalService(changeRequestRepo, repository.NewApprovalRepository(db), auditService, txManager, nil, log)

	router := gin.New()
	require.NoError(t, middleware.TrustProxies(router, nil))
	NewApprovalHandler(approvalService, log).RegisterRoutes(router.Group("/api/public"))
	userHandler := NewUserHandler(userService, time.Hour, log)
	userHandler.RegisterRoutes(router.Group("/auth"))

	api := router.Group("/api", middleware.RequireSession(sessions))
	userHandler.RegisterSessionRoutes(api)
	NewProjectHandler(projectService, log).RegisterRoutes(api)
	NewChangeRequestHandler(changeRequestService, log).RegisterRoutes(api)
	NewAuditHandler(auditService, log).RegisterRoutes(api)

	return &testServer{router: router, db: db, owner: owner, project: project, token: token}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, authenticated bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authenticated {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, into interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	if into != nil {
		require.NoError(t, json.Unmarshal(env.Data, into))
	}
	return env
}

// createAndSend drives the designer API to produce a pending change request.
func (s *testServer) createAndSend(t *testing.T) service.ChangeRequestResponse {
	t.Helper()
	base := "/api/projects/" + s.project.ID.String() + "/change-requests"

	w := s.do(t, http.MethodPost, base, map[string]interface{}{
		"reason":      "Add skylight",
		"delta_cents": 150000,
		"delay_days":  5,
	}, true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created service.ChangeRequestResponse
	decodeEnvelope(t, w, &created)
	assert.Equal(t, "draft", created.Status)

	w = s.do(t, http.MethodPost, base+"/"+created.ID+"/send", nil, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sent service.ChangeRequestResponse
	decodeEnvelope(t, w, &sent)
	require.NotNil(t, sent.ApprovalLink)
	return sent
}

func TestPublicApprovalFlow(t *testing.T) {
	s := newTestServer(t)
	sent := s.createAndSend(t)

	w := s.do(t, http.MethodGet, "/api/public/change-request?token="+sent.ClientToken, nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"id": "`+sent.ID+`",
		"reason": "Add skylight",
		"delta_cents": 150000,
		"delay_days": 5,
		"status": "pending",
		"project_name": "Loft renovation",
		"client_name": "Ana Client"
	}`, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/public/approve", map[string]string{"token": sent.ClientToken, "action": "approved"}, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"approved"}`, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/public/approve", map[string]string{"token": sent.ClientToken, "action": "rejected"}, false)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"message":"Change request already finalized."}`, w.Body.String())
}

func TestPublicEndpointErrors(t *testing.T) {
	s := newTestServer(t)
	sent := s.createAndSend(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		msg    string
	}{
		{"fetch without token", http.MethodGet, "/api/public/change-request", nil, http.StatusBadRequest, "Missing token."},
		{"fetch unknown token", http.MethodGet, "/api/public/change-request?token=nonexistent", nil, http.StatusNotFound, "Not found."},
		{"approve without action", http.MethodPost, "/api/public/approve", map[string]string{"token": sent.ClientToken}, http.StatusBadRequest, "Missing data."},
		{"approve bad action", http.MethodPost, "/api/public/approve", map[string]string{"token": sent.ClientToken, "action": "ok"}, http.StatusBadRequest, "Invalid action."},
		{"approve unknown token", http.MethodPost, "/api/public/approve", map[string]string{"token": "nonexistent", "action": "approved"}, http.StatusNotFound, "Not found."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, tt.body, false)
			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, `{"message":"`+tt.msg+`"}`, w.Body.String())
		})
	}
}

func TestApproveMalformedBody(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/public/approve", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"message":"Missing data."}`, w.Body.String())
}

func TestApproveRecordsPeerAddressNotForwardedFor(t *testing.T) {
	s := newTestServer(t)
	sent := s.createAndSend(t)

	body, err := json.Marshal(service.DecideRequest{Token: sent.ClientToken, Action: "approved"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/public/approve", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "10.9.8.7")
	req.RemoteAddr = "198.51.100.4:52000"
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var approval model.Approval
	require.NoError(t, s.db.First(&approval, "change_request_id = ?", sent.ID).Error)
	require.NotNil(t, approval.ClientIP)
	assert.Equal(t, "198.51.100.4", *approval.ClientIP)
}

func TestSessionRoutesRequireLogin(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/projects", nil, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	env := decodeEnvelope(t, w, nil)
	assert.Equal(t, "error", env.Status)

	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionCookieIsAccepted(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: middleware.AccessTokenCookie, Value: s.token})
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var me service.UserResponse
	decodeEnvelope(t, w, &me)
	assert.Equal(t, "designer@studio.test", me.Email)
}

func TestProjectSummaryAndAudit(t *testing.T) {
	s := newTestServer(t)
	projectPath := "/api/projects/" + s.project.ID.String()

	w := s.do(t, http.MethodPost, projectPath+"/budget-items", map[string]interface{}{"name": "Structure", "approved_cost_cents": 500000}, true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	sent := s.createAndSend(t)
	w = s.do(t, http.MethodPost, "/api/public/approve", map[string]string{"token": sent.ClientToken, "action": "approved"}, false)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, projectPath, nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	var summary service.ProjectSummaryResponse
	decodeEnvelope(t, w, &summary)
	assert.Equal(t, int64(650000), summary.Money.ApprovedTotalCents)

	w = s.do(t, http.MethodGet, projectPath+"/audit-logs?page=1&limit=2", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Items []service.AuditLogResponse `json:"items"`
		Total int64                      `json:"total"`
		Limit int                        `json:"limit"`
	}
	decodeEnvelope(t, w, &page)
	assert.Equal(t, int64(4), page.Total)
	assert.Equal(t, 2, page.Limit)
	require.Len(t, page.Items, 2)
	assert.Equal(t, model.ActionClientApproved, page.Items[0].Action)
}

func TestMalformedIDsAreNotFound(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/projects/not-a-uuid", nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/projects/"+s.project.ID.String()+"/change-requests/nope/send", nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMagicLinkEndpointAlwaysAccepts(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/auth/magic-link", map[string]string{"email": "new@studio.test"}, false)
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = s.do(t, http.MethodPost, "/auth/magic-link", map[string]string{"email": "designer@studio.test"}, false)
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = s.do(t, http.MethodPost, "/auth/magic-link", map[string]string{"email": "nope"}, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/auth/callback?token=00000000000000000000000000000000", nil, false)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
