package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"part-request-portal-api-server/config"
	"part-request-portal-api-server/internal/api/apierror"
	"part-request-portal-api-server/internal/api/handlers"
	"part-request-portal-api-server/internal/auth"
	"part-request-portal-api-server/internal/metrics"
	"part-request-portal-api-server/internal/models"
	"part-request-portal-api-server/internal/requests"
	"part-request-portal-api-server/internal/session"
	"part-request-portal-api-server/internal/socket"
	"part-request-portal-api-server/internal/store/memory"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const adminPassword = "s3cret"

type testAPI struct {
	router *gin.Engine
	store  *memory.Store
	hub    *socket.Hub
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := auth.HashPassword(adminPassword)
	require.NoError(t, err)
	tokens, err := auth.NewTokens("test-secret", time.Hour)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	st := memory.NewStore()
	controller := requests.NewController(st, nil, metrics.New(reg), zap.NewNop())
	hub := socket.NewHub(controller, zap.NewNop())

	router := SetupRouter(Dependencies{
		Config: config.Config{
			Server: config.ServerConfig{AllowedOrigins: []string{"*"}},
			Admin:  config.AdminConfig{Username: "admin", PasswordHash: hash},
		},
		Controller: controller,
		Sessions:   session.NewMemoryStore(time.Hour),
		Tokens:     tokens,
		Hub:        hub,
		Gatherer:   reg,
		Logger:     zap.NewNop(),
	})
	return &testAPI{router: router, store: st, hub: hub}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (a *testAPI) adminToken(t *testing.T) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/auth/login", "", handlers.LoginRequest{Username: "admin", Password: adminPassword})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[handlers.SessionResponse](t, w).Token
}

func (a *testAPI) submitterToken(t *testing.T) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/auth/session", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[handlers.SessionResponse](t, w)
	assert.Equal(t, models.RoleSubmitter, resp.Identity.Role)
	return resp.Token
}

func createBody(reg string) map[string]any {
	return map[string]any{
		"osNumber":           "OS-1001",
		"costCenter":         "CC-01",
		"registrationNumber": reg,
		"requesterName":      "Ana Lima",
		"items": []map[string]any{{
			"quantity":    2,
			"material":    "Bolt",
			"equipment":   "Press",
			"equipmentOs": "EQ-1",
			"application": "Repair",
			"location":    "Plant 2",
		}},
	}
}

func (a *testAPI) create(t *testing.T, token, reg string) handlers.CreateRequestResponse {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/requests", token, createBody(reg))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[handlers.CreateRequestResponse](t, w)
}

func TestLogin(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/v1/auth/login", "", handlers.LoginRequest{Username: "admin", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "admin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	token := api.adminToken(t)
	w = api.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"admin"`)
}

func TestSubmitterFlow(t *testing.T) {
	api := newTestAPI(t)
	user := api.submitterToken(t)

	w := api.do(t, http.MethodGet, "/api/v1/requests", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	created := api.create(t, user, "123")
	assert.Equal(t, "123", created.Identity.RegistrationNumber)

	w = api.do(t, http.MethodGet, "/api/v1/auth/me", user, nil)
	assert.Contains(t, w.Body.String(), `"registrationNumber":"123"`)

	w = api.do(t, http.MethodGet, "/api/v1/requests", user, nil)
	list := decode[[]models.PartRequestView](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, models.StatusPending, list[0].Status)
	assert.Empty(t, list[0].CostCenter)
	require.Len(t, list[0].Items, 1)
	assert.NotEmpty(t, list[0].Items[0].ID)

	// Scope stays on the first registration number.
	w = api.do(t, http.MethodPost, "/api/v1/requests", user, createBody("456"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ValidationError", decode[apierror.StandardError](t, w).Code)

	body := createBody("")
	delete(body, "registrationNumber")
	w = api.do(t, http.MethodPost, "/api/v1/requests", user, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = api.do(t, http.MethodGet, "/api/v1/requests", user, nil)
	assert.Len(t, decode[[]models.PartRequestView](t, w), 2)
	assert.Equal(t, 2, api.store.Len())
}

func TestCreate_Validation(t *testing.T) {
	api := newTestAPI(t)
	user := api.submitterToken(t)

	body := createBody("123")
	body["items"] = []map[string]any{}
	w := api.do(t, http.MethodPost, "/api/v1/requests", user, body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ValidationError", decode[apierror.StandardError](t, w).Code)
	assert.Equal(t, 0, api.store.Len())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests", strings.NewReader("{"))
	req.Header.Set("Authorization", "Bearer "+user)
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "InvalidRequest", decode[apierror.StandardError](t, rec).Code)
}

func TestAdminLifecycle(t *testing.T) {
	api := newTestAPI(t)
	user := api.submitterToken(t)
	admin := api.adminToken(t)
	id := api.create(t, user, "123").ID

	w := api.do(t, http.MethodPut, "/api/v1/requests/"+id+"/status", user, map[string]string{"status": "available"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(t, http.MethodPost, "/api/v1/requests/"+id+"/finalize", user, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	get := func() models.PartRequestView {
		t.Helper()
		w := api.do(t, http.MethodGet, "/api/v1/requests/"+id, admin, nil)
		require.Equal(t, http.StatusOK, w.Code)
		return decode[models.PartRequestView](t, w)
	}
	assert.Empty(t, get().CostCenter)

	w = api.do(t, http.MethodPut, "/api/v1/requests/"+id+"/status", admin, map[string]string{"status": "available"})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
	assert.Empty(t, w.Body.String())
	assert.Equal(t, models.StatusAvailable, get().Status)

	w = api.do(t, http.MethodPut, "/api/v1/requests/"+id, admin, map[string]string{"requesterName": "Bruno Reis", "costCenter": "CC-01"})
	require.Equal(t, http.StatusNoContent, w.Code)
	view := get()
	assert.Equal(t, "Bruno Reis", view.RequesterName)
	assert.Equal(t, "CC-01", view.CostCenter)

	w = api.do(t, http.MethodPost, "/api/v1/requests/"+id+"/finalize", user, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, models.StatusCompleted, get().Status)

	w = api.do(t, http.MethodPut, "/api/v1/requests/"+id+"/status", admin, map[string]string{"status": "pending"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "InvalidTransition", decode[apierror.StandardError](t, w).Code)

	w = api.do(t, http.MethodDelete, "/api/v1/requests/"+id, admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/requests", user, nil)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestAdminDeleteAndSearch(t *testing.T) {
	api := newTestAPI(t)
	user := api.submitterToken(t)
	admin := api.adminToken(t)
	id := api.create(t, user, "123").ID

	w := api.do(t, http.MethodGet, "/api/v1/requests/search?q=bolt", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.PartRequestView](t, w), 1)

	w = api.do(t, http.MethodGet, "/api/v1/requests/search?q=bolt", user, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(t, http.MethodDelete, "/api/v1/requests/"+id, admin, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/requests/"+id, admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportDisabled(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodPost, "/api/v1/requests/export", api.adminToken(t), nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestLogout(t *testing.T) {
	api := newTestAPI(t)
	user := api.submitterToken(t)

	w := api.do(t, http.MethodPost, "/api/v1/auth/logout", user, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/requests", user, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	api := newTestAPI(t)
	api.create(t, api.submitterToken(t), "123")

	w := api.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `part_requests_mutations_total{operation="create",outcome="ok"} 1`)
}

func TestWebSocket_PushesScopedList(t *testing.T) {
	api := newTestAPI(t)
	srv := httptest.NewServer(api.router)
	defer srv.Close()

	user := api.submitterToken(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws?token=" + user
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() socket.Message {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg socket.Message
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	msg := read()
	assert.Equal(t, socket.EventRequests, msg.Event)
	assert.Empty(t, msg.Requests)

	api.create(t, user, "123")
	msg = read()
	require.Len(t, msg.Requests, 1)
	assert.Equal(t, "123", msg.Requests[0].RegistrationNumber)

	_, _, err = websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/v1/ws", nil)
	assert.Error(t, err)
}
