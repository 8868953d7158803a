package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/packfinderz-fulfillment/internal/fulfillment"
	"github.com/angelmondragon/packfinderz-fulfillment/internal/tasks"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/auth"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/config"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/db/models"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/enums"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/logger"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubRedis struct {
	data     map[string]string
	attempts map[string]int64
}

func newStubRedis() *stubRedis {
	return &stubRedis{data: map[string]string{}, attempts: map[string]int64{}}
}

func (s *stubRedis) Ping(context.Context) error { return nil }

func (s *stubRedis) Get(_ context.Context, key string) (string, error) {
	if v, ok := s.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (s *stubRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key], _ = value.(string)
	return true, nil
}

func (s *stubRedis) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func (s *stubRedis) IdempotencyKey(scope, id string) string { return "idem:" + scope + ":" + id }

func (s *stubRedis) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	s.attempts[scope]++
	return s.attempts[scope] <= limit, s.attempts[scope], nil
}

func (s *stubRedis) ResetWindow(_ context.Context, scope string) error {
	delete(s.attempts, scope)
	return nil
}

func (s *stubRedis) CodeAttemptScope(employeeID, orderID string) string {
	return "code:" + employeeID + ":" + orderID
}

type stubFulfillment struct {
	fulfillCalls int
	lastInput    fulfillment.FulfillByCodeInput
}

func (s *stubFulfillment) FulfillByCode(_ context.Context, input fulfillment.FulfillByCodeInput) (*fulfillment.FulfillByCodeResult, error) {
	s.fulfillCalls++
	s.lastInput = input
	return &fulfillment.FulfillByCodeResult{Result: fulfillment.Result{Success: true, Message: "1 line fulfilled"}, LinesChanged: 1}, nil
}

func (s *stubFulfillment) OverrideFulfillment(context.Context, fulfillment.OverrideFulfillmentInput) (*fulfillment.OverrideFulfillmentResult, error) {
	return &fulfillment.OverrideFulfillmentResult{Result: fulfillment.Result{Success: true}}, nil
}

func (s *stubFulfillment) OverrideCancellation(context.Context, fulfillment.OverrideCancellationInput) (*fulfillment.OverrideCancellationResult, error) {
	return &fulfillment.OverrideCancellationResult{Result: fulfillment.Result{Success: true}}, nil
}

func (s *stubFulfillment) FulfillSingleLine(context.Context, fulfillment.FulfillSingleLineInput) (*fulfillment.SingleLineResult, error) {
	return &fulfillment.SingleLineResult{Result: fulfillment.Result{Success: true}}, nil
}

func (s *stubFulfillment) IsOrderFullyFulfilled(context.Context, uuid.UUID) (bool, error) {
	return false, nil
}

func (s *stubFulfillment) ReconcileOrder(context.Context, uuid.UUID) (bool, error) { return false, nil }

func (s *stubFulfillment) StaleActiveOrders(context.Context, time.Time, int) ([]uuid.UUID, error) {
	return nil, nil
}

type stubTasks struct{}

func (stubTasks) Assign(_ context.Context, input tasks.AssignInput) (*models.Task, error) {
	return &models.Task{ID: uuid.New(), EmployeeID: input.EmployeeID, Status: enums.TaskStatusPending}, nil
}

func (stubTasks) Reassign(context.Context, tasks.ReassignInput) (*tasks.ReassignResult, error) {
	return &tasks.ReassignResult{}, nil
}

func (stubTasks) ListForEmployee(context.Context, uuid.UUID, pagination.Params) (*tasks.ListResult, error) {
	return &tasks.ListResult{Tasks: []tasks.View{}}, nil
}

func (stubTasks) ListForBusiness(context.Context, uuid.UUID, pagination.Params) (*tasks.ListResult, error) {
	return &tasks.ListResult{Tasks: []tasks.View{}}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "packfinderz", ExpirationMinutes: 60},
		Fulfillment: config.FulfillmentConfig{
			CodeAttemptLimit:  2,
			CodeAttemptWindow: time.Minute,
		},
	}
}

func newTestRouter(t *testing.T) (http.Handler, *stubFulfillment, *stubRedis) {
	t.Helper()
	svc := &stubFulfillment{}
	rdb := newStubRedis()
	router := NewRouter(
		testConfig(),
		logger.New(logger.Options{ServiceName: "router-test"}),
		stubPinger{},
		rdb,
		prometheus.NewRegistry(),
		svc,
		stubTasks{},
	)
	return router, svc, rdb
}

func bearer(t *testing.T, role enums.MemberRole, userID uuid.UUID) string {
	t.Helper()
	token, err := auth.MintAccessToken(testConfig().JWT, time.Now(), auth.AccessTokenPayload{
		UserID:     userID,
		BusinessID: uuid.New(),
		Role:       role,
	})
	require.NoError(t, err)
	return "Bearer " + token
}

func serve(router http.Handler, method, path, authz, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestPublicRoutes(t *testing.T) {
	router, _, _ := newTestRouter(t)

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health/live", "", "", nil).Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health/ready", "", "", nil).Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/metrics", "", "", nil).Code)
}

func TestAuthenticatedRoutesRequireToken(t *testing.T) {
	router, _, _ := newTestRouter(t)

	resp := serve(router, http.MethodGet, "/api/v1/tasks", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = serve(router, http.MethodGet, "/api/v1/tasks", bearer(t, enums.MemberRoleEmployee, uuid.New()), "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	router, _, _ := newTestRouter(t)
	path := "/api/admin/v1/orders/" + uuid.NewString() + "/override/fulfill"

	resp := serve(router, http.MethodPost, path, bearer(t, enums.MemberRoleEmployee, uuid.New()), "", map[string]string{"Idempotency-Key": "k1"})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = serve(router, http.MethodPost, path, bearer(t, enums.MemberRoleAdmin, uuid.New()), "", map[string]string{"Idempotency-Key": "k1"})
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = serve(router, http.MethodPost, "/api/admin/v1/tasks", bearer(t, enums.MemberRoleAdmin, uuid.New()),
		`{"name":"deliver","employeeId":"`+uuid.NewString()+`"}`, map[string]string{"Idempotency-Key": "k2"})
	assert.Equal(t, http.StatusCreated, resp.Code)

	resp = serve(router, http.MethodGet, "/api/admin/v1/businesses/"+uuid.NewString()+"/tasks", bearer(t, enums.MemberRoleAdmin, uuid.New()), "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestFulfillByCodeRouteIsIdempotent(t *testing.T) {
	router, svc, _ := newTestRouter(t)
	employeeID := uuid.New()
	orderID := uuid.New()
	path := "/api/v1/orders/" + orderID.String() + "/fulfill-by-code"
	authz := bearer(t, enums.MemberRoleEmployee, employeeID)

	resp := serve(router, http.MethodPost, path, authz, `{"code":"1234"}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code, "idempotency key is mandatory")

	headers := map[string]string{"Idempotency-Key": "attempt-1"}
	resp = serve(router, http.MethodPost, path, authz, `{"code":"1234"}`, headers)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, orderID, svc.lastInput.OrderID)
	assert.Equal(t, employeeID, svc.lastInput.EmployeeID)

	replay := serve(router, http.MethodPost, path, authz, `{"code":"1234"}`, headers)
	assert.Equal(t, http.StatusOK, replay.Code)
	assert.Equal(t, resp.Body.String(), replay.Body.String())
	assert.Equal(t, 1, svc.fulfillCalls)
}

func TestFulfillByCodeRouteAppliesAttemptLimit(t *testing.T) {
	router, _, rdb := newTestRouter(t)
	employeeID := uuid.New()
	orderID := uuid.New()
	path := "/api/v1/orders/" + orderID.String() + "/fulfill-by-code"
	authz := bearer(t, enums.MemberRoleEmployee, employeeID)

	scope := rdb.CodeAttemptScope(employeeID.String(), orderID.String())
	rdb.attempts[scope] = 2

	resp := serve(router, http.MethodPost, path, authz, `{"code":"1234"}`, map[string]string{"Idempotency-Key": "fresh"})
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
}
