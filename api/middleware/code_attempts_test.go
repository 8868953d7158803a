package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAttemptStore struct {
	counts map[string]int64
	resets []string
	err    error
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{counts: map[string]int64{}}
}

func (f *fakeAttemptStore) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func (f *fakeAttemptStore) ResetWindow(_ context.Context, scope string) error {
	f.resets = append(f.resets, scope)
	delete(f.counts, scope)
	return nil
}

func (f *fakeAttemptStore) CodeAttemptScope(employeeID, orderID string) string {
	return "code:" + employeeID + ":" + orderID
}

func codeRequest(employeeID, orderID string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID+"/fulfill-by-code", nil)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("orderId", orderID)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rc)
	return req.WithContext(WithUserID(ctx, employeeID))
}

func TestCodeAttemptLimitBlocksAfterLimit(t *testing.T) {
	store := newFakeAttemptStore()
	policy := CodeAttemptPolicy{Limit: 2, Window: time.Minute}
	calls := 0
	handler := CodeAttemptLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))

	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, codeRequest("emp", "order-1"))
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	}

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, codeRequest("emp", "order-1"))
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, 2, calls)
	assert.Empty(t, store.resets)

	// a different order has its own window
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, codeRequest("emp", "order-2"))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestCodeAttemptLimitResetsOnSuccess(t *testing.T) {
	store := newFakeAttemptStore()
	policy := CodeAttemptPolicy{Limit: 1, Window: time.Minute}
	handler := CodeAttemptLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, codeRequest("emp", "order-1"))
		require.Equal(t, http.StatusOK, resp.Code)
	}
	assert.Len(t, store.resets, 3)
}

func TestCodeAttemptLimitStoreFailure(t *testing.T) {
	store := newFakeAttemptStore()
	store.err = errors.New("redis down")
	handler := CodeAttemptLimit(CodeAttemptPolicy{Limit: 1, Window: time.Minute}, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, codeRequest("emp", "order-1"))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestCodeAttemptLimitDisabledPolicyPassesThrough(t *testing.T) {
	store := newFakeAttemptStore()
	handler := CodeAttemptLimit(CodeAttemptPolicy{}, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, codeRequest("emp", "order-1"))
	assert.Equal(t, http.StatusAccepted, resp.Code)
	assert.Empty(t, store.counts)
}
