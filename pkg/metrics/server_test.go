package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/packfinderz-fulfillment/pkg/logger"
)

func TestHandlerServesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	outbox := NewOutboxMetrics(reg)
	outbox.IncPublished("fulfillment.lines_fulfilled")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "packfinderz_outbox_published_total") {
		t.Fatalf("expected outbox counter in body: %s", rec.Body.String())
	}
}

func TestServeWithoutAddrIsNoop(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "metrics-test", Output: io.Discard})
	if err := Serve(context.Background(), "", prometheus.NewRegistry(), logg); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestOutboxMetricsNilSafe(t *testing.T) {
	var m *OutboxMetrics
	m.IncPublished("x")
	m.IncFailed("x")
	m.IncDeadLettered("x")

	NewOutboxMetrics(nil).IncPublished("x")
}
