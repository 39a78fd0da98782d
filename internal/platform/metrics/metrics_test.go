package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_CountersAndHandler(t *testing.T) {
	m := New()

	m.OperationRecorded("APPT_CREATED")
	m.OperationRecorded("APPT_CREATED")
	m.AppointmentRejected("slot_conflict")
	m.ObserveHTTP("POST", "/appointments", "201", 0.01)

	if got := testutil.ToFloat64(m.operations.WithLabelValues("APPT_CREATED")); got != 2 {
		t.Fatalf("expected 2 APPT_CREATED, got %v", got)
	}
	if got := testutil.ToFloat64(m.rejections.WithLabelValues("slot_conflict")); got != 1 {
		t.Fatalf("expected 1 slot_conflict, got %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `clinic_http_requests_total{method="POST",route="/appointments",status="201"} 1`) {
		t.Fatalf("expected http counter in exposition, got:\n%s", body)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.OperationRecorded("X")
	m.AppointmentRejected("Y")
	m.ObserveHTTP("GET", "/", "200", 0)
}
