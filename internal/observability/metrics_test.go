package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("POST", "/api/v1/sync/{collection}", 200, 12*time.Millisecond)
	RecordExchange("notes", "ok", 5*time.Millisecond)
	RecordDocument("notes", "insert")
	RecordAdmission("allow")
	RecordFlag("uniform_intervals")
	RecordRetry("delivered")
	SetRetryDepth(3)

	assert.Equal(t, float64(3), testutil.ToFloat64(retryDepth))

	before := testutil.ToFloat64(documents.WithLabelValues("notes", "reject"))
	RecordDocument("notes", "reject")
	assert.Equal(t, before+1, testutil.ToFloat64(documents.WithLabelValues("notes", "reject")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	RecordAdmission("throttle")

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `docsync_admission_decisions_total{verdict="throttle"}`)
}
