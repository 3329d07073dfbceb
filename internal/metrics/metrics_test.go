package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordsOutcomes(t *testing.T) {
	// --- Arrange ---
	reg := prometheus.NewRegistry()
	m := New(reg)

	// --- Act ---
	m.JobExecuted("workers", nil)
	m.JobExecuted("workers", errors.New("boom"))
	m.JobQueued("workers")
	m.JobQueued("workers")
	m.JobDequeued("workers")
	m.ProcessStarted()
	m.ProcessStarted()
	m.ProcessCompleted(nil)
	m.ManagedObjectSourced("db", nil)
	m.AssetTimeout("join")
	m.Escalation("office")

	// --- Assert ---
	require.Equal(t, 1.0, testutil.ToFloat64(m.jobsExecuted.WithLabelValues("workers", OutcomeSuccess)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.jobsExecuted.WithLabelValues("workers", OutcomeFailure)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.jobsQueued.WithLabelValues("workers")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.processesActive))
	require.Equal(t, 1.0, testutil.ToFloat64(m.processesCompleted.WithLabelValues(OutcomeSuccess)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.objectsSourced.WithLabelValues("db", OutcomeSuccess)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.assetTimeouts.WithLabelValues("join")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.escalations.WithLabelValues("office")))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.JobExecuted("x", nil)
	m.JobQueued("x")
	m.ProcessCompleted(errors.New("x"))
}

func TestHandler_ServesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg).ProcessStarted()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "officegrid_process_active 1"))
}
