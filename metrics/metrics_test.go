package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordVerification(t *testing.T) {
	valid := testutil.ToFloat64(VerificationsTotal.WithLabelValues("valid"))
	invalid := testutil.ToFloat64(VerificationsTotal.WithLabelValues("invalid"))

	RecordVerification(true)
	RecordVerification(false)
	RecordVerification(false)

	require.InDelta(t, valid+1, testutil.ToFloat64(VerificationsTotal.WithLabelValues("valid")), 0)
	require.InDelta(t, invalid+2, testutil.ToFloat64(VerificationsTotal.WithLabelValues("invalid")), 0)
}

func TestHandlerExposesCollectors(t *testing.T) {
	WorkflowsTotal.WithLabelValues("success").Inc()

	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `silo_workflows_total{resolution="success"}`)
}
