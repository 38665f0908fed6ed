package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordOTP_IncrementsByResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordOTPRequest(ResultIssued)
	c.RecordOTPRequest(ResultIssued)
	c.RecordOTPRequest(ResultThrottled)
	c.RecordOTPVerification(ResultInvalid)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.otpRequests.WithLabelValues(ResultIssued)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.otpRequests.WithLabelValues(ResultThrottled)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.otpVerifications.WithLabelValues(ResultInvalid)))
}

func TestRecordHTTPRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPRequest(http.MethodPost, "/api/auth/otp/request", 200, 15*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("POST", "/api/auth/otp/request", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.httpLatency))
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordOTPVerification(ResultVerified)

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	resp := w.Result()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.Contains(string(body), `auirah_otp_verifications_total{result="verified"} 1`))
}
