package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"RedisVSCode-Webview/internal/keys"
)

func TestTelemetry_CountsAndForwards(t *testing.T) {
	m := New()
	var got map[string]any
	var name keys.EventName
	tel := NewTelemetry(m, func(e keys.EventName, data map[string]any) {
		name = e
		got = data
	})

	tel.ObserveScan(keys.OutcomeSuccess, 20*time.Millisecond)
	tel.ObserveScan(keys.OutcomeCancelled, time.Millisecond)
	tel.ObserveDelete(keys.OutcomeFailure)
	tel.SendEvent(keys.Event{Name: keys.EventKeysScanned, Data: keys.ScanEventData{
		DatabaseID:          "db-1",
		DatabaseSize:        1000,
		NumberOfKeysScanned: 500,
		ScanCount:           500,
		Match:               keys.MatchPattern,
		Source:              "manual",
	}})

	require.Equal(t, 1.0, testutil.ToFloat64(m.ScanRequestsTotal.WithLabelValues("success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ScanRequestsTotal.WithLabelValues("cancelled")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.DeleteRequestsTotal.WithLabelValues("failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.EventsTotal.WithLabelValues(string(keys.EventKeysScanned))))
	require.Equal(t, 500.0, testutil.ToFloat64(m.KeysScannedTotal))

	require.Equal(t, keys.EventKeysScanned, name)
	require.Equal(t, "db-1", got["databaseId"])
	require.Equal(t, int64(1000), got["databaseSize"])
	require.Equal(t, int64(500), got["numberOfKeysScanned"])
	require.Equal(t, 500, got["scanCount"])
	require.Equal(t, keys.MatchPattern, got["match"])
}

func TestTelemetry_NilSink(t *testing.T) {
	m := New()
	tel := NewTelemetry(m, nil)
	tel.SendEvent(keys.Event{Name: keys.EventKeysAdditionallyScanned})
	require.Equal(t, 1.0, testutil.ToFloat64(m.EventsTotal.WithLabelValues(string(keys.EventKeysAdditionallyScanned))))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveHTTP(http.MethodPost, "/databases/{id}/keys", http.StatusOK, 5*time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), "redis_vscode_api_server_http_requests_total"))
}
