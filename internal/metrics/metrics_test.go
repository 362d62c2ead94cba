package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/meigma/srcview"
)

func TestRecordScan(t *testing.T) {
	okBefore := testutil.ToFloat64(scansTotal.WithLabelValues("ok"))
	downBefore := testutil.ToFloat64(scansTotal.WithLabelValues("unavailable"))

	RecordScan(srcview.ScanStats{Outcome: srcview.ScanOK, Entries: 42, Duration: time.Millisecond})
	assert.Equal(t, okBefore+1, testutil.ToFloat64(scansTotal.WithLabelValues("ok")))
	assert.Equal(t, float64(42), testutil.ToFloat64(scanEntries))

	// An unavailable archive leaves the last entry count alone.
	RecordScan(srcview.ScanStats{Outcome: srcview.ScanUnavailable})
	assert.Equal(t, downBefore+1, testutil.ToFloat64(scansTotal.WithLabelValues("unavailable")))
	assert.Equal(t, float64(42), testutil.ToFloat64(scanEntries))
}

func TestRecordExtraction(t *testing.T) {
	bytesBefore := testutil.ToFloat64(extractedBytes)
	missBefore := testutil.ToFloat64(extractionsTotal.WithLabelValues(ExtractNotFound))

	RecordExtraction(ExtractOK, 100)
	RecordExtraction(ExtractNotFound, 0)

	assert.Equal(t, bytesBefore+100, testutil.ToFloat64(extractedBytes))
	assert.Equal(t, missBefore+1, testutil.ToFloat64(extractionsTotal.WithLabelValues(ExtractNotFound)))
}

func TestRecordMirrorBuild(t *testing.T) {
	RecordMirrorBuild(12, time.Second)
	assert.Equal(t, float64(12), testutil.ToFloat64(mirrorLinks))
}

func TestMiddlewareUsesPattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /pub/{path...}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := Middleware(mux)

	counter := httpRequestsTotal.WithLabelValues("GET", "GET /pub/{path...}", "418")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pub/src/a.c", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/pub/src/b.c", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestHandler(t *testing.T) {
	RecordExtraction(ExtractOK, 1)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "srcview_extractions_total"))
}
