package metrics

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentHandler(t *testing.T) {
	handler := InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetRoute(r.Context(), "/v1/jobs/{id}")
		w.WriteHeader(http.StatusTeapot)
	}))

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/v1/jobs/{id}", "418"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jobs/"+uuid.NewString(), nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/v1/jobs/{id}", "418")))
}

func TestInstrumentHandler_UnmatchedPathsShareOneSeries(t *testing.T) {
	handler := InstrumentHandler(http.NotFoundHandler())

	before := testutil.CollectAndCount(httpRequests)
	unmatched := testutil.ToFloat64(httpRequests.WithLabelValues("GET", UnmatchedRoute, "404"))
	unknownMethod := testutil.ToFloat64(httpRequests.WithLabelValues(UnmatchedRoute, UnmatchedRoute, "404"))

	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/random-%d", i), nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("BREW", "/v1/jobs/not-an-id", nil))

	assert.Equal(t, unmatched+50, testutil.ToFloat64(httpRequests.WithLabelValues("GET", UnmatchedRoute, "404")))
	assert.Equal(t, unknownMethod+1, testutil.ToFloat64(httpRequests.WithLabelValues(UnmatchedRoute, UnmatchedRoute, "404")))
	assert.LessOrEqual(t, testutil.CollectAndCount(httpRequests), before+2)
}

func TestSetRouteWithoutInstrumentation(t *testing.T) {
	assert.NotPanics(t, func() { SetRoute(context.Background(), "/v1/jobs") })
}

func TestLedgerCounters(t *testing.T) {
	created := testutil.ToFloat64(applicationsCreated)
	RecordApplicationCreated()
	assert.Equal(t, created+1, testutil.ToFloat64(applicationsCreated))

	shortlisted := testutil.ToFloat64(statusTransitions.WithLabelValues("shortlisted"))
	RecordStatusTransition("shortlisted")
	assert.Equal(t, shortlisted+1, testutil.ToFloat64(statusTransitions.WithLabelValues("shortlisted")))

	failed := testutil.ToFloat64(notifications.WithLabelValues("failed"))
	RecordNotification("failed")
	assert.Equal(t, failed+1, testutil.ToFloat64(notifications.WithLabelValues("failed")))
}

func TestHandlerServesRegistry(t *testing.T) {
	RecordApplicationCreated()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "jobboard_ledger_applications_created_total")
}
