package httpmetrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opencensus.io/stats/view"
)

func TestRequestCountCarriesStatusTag(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	wrapper := New(inner)
	wrapper.RegisterMetrics()
	defer view.Unregister(wrapper.requestCountView)

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	wrapper.ServeHTTP(httptest.NewRecorder(), req)

	rows, err := view.RetrieveData("requests")
	if err != nil {
		t.Fatalf("RetrieveData: %v", err)
	}
	if len(rows) == 0 {
		t.Fatalf("No rows recorded")
	}

	found := false
	for _, row := range rows {
		for _, rowTag := range row.Tags {
			if rowTag.Key.Name() == "status" && rowTag.Value == "404" {
				found = true
			}
		}
	}
	if !found {
		t.Errorf("No row tagged status=404; rows: %v", rows)
	}
}

func TestStatusDefaultsTo200(t *testing.T) {
	// A handler that writes a body without an explicit WriteHeader.
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	recorder := &statusRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	inner.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	if recorder.status != http.StatusOK {
		t.Errorf("Bad default status; got %d, want %d", recorder.status, http.StatusOK)
	}
}
