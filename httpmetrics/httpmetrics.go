// Package httpmetrics wraps an http.Handler with OpenCensus request
// counting.
package httpmetrics

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

type Wrapper struct {
	requestCount     *stats.Int64Measure
	requestCountView *view.View

	inner http.Handler
}

func New(inner http.Handler) *Wrapper {
	w := &Wrapper{}

	w.requestCount = stats.Int64("requests", "", stats.UnitDimensionless)
	w.requestCountView = &view.View{
		Name:        "requests",
		Description: "Counter of requests that have been handled",

		TagKeys: []tag.Key{
			tag.MustNewKey("method"),
			tag.MustNewKey("path"),
			tag.MustNewKey("status"),
			tag.MustNewKey("useragent"),
		},

		Measure:     w.requestCount,
		Aggregation: view.Count(),
	}

	w.inner = inner

	return w
}

func (h *Wrapper) RegisterMetrics() {
	view.Register(h.requestCountView)
}

// statusRecorder remembers the response code written by the inner handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *Wrapper) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	h.inner.ServeHTTP(recorder, r)

	glog.V(1).Infof("Served method=%q path=%q status=%d useragent=%q", r.Method, r.URL.Path, recorder.status, r.Header["User-Agent"])

	stats.RecordWithOptions(
		r.Context(),
		stats.WithTags(
			tag.Insert(tag.MustNewKey("method"), r.Method),
			tag.Insert(tag.MustNewKey("path"), r.URL.Path),
			tag.Insert(tag.MustNewKey("status"), strconv.Itoa(recorder.status)),
			tag.Insert(tag.MustNewKey("useragent"), strings.Join(r.Header["User-Agent"], "|")),
		),
		stats.WithMeasurements(h.requestCount.M(1)))
}
