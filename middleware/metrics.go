package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/metrics"
	restful "github.com/emicklei/go-restful/v3"
)

var httpRequestsInFlight int64

func init() {
	metrics.NewGauge(`http_requests_in_flight`, func() float64 {
		return float64(atomic.LoadInt64(&httpRequestsInFlight))
	})
}

// Metrics records request counts and latencies per route template.
func Metrics() restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		start := time.Now()

		atomic.AddInt64(&httpRequestsInFlight, 1)
		defer atomic.AddInt64(&httpRequestsInFlight, -1)

		chain.ProcessFilter(req, resp)

		path := req.SelectedRoutePath()
		if path == "" {
			path = "unknown"
		}
		path = strings.ReplaceAll(path, `"`, `_`)
		method := strings.ReplaceAll(req.Request.Method, `"`, `_`)
		status := strconv.Itoa(resp.StatusCode())

		labels := `handler="` + path + `",method="` + method + `",status="` + status + `"`
		metrics.GetOrCreateCounter(`http_requests_total{` + labels + `}`).Inc()
		metrics.GetOrCreateHistogram(`http_request_duration_seconds{handler="` + path + `",method="` + method + `"}`).UpdateDuration(start)
	}
}

// MetricsHandler serves all registered metrics in Prometheus text format.
func MetricsHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	metrics.WritePrometheus(w, true)
}
