// Package metrics holds the prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MountsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cartepays_mounts_total",
		Help: "Total number of successful map mounts",
	})
	GeometryFetchFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cartepays_geometry_fetch_failures_total",
		Help: "Total number of failed geometry fetches",
	})
	GeometryFetchDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cartepays_geometry_fetch_duration_ms",
		Help:    "Geometry fetch duration in milliseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	})
	ShapesRendered = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cartepays_shapes_rendered",
		Help: "Number of shapes bound on the mounted map",
	})
	InteractionEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cartepays_interaction_events_total",
		Help: "Viewer interaction events by type",
	}, []string{"event"})
	ZoomRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cartepays_zoom_requests_total",
		Help: "Zoom requests by direction",
	}, []string{"direction"})
	SelectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cartepays_selections_total",
		Help: "Clicked countries by code",
	}, []string{"code"})
	ConnectedViewers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cartepays_connected_viewers",
		Help: "Number of open websocket viewers",
	})
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cartepays_http_requests_total",
		Help: "HTTP requests by method and status",
	}, []string{"method", "status"})
)

func init() {
	prometheus.MustRegister(MountsTotal)
	prometheus.MustRegister(GeometryFetchFailuresTotal)
	prometheus.MustRegister(GeometryFetchDurationMs)
	prometheus.MustRegister(ShapesRendered)
	prometheus.MustRegister(InteractionEventsTotal)
	prometheus.MustRegister(ZoomRequestsTotal)
	prometheus.MustRegister(SelectionsTotal)
	prometheus.MustRegister(ConnectedViewers)
	prometheus.MustRegister(HTTPRequestsTotal)
}

// Handler serves the default registry
func Handler() http.Handler { return promhttp.Handler() }
