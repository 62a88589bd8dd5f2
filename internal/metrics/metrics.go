package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fieldops"

// Metrics holds the Prometheus collectors of one service. Every method is
// safe to call on a nil *Metrics, which records nothing.
type Metrics struct {
	// Registry holds the service collectors.
	Registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	invoicesCreated   prometheus.Counter
	invoicesPaid      prometheus.Counter
	statusTransitions *prometheus.CounterVec
	tasksAppended     prometheus.Counter
}

// New builds a registry for service, labelled on every series.
func New(service string) *Metrics {
	labels := prometheus.Labels{"service": service}
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "inflight_requests",
			Help:        "Current number of in-flight HTTP requests.",
			ConstLabels: labels,
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "requests_total",
			Help:        "Total number of HTTP requests handled.",
			ConstLabels: labels,
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "request_duration_seconds",
			Help:        "Duration of HTTP requests.",
			Buckets:     prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
			ConstLabels: labels,
		}, []string{"method", "route"}),
		invoicesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "invoices",
			Name:        "created_total",
			Help:        "Invoices created.",
			ConstLabels: labels,
		}),
		invoicesPaid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "invoices",
			Name:        "paid_total",
			Help:        "Mark-paid transitions applied.",
			ConstLabels: labels,
		}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "workorders",
			Name:        "status_transitions_total",
			Help:        "Work order status transitions by target status.",
			ConstLabels: labels,
		}, []string{"estado"}),
		tasksAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "workorders",
			Name:        "tasks_appended_total",
			Help:        "Tasks appended to work orders.",
			ConstLabels: labels,
		}),
	}
	m.Registry.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.invoicesCreated,
		m.invoicesPaid,
		m.statusTransitions,
		m.tasksAppended,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler records request count, duration and in-flight requests.
// Routes are labelled with their mux template, so it must be installed with
// Router.Use where the matched route is already in the request context.
func (m *Metrics) InstrumentHandler(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := routeTemplate(r)
		method := strings.ToUpper(r.Method)
		m.httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) InvoiceCreated() {
	if m != nil {
		m.invoicesCreated.Inc()
	}
}

func (m *Metrics) InvoicePaid() {
	if m != nil {
		m.invoicesPaid.Inc()
	}
}

func (m *Metrics) StatusChanged(status string) {
	if m != nil {
		m.statusTransitions.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) TaskAppended() {
	if m != nil {
		m.tasksAppended.Inc()
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
