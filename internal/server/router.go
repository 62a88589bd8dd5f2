// Package server builds the HTTP handler of each service.
package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/diewo77/go-fieldops/httpx"
	"github.com/diewo77/go-fieldops/i18n"
	"github.com/diewo77/go-fieldops/internal/config"
	"github.com/diewo77/go-fieldops/internal/handlers"
	"github.com/diewo77/go-fieldops/internal/policy"
)

// NewRouter constructs the root http.Handler of rc.Service with all routes
// and middlewares applied.
func NewRouter(rc *policy.RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = failHandler(http.StatusNotFound, "route_not_found")
	r.MethodNotAllowedHandler = failHandler(http.StatusMethodNotAllowed, "method_not_allowed")
	r.Use(rc.Metrics.InstrumentHandler)

	r.Handle("/metrics", rc.Metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/api/health", handlers.Health(rc.Service+"_health")).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(rc.Guard.Require)

	switch rc.Service {
	case config.ServiceInvoices:
		registerInvoices(api, rc.InvoiceHandler)
	case config.ServiceWorkOrders:
		registerWorkOrders(api, rc.WorkOrderHandler)
	}

	var h http.Handler = r
	h = withLanguage(h)
	h = cors(rc.CORSOrigin)(h)
	h = withLogging(rc.Log)(h)
	return withRecover(rc.Log)(h)
}

// registerInvoices mounts the invoice routes. Summary must precede {id}.
func registerInvoices(api *mux.Router, h *handlers.InvoiceHandler) {
	api.HandleFunc("/invoices", h.List).Methods(http.MethodGet)
	api.HandleFunc("/invoices", h.Create).Methods(http.MethodPost)
	api.HandleFunc("/invoices/summary", h.Summary).Methods(http.MethodGet)
	api.HandleFunc("/invoices/{id}", h.Get).Methods(http.MethodGet)
	api.HandleFunc("/invoices/{id}", h.Update).Methods(http.MethodPut)
	api.HandleFunc("/invoices/{id}", h.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/invoices/{id}/pay", h.MarkPaid).Methods(http.MethodPatch)
}

func registerWorkOrders(api *mux.Router, h *handlers.WorkOrderHandler) {
	api.HandleFunc("/workorders", h.List).Methods(http.MethodGet)
	api.HandleFunc("/workorders", h.Create).Methods(http.MethodPost)
	api.HandleFunc("/workorders/summary", h.Summary).Methods(http.MethodGet)
	api.HandleFunc("/workorders/{id}", h.Get).Methods(http.MethodGet)
	api.HandleFunc("/workorders/{id}", h.Update).Methods(http.MethodPut)
	api.HandleFunc("/workorders/{id}", h.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/workorders/{id}/assign", h.Assign).Methods(http.MethodPatch)
	api.HandleFunc("/workorders/{id}/status", h.SetStatus).Methods(http.MethodPatch)
	api.HandleFunc("/workorders/{id}/add-task", h.AddTask).Methods(http.MethodPost)
}

func failHandler(status int, code string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.Fail(w, status, i18n.T(i18n.LangFrom(r.Context()), code))
	})
}
