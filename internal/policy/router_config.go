// Package policy wires the stores, services and handlers of one service
// together with its token guard.
package policy

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/diewo77/go-fieldops/auth"
	"github.com/diewo77/go-fieldops/internal/config"
	"github.com/diewo77/go-fieldops/internal/handlers"
	"github.com/diewo77/go-fieldops/internal/metrics"
	"github.com/diewo77/go-fieldops/internal/services"
	"github.com/diewo77/go-fieldops/internal/store"
)

// RouterConfig holds the configured handlers and middleware of a service.
// Only the handler of the configured service is set.
type RouterConfig struct {
	Service    string
	CORSOrigin string

	Guard   *auth.Guard
	Metrics *metrics.Metrics
	Log     logrus.FieldLogger

	InvoiceService *services.InvoiceService
	InvoiceHandler *handlers.InvoiceHandler

	WorkOrderService *services.WorkOrderService
	WorkOrderHandler *handlers.WorkOrderHandler
}

// NewRouterConfig builds the wiring of cfg.Service on top of db.
//
// Example:
//
//	rc, err := policy.NewRouterConfig(db, cfg, log)
//	handler := server.NewRouter(rc)
func NewRouterConfig(db *gorm.DB, cfg *config.Config, log logrus.FieldLogger) (*RouterConfig, error) {
	rc := &RouterConfig{
		Service:    cfg.Service,
		CORSOrigin: cfg.CORSOrigin,
		Guard:      auth.NewGuard(auth.NewVerifier(cfg.JWTSecret), log),
		Metrics:    metrics.New(cfg.Service),
		Log:        log,
	}

	switch cfg.Service {
	case config.ServiceInvoices:
		rc.InvoiceService = services.NewInvoiceService(store.NewInvoiceStore(db), rc.Metrics)
		rc.InvoiceHandler = handlers.NewInvoiceHandler(rc.InvoiceService, log)
	case config.ServiceWorkOrders:
		rc.WorkOrderService = services.NewWorkOrderService(store.NewWorkOrderStore(db), rc.Metrics)
		rc.WorkOrderHandler = handlers.NewWorkOrderHandler(rc.WorkOrderService, log)
	default:
		return nil, errors.Errorf("unknown service %q", cfg.Service)
	}
	return rc, nil
}
