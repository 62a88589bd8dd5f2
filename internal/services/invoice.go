package services

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/diewo77/go-fieldops/auth"
	"github.com/diewo77/go-fieldops/internal/metrics"
	"github.com/diewo77/go-fieldops/internal/models"
	"github.com/diewo77/go-fieldops/internal/store"
	"github.com/diewo77/go-fieldops/validation"
)

// ErrNotFound is returned when an id does not resolve.
var ErrNotFound = store.ErrNotFound

// Pagination defaults for list endpoints.
const (
	DefaultPage    = 1
	DefaultPerPage = 10
	MaxPerPage     = math.MaxInt32
)

// invoiceUpdatable is the set of fields a generic update may change.
var invoiceUpdatable = []string{"estado", "notas", "fecha_pago", "cliente_nombre"}

type InvoiceService struct {
	store   *store.InvoiceStore
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewInvoiceService(s *store.InvoiceStore, m *metrics.Metrics) *InvoiceService {
	return &InvoiceService{store: s, metrics: m, now: utcNow}
}

func utcNow() time.Time { return time.Now().UTC() }

// Create validates the payload, computes totals and stores the invoice.
func (s *InvoiceService) Create(ctx context.Context, p Payload, claims *auth.Claims) (*models.Invoice, error) {
	number, err := p.String("numero_factura")
	if err != nil {
		return nil, err
	}
	clientID, err := p.String("cliente_id")
	if err != nil {
		return nil, err
	}
	clientName, err := p.String("cliente_nombre")
	if err != nil {
		return nil, err
	}
	if name, missing := validation.FirstMissing(
		validation.Field{Name: "numero_factura", Value: number},
		validation.Field{Name: "cliente_id", Value: clientID},
		validation.Field{Name: "cliente_nombre", Value: clientName},
	); missing {
		return nil, invalid("field_required", name)
	}
	if !p.Truthy("items") {
		return nil, invalid("field_required", "items")
	}
	items, err := decodeItems(p["items"])
	if err != nil {
		return nil, err
	}

	status := string(models.InvoiceStatusPending)
	if p.Truthy("estado") {
		if status, err = p.String("estado"); err != nil {
			return nil, err
		}
		v := make(validation.Violations)
		validation.OneOf("estado", status, models.InvoiceStatuses(), v)
		if !v.Empty() {
			return nil, invalid("invoice_status_bad")
		}
	}
	notes, err := p.String("notas")
	if err != nil {
		return nil, err
	}
	paidAt, err := p.Time("fecha_pago")
	if err != nil {
		return nil, err
	}

	inv := &models.Invoice{
		Number:     number,
		ClientID:   clientID,
		ClientName: clientName,
		Items:      items,
		Status:     models.InvoiceStatus(status),
		CreatedAt:  s.now(),
		PaidAt:     paidAt,
		Notes:      notes,
	}
	if claims != nil {
		inv.UserID = claims.UserID
	}
	inv.ComputeTotals()

	if err := s.store.Insert(ctx, inv); err != nil {
		return nil, err
	}
	s.metrics.InvoiceCreated()
	return inv, nil
}

// decodeItems requires a JSON array of objects. Missing amounts count as 0.
func decodeItems(raw json.RawMessage) ([]models.InvoiceItem, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil || len(elems) == 0 {
		return nil, invalid("items_non_empty")
	}
	items := make([]models.InvoiceItem, 0, len(elems))
	for i, elem := range elems {
		var fields Payload
		if err := json.Unmarshal(elem, &fields); err != nil || fields == nil {
			return nil, invalid("item_invalid", i+1)
		}
		desc, err := fields.String("descripcion")
		if err != nil {
			return nil, invalid("item_invalid", i+1)
		}
		qty, err := fields.Float("cantidad")
		if err != nil {
			return nil, invalid("item_invalid", i+1)
		}
		price, err := fields.Float("precio_unitario")
		if err != nil {
			return nil, invalid("item_invalid", i+1)
		}
		items = append(items, models.InvoiceItem{Description: desc, Quantity: qty, UnitPrice: price})
	}
	return items, nil
}

func (s *InvoiceService) Get(ctx context.Context, id string) (*models.Invoice, error) {
	return s.store.FindByID(ctx, id)
}

// List returns one page of invoices and the total number of matches.
func (s *InvoiceService) List(ctx context.Context, f store.InvoiceFilter, page, perPage int) ([]models.Invoice, int64, error) {
	page, perPage = NormalizePage(page, perPage)
	return s.store.List(ctx, f, page, perPage)
}

// Update applies the allowed fields present in p. Totals are never
// recomputed. The existence check and the write are separate statements, so
// concurrent updates are last-writer-wins per column.
func (s *InvoiceService) Update(ctx context.Context, id string, p Payload) (*models.Invoice, error) {
	if _, err := s.store.FindByID(ctx, id); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	for _, key := range invoiceUpdatable {
		if !p.Has(key) {
			continue
		}
		switch key {
		case "fecha_pago":
			t, err := p.Time(key)
			if err != nil {
				return nil, err
			}
			fields[key] = t
		default:
			v, err := p.String(key)
			if err != nil {
				return nil, err
			}
			fields[key] = v
		}
	}
	if len(fields) > 0 {
		fields["fecha_actualizacion"] = s.now()
		if err := s.store.Update(ctx, id, fields); err != nil {
			return nil, err
		}
	}
	return s.store.FindByID(ctx, id)
}

// MarkPaid sets the paid status and stamps payment and update times, even
// when the invoice is already paid.
func (s *InvoiceService) MarkPaid(ctx context.Context, id string) (*models.Invoice, error) {
	if _, err := s.store.FindByID(ctx, id); err != nil {
		return nil, err
	}
	now := s.now()
	err := s.store.Update(ctx, id, map[string]any{
		"estado":              models.InvoiceStatusPaid,
		"fecha_pago":          now,
		"fecha_actualizacion": now,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.InvoicePaid()
	return s.store.FindByID(ctx, id)
}

func (s *InvoiceService) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// InvoiceSummary is the billing report for a date range.
type InvoiceSummary struct {
	From          string  `json:"fecha_inicio"`
	To            string  `json:"fecha_fin"`
	TotalRevenue  float64 `json:"total_ingresos"`
	PaidRevenue   float64 `json:"ingresos_pagados"`
	InvoiceCount  int64   `json:"total_facturas"`
	AverageAmount float64 `json:"promedio_factura"`
	TopClient     string  `json:"cliente_top"`
}

const dateLayout = "2006-01-02"

// Summary aggregates invoices created between from and to, both inclusive
// calendar days. Blank bounds default to January 1st of the current year
// and today.
func (s *InvoiceService) Summary(ctx context.Context, from, to string) (*InvoiceSummary, error) {
	now := s.now()
	if from == "" {
		from = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC).Format(dateLayout)
	}
	if to == "" {
		to = now.Format(dateLayout)
	}
	start, err := time.Parse(dateLayout, from)
	if err != nil {
		return nil, invalid("date_invalid", "fecha_inicio")
	}
	end, err := time.Parse(dateLayout, to)
	if err != nil {
		return nil, invalid("date_invalid", "fecha_fin")
	}

	rev, err := s.store.Revenue(ctx, start, end.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	sum := &InvoiceSummary{
		From:         from,
		To:           to,
		TotalRevenue: models.RoundMoney(rev.Total),
		PaidRevenue:  models.RoundMoney(rev.Paid),
		InvoiceCount: rev.Count,
		TopClient:    "N/A",
	}
	if rev.Count > 0 {
		sum.AverageAmount = models.RoundMoney(rev.Total / float64(rev.Count))
	}
	if rev.TopClient != nil {
		sum.TopClient = rev.TopClient.ClientName
	}
	return sum, nil
}

// NormalizePage replaces values below 1 with the defaults and caps perPage
// at MaxPerPage.
func NormalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}
