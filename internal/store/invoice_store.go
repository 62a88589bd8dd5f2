package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/diewo77/go-fieldops/internal/models"
)

// InvoiceFilter narrows a listing. Empty fields are ignored.
type InvoiceFilter struct {
	Status   string
	ClientID string
}

func (f InvoiceFilter) apply(db *gorm.DB) *gorm.DB {
	if f.Status != "" {
		db = db.Where("estado = ?", f.Status)
	}
	if f.ClientID != "" {
		db = db.Where("cliente_id = ?", f.ClientID)
	}
	return db
}

type InvoiceStore struct {
	db *gorm.DB
}

func NewInvoiceStore(db *gorm.DB) *InvoiceStore {
	return &InvoiceStore{db: db}
}

// FindByID loads an invoice with its items in submission order.
func (s *InvoiceStore) FindByID(ctx context.Context, id string) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).
		Preload("Items", orderBySeq).
		First(&inv, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "find invoice")
	}
	return &inv, nil
}

// List returns one page of matching invoices, oldest first, and the total
// number of matches.
func (s *InvoiceStore) List(ctx context.Context, f InvoiceFilter, page, perPage int) ([]models.Invoice, int64, error) {
	db := s.db.WithContext(ctx)

	var total int64
	if err := f.apply(db.Model(&models.Invoice{})).Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count invoices")
	}

	invoices := []models.Invoice{}
	skip, ok := offset(page, perPage)
	if !ok {
		return invoices, total, nil
	}
	err := f.apply(db.Model(&models.Invoice{})).
		Preload("Items", orderBySeq).
		Order("fecha_creacion").Order("id").
		Offset(skip).Limit(perPage).
		Find(&invoices).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "list invoices")
	}
	return invoices, total, nil
}

// Insert stores the invoice and its items atomically.
func (s *InvoiceStore) Insert(ctx context.Context, inv *models.Invoice) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(inv).Error
	})
	return errors.Wrap(err, "insert invoice")
}

// Update sets the given columns in a single statement.
func (s *InvoiceStore) Update(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := s.db.WithContext(ctx).Model(&models.Invoice{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return errors.Wrap(res.Error, "update invoice")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the invoice and its items.
func (s *InvoiceStore) Delete(ctx context.Context, id string) error {
	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Invoice{})
		deleted = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return errors.Wrap(err, "delete invoice")
	}
	if deleted == 0 {
		return ErrNotFound
	}
	return nil
}

// ClientRevenue is the invoiced amount of one client.
type ClientRevenue struct {
	ClientName string  `gorm:"column:cliente_nombre"`
	Total      float64 `gorm:"column:total"`
	Count      int64   `gorm:"column:facturas"`
}

// RevenueSummary aggregates invoices created in a time range.
type RevenueSummary struct {
	Total     float64
	Count     int64
	Paid      float64
	TopClient *ClientRevenue
}

// Revenue aggregates invoices with from <= fecha_creacion < to.
func (s *InvoiceStore) Revenue(ctx context.Context, from, to time.Time) (*RevenueSummary, error) {
	db := s.db.WithContext(ctx)
	inRange := func(q *gorm.DB) *gorm.DB {
		return q.Model(&models.Invoice{}).Where("fecha_creacion >= ? AND fecha_creacion < ?", from, to)
	}

	var all struct {
		Total float64
		Count int64
	}
	if err := inRange(db).Select("COALESCE(SUM(total), 0) AS total, COUNT(*) AS count").Scan(&all).Error; err != nil {
		return nil, errors.Wrap(err, "sum invoices")
	}

	var paid struct{ Total float64 }
	err := inRange(db).
		Where("estado = ?", models.InvoiceStatusPaid).
		Select("COALESCE(SUM(total), 0) AS total").
		Scan(&paid).Error
	if err != nil {
		return nil, errors.Wrap(err, "sum paid invoices")
	}

	var top []ClientRevenue
	err = inRange(db).
		Select("cliente_nombre, SUM(total) AS total, COUNT(*) AS facturas").
		Group("cliente_nombre").
		Order("total DESC").Order("cliente_nombre").
		Limit(1).
		Scan(&top).Error
	if err != nil {
		return nil, errors.Wrap(err, "top client")
	}

	sum := &RevenueSummary{Total: all.Total, Count: all.Count, Paid: paid.Total}
	if len(top) > 0 {
		sum.TopClient = &top[0]
	}
	return sum, nil
}
