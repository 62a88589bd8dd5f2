package models

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InvoiceStatus represents the status of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "pendiente"
	InvoiceStatusPaid      InvoiceStatus = "pagada"
	InvoiceStatusCancelled InvoiceStatus = "cancelada"
)

// InvoiceStatuses lists the accepted invoice statuses in display order.
func InvoiceStatuses() []string {
	return []string{string(InvoiceStatusPending), string(InvoiceStatusPaid), string(InvoiceStatusCancelled)}
}

// TaxRate is the flat IVA applied to every invoice subtotal.
const TaxRate = 0.19

// Invoice represents a billing invoice. Totals are computed once, at creation.
type Invoice struct {
	ID         string        `gorm:"primaryKey;size:36" json:"_id"`
	Number     string        `gorm:"column:numero_factura;size:100;not null;index" json:"numero_factura"`
	ClientID   string        `gorm:"column:cliente_id;size:100;not null;index" json:"cliente_id"`
	ClientName string        `gorm:"column:cliente_nombre;size:255;not null" json:"cliente_nombre"`
	Items      []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`

	Subtotal float64 `gorm:"column:subtotal;not null;default:0" json:"subtotal"`
	Tax      float64 `gorm:"column:iva;not null;default:0" json:"iva"`
	Total    float64 `gorm:"column:total;not null;default:0" json:"total"`

	Status InvoiceStatus `gorm:"column:estado;size:20;not null;index" json:"estado"`

	// UserID is the id claim of the token that created the invoice.
	UserID string `gorm:"column:usuario_id;size:100;index" json:"usuario_id"`

	CreatedAt time.Time  `gorm:"column:fecha_creacion;autoCreateTime:false;index" json:"fecha_creacion"`
	PaidAt    *time.Time `gorm:"column:fecha_pago" json:"fecha_pago"`
	UpdatedAt *time.Time `gorm:"column:fecha_actualizacion;autoUpdateTime:false" json:"fecha_actualizacion,omitempty"`

	Notes string `gorm:"column:notas;type:text" json:"notas"`
}

// BeforeCreate assigns a fresh UUID when the caller has not set one.
func (i *Invoice) BeforeCreate(*gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// IsPaid returns true if the invoice has been marked as paid.
func (i *Invoice) IsPaid() bool {
	return i.Status == InvoiceStatusPaid
}

// ComputeTotals sets Subtotal, Tax and Total from the current items.
func (i *Invoice) ComputeTotals() {
	var subtotal float64
	for _, item := range i.Items {
		subtotal += item.Amount()
	}
	i.Subtotal = subtotal
	i.Tax = subtotal * TaxRate
	i.Total = i.Subtotal + i.Tax
}

// InvoiceItem represents a line item on an invoice.
type InvoiceItem struct {
	// Seq keeps items in submission order; it is never exposed.
	Seq       uint   `gorm:"primaryKey;autoIncrement" json:"-"`
	InvoiceID string `gorm:"size:36;index;not null" json:"-"`

	Description string  `gorm:"column:descripcion;size:500" json:"descripcion"`
	Quantity    float64 `gorm:"column:cantidad;not null;default:0" json:"cantidad"`
	UnitPrice   float64 `gorm:"column:precio_unitario;not null;default:0" json:"precio_unitario"`
}

// Amount is quantity times unit price.
func (item *InvoiceItem) Amount() float64 {
	return item.Quantity * item.UnitPrice
}

// RoundMoney rounds to cents, for presenting aggregated amounts.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
