package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WorkOrderStatus represents the lifecycle state of a work order.
type WorkOrderStatus string

const (
	WorkOrderStatusPending    WorkOrderStatus = "pendiente"
	WorkOrderStatusInProgress WorkOrderStatus = "en_progreso"
	WorkOrderStatusCompleted  WorkOrderStatus = "completada"
	WorkOrderStatusCancelled  WorkOrderStatus = "cancelada"
)

// WorkOrderStatuses lists the accepted statuses in display order.
func WorkOrderStatuses() []string {
	return []string{
		string(WorkOrderStatusPending),
		string(WorkOrderStatusInProgress),
		string(WorkOrderStatusCompleted),
		string(WorkOrderStatusCancelled),
	}
}

// Priority of a work order.
type Priority string

const (
	PriorityLow    Priority = "baja"
	PriorityMedium Priority = "media"
	PriorityHigh   Priority = "alta"
)

func Priorities() []string {
	return []string{string(PriorityLow), string(PriorityMedium), string(PriorityHigh)}
}

// WorkOrder represents a field service job for a client.
type WorkOrder struct {
	ID          string          `gorm:"primaryKey;size:36" json:"_id"`
	Number      string          `gorm:"column:numero_orden;size:100;not null;index" json:"numero_orden"`
	ClientID    string          `gorm:"column:cliente_id;size:100;not null;index" json:"cliente_id"`
	ClientName  string          `gorm:"column:cliente_nombre;size:255;not null" json:"cliente_nombre"`
	Description string          `gorm:"column:descripcion;type:text;not null" json:"descripcion"`
	Status      WorkOrderStatus `gorm:"column:estado;size:20;not null;index" json:"estado"`
	Priority    Priority        `gorm:"column:prioridad;size:10;not null" json:"prioridad"`

	// Technician is nil until one is assigned.
	Technician *string `gorm:"column:tecnico_asignado;size:255;index" json:"tecnico_asignado"`
	CreatorID  string  `gorm:"column:usuario_creador_id;size:100" json:"usuario_creador_id"`

	CreatedAt   time.Time  `gorm:"column:fecha_creacion;autoCreateTime:false;index" json:"fecha_creacion"`
	ScheduledAt *time.Time `gorm:"column:fecha_programada" json:"fecha_programada"`
	StartedAt   *time.Time `gorm:"column:fecha_inicio" json:"fecha_inicio"`
	CompletedAt *time.Time `gorm:"column:fecha_finalizacion" json:"fecha_finalizacion"`
	AssignedAt  *time.Time `gorm:"column:fecha_asignacion" json:"fecha_asignacion,omitempty"`
	UpdatedAt   *time.Time `gorm:"column:fecha_actualizacion;autoUpdateTime:false" json:"fecha_actualizacion,omitempty"`

	EstimatedHours float64 `gorm:"column:horas_estimadas;not null;default:0" json:"horas_estimadas"`
	WorkedHours    float64 `gorm:"column:horas_trabajadas;not null;default:0" json:"horas_trabajadas"`

	Notes    string                      `gorm:"column:notas;type:text" json:"notas"`
	Location string                      `gorm:"column:ubicacion;size:500" json:"ubicacion"`
	Phones   datatypes.JSONSlice[string] `gorm:"column:telefonos_contacto" json:"telefonos_contacto"`

	Tasks []Task `gorm:"foreignKey:WorkOrderID;constraint:OnDelete:CASCADE" json:"tareas"`
}

// BeforeCreate assigns a fresh UUID and normalizes nil lists.
func (o *WorkOrder) BeforeCreate(*gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Phones == nil {
		o.Phones = datatypes.JSONSlice[string]{}
	}
	return nil
}

// Task is a step of a work order. Tasks are only ever appended.
type Task struct {
	Seq         uint   `gorm:"primaryKey;autoIncrement" json:"-"`
	ID          string `gorm:"column:id_tarea;size:36;uniqueIndex;not null" json:"id"`
	WorkOrderID string `gorm:"size:36;index;not null" json:"-"`

	Description string    `gorm:"column:descripcion;type:text;not null" json:"descripcion"`
	Status      string    `gorm:"column:estado;size:20;not null" json:"estado"`
	CreatedAt   time.Time `gorm:"column:fecha_creacion;autoCreateTime:false" json:"fecha_creacion"`
	Done        bool      `gorm:"column:completada;not null;default:false" json:"completada"`
}

// TableName keeps tasks namespaced next to work_orders.
func (Task) TableName() string { return "work_order_tasks" }

func (t *Task) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
