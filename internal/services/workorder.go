package services

import (
	"context"
	"time"

	"gorm.io/datatypes"

	"github.com/diewo77/go-fieldops/auth"
	"github.com/diewo77/go-fieldops/internal/metrics"
	"github.com/diewo77/go-fieldops/internal/models"
	"github.com/diewo77/go-fieldops/internal/store"
	"github.com/diewo77/go-fieldops/validation"
)

// workOrderUpdatable is the set of fields a generic update may change.
// estado is written as sent, without the enum check SetStatus applies.
var workOrderUpdatable = []string{
	"estado", "prioridad", "tecnico_asignado", "notas", "horas_trabajadas",
	"fecha_inicio", "fecha_finalizacion", "descripcion", "ubicacion", "telefonos_contacto",
}

type WorkOrderService struct {
	store   *store.WorkOrderStore
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewWorkOrderService(s *store.WorkOrderStore, m *metrics.Metrics) *WorkOrderService {
	return &WorkOrderService{store: s, metrics: m, now: utcNow}
}

// Create validates the payload, applies defaults and stores the order.
func (s *WorkOrderService) Create(ctx context.Context, p Payload, claims *auth.Claims) (*models.WorkOrder, error) {
	required := []string{"numero_orden", "cliente_id", "cliente_nombre", "descripcion"}
	values := make(map[string]string, len(required))
	fields := make([]validation.Field, 0, len(required))
	for _, key := range required {
		v, err := p.String(key)
		if err != nil {
			return nil, err
		}
		values[key] = v
		fields = append(fields, validation.Field{Name: key, Value: v})
	}
	if name, missing := validation.FirstMissing(fields...); missing {
		return nil, invalid("field_required", name)
	}

	status, err := s.enumOrDefault(p, "estado", string(models.WorkOrderStatusPending), models.WorkOrderStatuses(), "status_invalid")
	if err != nil {
		return nil, err
	}
	priority, err := s.enumOrDefault(p, "prioridad", string(models.PriorityMedium), models.Priorities(), "priority_invalid")
	if err != nil {
		return nil, err
	}
	technician, err := p.NullableString("tecnico_asignado")
	if err != nil {
		return nil, err
	}
	scheduled, err := p.Time("fecha_programada")
	if err != nil {
		return nil, err
	}
	estimated, err := p.Float("horas_estimadas")
	if err != nil {
		return nil, err
	}
	notes, err := p.String("notas")
	if err != nil {
		return nil, err
	}
	location, err := p.String("ubicacion")
	if err != nil {
		return nil, err
	}
	phones, err := p.StringList("telefonos_contacto")
	if err != nil {
		return nil, err
	}

	wo := &models.WorkOrder{
		Number:         values["numero_orden"],
		ClientID:       values["cliente_id"],
		ClientName:     values["cliente_nombre"],
		Description:    values["descripcion"],
		Status:         models.WorkOrderStatus(status),
		Priority:       models.Priority(priority),
		Technician:     technician,
		CreatedAt:      s.now(),
		ScheduledAt:    scheduled,
		EstimatedHours: estimated,
		Notes:          notes,
		Location:       location,
		Phones:         datatypes.JSONSlice[string](phones),
		Tasks:          []models.Task{},
	}
	if claims != nil {
		wo.CreatorID = claims.UserID
	}
	if err := s.store.Insert(ctx, wo); err != nil {
		return nil, err
	}
	return wo, nil
}

func (s *WorkOrderService) enumOrDefault(p Payload, key, def string, allowed []string, code string) (string, error) {
	if !p.Truthy(key) {
		return def, nil
	}
	v, err := p.String(key)
	if err != nil {
		return "", err
	}
	violations := make(validation.Violations)
	validation.OneOf(key, v, allowed, violations)
	if !violations.Empty() {
		return "", invalid(code)
	}
	return v, nil
}

func (s *WorkOrderService) Get(ctx context.Context, id string) (*models.WorkOrder, error) {
	return s.store.FindByID(ctx, id)
}

func (s *WorkOrderService) List(ctx context.Context, f store.WorkOrderFilter, page, perPage int) ([]models.WorkOrder, int64, error) {
	page, perPage = NormalizePage(page, perPage)
	return s.store.List(ctx, f, page, perPage)
}

// Update applies the allowed fields present in p in one statement. Like the
// invoice update, the lookup and the write are not atomic together.
func (s *WorkOrderService) Update(ctx context.Context, id string, p Payload) (*models.WorkOrder, error) {
	if _, err := s.store.FindByID(ctx, id); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	for _, key := range workOrderUpdatable {
		if !p.Has(key) {
			continue
		}
		var (
			v   any
			err error
		)
		switch key {
		case "tecnico_asignado":
			v, err = p.NullableString(key)
		case "horas_trabajadas":
			v, err = p.Float(key)
		case "fecha_inicio", "fecha_finalizacion":
			v, err = p.Time(key)
		case "telefonos_contacto":
			var phones []string
			phones, err = p.StringList(key)
			v = datatypes.JSONSlice[string](phones)
		default:
			v, err = p.String(key)
		}
		if err != nil {
			return nil, err
		}
		fields[key] = v
	}
	if len(fields) > 0 {
		fields["fecha_actualizacion"] = s.now()
		if err := s.store.Update(ctx, id, fields); err != nil {
			return nil, err
		}
	}
	return s.store.FindByID(ctx, id)
}

// AssignTechnician sets the technician and stamps the assignment.
func (s *WorkOrderService) AssignTechnician(ctx context.Context, id, technician string) (*models.WorkOrder, error) {
	v := make(validation.Violations)
	validation.Required("tecnico_asignado", technician, v)
	if !v.Empty() {
		return nil, invalid("technician_required")
	}
	if _, err := s.store.FindByID(ctx, id); err != nil {
		return nil, err
	}
	now := s.now()
	err := s.store.Update(ctx, id, map[string]any{
		"tecnico_asignado":    technician,
		"fecha_asignacion":    now,
		"fecha_actualizacion": now,
	})
	if err != nil {
		return nil, err
	}
	return s.store.FindByID(ctx, id)
}

// SetStatus moves the order to status. The start time is recorded only on
// the first move to en_progreso; the completion time on every move to
// completada.
func (s *WorkOrderService) SetStatus(ctx context.Context, id, status string) (*models.WorkOrder, error) {
	v := make(validation.Violations)
	validation.Required("estado", status, v)
	validation.OneOf("estado", status, models.WorkOrderStatuses(), v)
	if !v.Empty() {
		return nil, invalid("status_invalid")
	}
	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	fields := map[string]any{
		"estado":              status,
		"fecha_actualizacion": now,
	}
	switch models.WorkOrderStatus(status) {
	case models.WorkOrderStatusInProgress:
		if current.StartedAt == nil {
			fields["fecha_inicio"] = now
		}
	case models.WorkOrderStatusCompleted:
		fields["fecha_finalizacion"] = now
	}
	if err := s.store.Update(ctx, id, fields); err != nil {
		return nil, err
	}
	s.metrics.StatusChanged(status)
	return s.store.FindByID(ctx, id)
}

// AddTask appends a task with a fresh id. status defaults to pendiente.
func (s *WorkOrderService) AddTask(ctx context.Context, id, description, status string) (*models.WorkOrder, error) {
	v := make(validation.Violations)
	validation.Required("descripcion", description, v)
	if !v.Empty() {
		return nil, invalid("description_required")
	}
	if _, err := s.store.FindByID(ctx, id); err != nil {
		return nil, err
	}
	if status == "" {
		status = string(models.WorkOrderStatusPending)
	}
	task := &models.Task{
		Description: description,
		Status:      status,
		CreatedAt:   s.now(),
		Done:        false,
	}
	if err := s.store.AppendTask(ctx, id, task); err != nil {
		return nil, err
	}
	s.metrics.TaskAppended()
	return s.store.FindByID(ctx, id)
}

func (s *WorkOrderService) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// WorkOrderSummary counts work orders per status.
type WorkOrderSummary struct {
	Total         int64            `json:"total_ordenes"`
	Pending       int64            `json:"pendientes"`
	InProgress    int64            `json:"en_progreso"`
	Completed     int64            `json:"completadas"`
	Cancelled     int64            `json:"canceladas"`
	ByStatus      map[string]int64 `json:"por_estado"`
	TopTechnician string           `json:"tecnico_top"`
}

// Summary reports counts over every work order. Statuses outside the enum,
// which only the generic update can write, appear in ByStatus alone.
func (s *WorkOrderService) Summary(ctx context.Context) (*WorkOrderSummary, error) {
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	sum := &WorkOrderSummary{ByStatus: map[string]int64{}, TopTechnician: "N/A"}
	for _, c := range counts {
		sum.Total += c.Count
		sum.ByStatus[c.Status] = c.Count
		switch models.WorkOrderStatus(c.Status) {
		case models.WorkOrderStatusPending:
			sum.Pending = c.Count
		case models.WorkOrderStatusInProgress:
			sum.InProgress = c.Count
		case models.WorkOrderStatusCompleted:
			sum.Completed = c.Count
		case models.WorkOrderStatusCancelled:
			sum.Cancelled = c.Count
		}
	}

	top, err := s.store.TopTechnician(ctx)
	if err != nil {
		return nil, err
	}
	if top != nil {
		sum.TopTechnician = top.Technician
		if sum.TopTechnician == "" {
			sum.TopTechnician = "Sin asignar"
		}
	}
	return sum, nil
}
