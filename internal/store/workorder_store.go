package store

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/diewo77/go-fieldops/internal/models"
)

// WorkOrderFilter narrows a listing. Empty fields are ignored.
type WorkOrderFilter struct {
	Status     string
	ClientID   string
	Technician string
}

func (f WorkOrderFilter) apply(db *gorm.DB) *gorm.DB {
	if f.Status != "" {
		db = db.Where("estado = ?", f.Status)
	}
	if f.ClientID != "" {
		db = db.Where("cliente_id = ?", f.ClientID)
	}
	if f.Technician != "" {
		db = db.Where("tecnico_asignado = ?", f.Technician)
	}
	return db
}

type WorkOrderStore struct {
	db *gorm.DB
}

func NewWorkOrderStore(db *gorm.DB) *WorkOrderStore {
	return &WorkOrderStore{db: db}
}

// FindByID loads a work order with its tasks in append order.
func (s *WorkOrderStore) FindByID(ctx context.Context, id string) (*models.WorkOrder, error) {
	var wo models.WorkOrder
	err := s.db.WithContext(ctx).
		Preload("Tasks", orderBySeq).
		First(&wo, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "find work order")
	}
	return &wo, nil
}

func (s *WorkOrderStore) List(ctx context.Context, f WorkOrderFilter, page, perPage int) ([]models.WorkOrder, int64, error) {
	db := s.db.WithContext(ctx)

	var total int64
	if err := f.apply(db.Model(&models.WorkOrder{})).Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count work orders")
	}

	orders := []models.WorkOrder{}
	skip, ok := offset(page, perPage)
	if !ok {
		return orders, total, nil
	}
	err := f.apply(db.Model(&models.WorkOrder{})).
		Preload("Tasks", orderBySeq).
		Order("fecha_creacion").Order("id").
		Offset(skip).Limit(perPage).
		Find(&orders).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "list work orders")
	}
	return orders, total, nil
}

func (s *WorkOrderStore) Insert(ctx context.Context, wo *models.WorkOrder) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(wo).Error
	})
	return errors.Wrap(err, "insert work order")
}

// Update sets the given columns in a single statement.
func (s *WorkOrderStore) Update(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := s.db.WithContext(ctx).Model(&models.WorkOrder{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return errors.Wrap(res.Error, "update work order")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendTask inserts one task row. Concurrent appends never overwrite each
// other since no read of the existing list is involved.
func (s *WorkOrderStore) AppendTask(ctx context.Context, workOrderID string, task *models.Task) error {
	task.WorkOrderID = workOrderID
	if err := s.db.WithContext(ctx).Create(task).Error; err != nil {
		return errors.Wrap(err, "append task")
	}
	return nil
}

func (s *WorkOrderStore) Delete(ctx context.Context, id string) error {
	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("work_order_id = ?", id).Delete(&models.Task{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.WorkOrder{})
		deleted = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return errors.Wrap(err, "delete work order")
	}
	if deleted == 0 {
		return ErrNotFound
	}
	return nil
}

// StatusCount is the number of work orders in one status.
type StatusCount struct {
	Status string `gorm:"column:estado"`
	Count  int64  `gorm:"column:total"`
}

// TechnicianCount is the number of work orders assigned to one technician.
// Technician is empty for unassigned orders.
type TechnicianCount struct {
	Technician string `gorm:"column:tecnico"`
	Count      int64  `gorm:"column:total"`
}

// CountByStatus groups all work orders by status.
func (s *WorkOrderStore) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	err := s.db.WithContext(ctx).Model(&models.WorkOrder{}).
		Select("estado, COUNT(*) AS total").
		Group("estado").
		Order("estado").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "count work orders by status")
	}
	return rows, nil
}

// TopTechnician returns the technician with the most work orders.
func (s *WorkOrderStore) TopTechnician(ctx context.Context) (*TechnicianCount, error) {
	var rows []TechnicianCount
	err := s.db.WithContext(ctx).Model(&models.WorkOrder{}).
		Select("COALESCE(tecnico_asignado, '') AS tecnico, COUNT(*) AS total").
		Group("COALESCE(tecnico_asignado, '')").
		Order("total DESC").Order("tecnico").
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "top technician")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
