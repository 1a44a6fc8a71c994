package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderflow/backend/internal/domain/procurement"
	"github.com/orderflow/backend/internal/domain/shared"
)

// GormProductionTaskRepository implements ProductionTaskRepository using GORM
type GormProductionTaskRepository struct {
	db *gorm.DB
}

// NewGormProductionTaskRepository creates a new GormProductionTaskRepository
func NewGormProductionTaskRepository(db *gorm.DB) *GormProductionTaskRepository {
	return &GormProductionTaskRepository{db: db}
}

// FindByID finds a production task by its ID with items loaded
func (r *GormProductionTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*procurement.ProductionTask, error) {
	var task procurement.ProductionTask
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&task, "id = ?", id).Error; err != nil {
		return nil, translateDBError(err)
	}
	return &task, nil
}

// FindByIDForTenant finds a production task by ID within a tenant
func (r *GormProductionTaskRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.ProductionTask, error) {
	var task procurement.ProductionTask
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&task).Error; err != nil {
		return nil, translateDBError(err)
	}
	return &task, nil
}

// FindAllForTenant lists production tasks for a tenant with pagination
func (r *GormProductionTaskRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[procurement.ProductionTask], error) {
	query := r.db.WithContext(ctx).Model(&procurement.ProductionTask{}).Where("tenant_id = ?", tenantID)

	if filter.Search != "" {
		pattern := ilikePattern(filter.Search)
		query = query.Where("task_no ILIKE ? OR processor_name ILIKE ?", pattern, pattern)
	}
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "processor_id":
			query = query.Where("processor_id = ?", value)
		case "order_id":
			query = query.Where("order_id = ?", value)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, translateDBError(err)
	}

	orderBy := ValidateSortField(filter.OrderBy, ProductionTaskSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	page, pageSize := normalizePage(filter)
	var tasks []procurement.ProductionTask
	if err := query.
		Preload("Items").
		Order(orderBy + " " + orderDir).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&tasks).Error; err != nil {
		return nil, translateDBError(err)
	}

	result := shared.NewPaginated(tasks, total, page, pageSize)
	return &result, nil
}

// FindByOrderID lists the production tasks routed from one sales order
func (r *GormProductionTaskRepository) FindByOrderID(ctx context.Context, tenantID, orderID uuid.UUID) ([]procurement.ProductionTask, error) {
	var tasks []procurement.ProductionTask
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND order_id = ?", tenantID, orderID).
		Order("created_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, translateDBError(err)
	}
	return tasks, nil
}

// FindByStatus lists the tenant's production tasks in one lifecycle status
func (r *GormProductionTaskRepository) FindByStatus(ctx context.Context, tenantID uuid.UUID, status procurement.TaskStatus) ([]procurement.ProductionTask, error) {
	var tasks []procurement.ProductionTask
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND status = ?", tenantID, status).
		Order("created_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, translateDBError(err)
	}
	return tasks, nil
}

// Save creates or updates a production task together with its items
func (r *GormProductionTaskRepository) Save(ctx context.Context, task *procurement.ProductionTask) error {
	return translateDBError(r.db.WithContext(ctx).Save(task).Error)
}

// Ensure GormProductionTaskRepository implements ProductionTaskRepository
var _ procurement.ProductionTaskRepository = (*GormProductionTaskRepository)(nil)
