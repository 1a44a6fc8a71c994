package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderflow/backend/internal/domain/routing"
	"github.com/orderflow/backend/internal/domain/shared"
)

// GormSplitRuleRepository implements SplitRuleRepository using GORM
type GormSplitRuleRepository struct {
	db *gorm.DB
}

// NewGormSplitRuleRepository creates a new GormSplitRuleRepository
func NewGormSplitRuleRepository(db *gorm.DB) *GormSplitRuleRepository {
	return &GormSplitRuleRepository{db: db}
}

// FindByID finds a routing rule by its ID
func (r *GormSplitRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*routing.SplitRule, error) {
	var rule routing.SplitRule
	if err := r.db.WithContext(ctx).First(&rule, "id = ?", id).Error; err != nil {
		return nil, translateDBError(err)
	}
	return &rule, nil
}

// FindByIDForTenant finds a routing rule by ID within a tenant
func (r *GormSplitRuleRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*routing.SplitRule, error) {
	var rule routing.SplitRule
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&rule).Error; err != nil {
		return nil, translateDBError(err)
	}
	return &rule, nil
}

// FindActiveForTenant loads the active rules of a tenant in resolution
// order: priority descending, then creation time, then id.
func (r *GormSplitRuleRepository) FindActiveForTenant(ctx context.Context, tenantID uuid.UUID) ([]routing.SplitRule, error) {
	var rules []routing.SplitRule
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Order("priority DESC, created_at ASC, id ASC").
		Find(&rules).Error; err != nil {
		return nil, translateDBError(err)
	}
	return rules, nil
}

// FindAllForTenant lists routing rules for a tenant with pagination
func (r *GormSplitRuleRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[routing.SplitRule], error) {
	query := r.db.WithContext(ctx).Model(&routing.SplitRule{}).Where("tenant_id = ?", tenantID)

	if filter.Search != "" {
		query = query.Where("name ILIKE ?", ilikePattern(filter.Search))
	}
	for key, value := range filter.Filters {
		switch key {
		case "is_active":
			query = query.Where("is_active = ?", value)
		case "target_type":
			query = query.Where("target_type = ?", value)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, translateDBError(err)
	}

	orderBy := ValidateSortField(filter.OrderBy, SplitRuleSortFields, "priority")
	orderDir := ValidateSortOrder(filter.OrderDir)

	page, pageSize := normalizePage(filter)
	var rules []routing.SplitRule
	if err := query.
		Order(orderBy + " " + orderDir).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rules).Error; err != nil {
		return nil, translateDBError(err)
	}

	result := shared.NewPaginated(rules, total, page, pageSize)
	return &result, nil
}

// Save creates or updates a routing rule
func (r *GormSplitRuleRepository) Save(ctx context.Context, rule *routing.SplitRule) error {
	return translateDBError(r.db.WithContext(ctx).Save(rule).Error)
}

// Delete removes a routing rule within a tenant
func (r *GormSplitRuleRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Delete(&routing.SplitRule{}, "tenant_id = ? AND id = ?", tenantID, id)
	if result.Error != nil {
		return translateDBError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormSplitRuleRepository implements SplitRuleRepository
var _ routing.SplitRuleRepository = (*GormSplitRuleRepository)(nil)
