package routing

import (
	"fmt"
	"strings"

	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// TargetType is the kind of document a matched rule routes an item into
type TargetType string

const (
	// TargetPurchaseOrder routes the item into a purchase order
	TargetPurchaseOrder TargetType = "PURCHASE_ORDER"
	// TargetServiceTask routes the item into a production task
	TargetServiceTask TargetType = "SERVICE_TASK"
)

// IsValid checks whether the target type is a known value
func (t TargetType) IsValid() bool {
	return t == TargetPurchaseOrder || t == TargetServiceTask
}

// Operator is a condition comparison operator
type Operator string

const (
	// OperatorEq matches when the attribute equals the value exactly
	OperatorEq Operator = "eq"
	// OperatorNeq matches when the attribute differs from the value
	OperatorNeq Operator = "neq"
	// OperatorContains matches a case-insensitive substring
	OperatorContains Operator = "contains"
	// OperatorIn matches when the attribute equals any listed value
	OperatorIn Operator = "in"
)

// IsValid checks whether the operator is a known value
func (o Operator) IsValid() bool {
	switch o {
	case OperatorEq, OperatorNeq, OperatorContains, OperatorIn:
		return true
	}
	return false
}

// Condition is a single predicate over an item attribute. All conditions of a
// rule must hold for the rule to match.
type Condition struct {
	Field    string   `gorm:"type:varchar(100);not null" json:"field"`
	Operator Operator `gorm:"type:varchar(20);not null" json:"operator"`
	Value    string   `gorm:"type:varchar(500)" json:"value"`
	Values   []string `gorm:"serializer:json" json:"values,omitempty"`
}

// Validate checks structural validity of the condition
func (c Condition) Validate() error {
	if c.Field == "" {
		return shared.NewValidationError("INVALID_CONDITION_FIELD", "Condition field cannot be empty")
	}
	if !c.Operator.IsValid() {
		return shared.NewValidationError("INVALID_CONDITION_OPERATOR",
			fmt.Sprintf("Unknown condition operator: %s", c.Operator))
	}
	if c.Operator == OperatorIn && len(c.Values) == 0 {
		return shared.NewValidationError("INVALID_CONDITION_VALUES",
			"Operator 'in' requires at least one value")
	}
	return nil
}

// Holds evaluates the condition against an attribute value. A missing
// attribute only satisfies neq.
func (c Condition) Holds(value string, present bool) bool {
	switch c.Operator {
	case OperatorEq:
		return present && value == c.Value
	case OperatorNeq:
		return !present || value != c.Value
	case OperatorContains:
		return present && strings.Contains(strings.ToLower(value), strings.ToLower(c.Value))
	case OperatorIn:
		if !present {
			return false
		}
		for _, v := range c.Values {
			if value == v {
				return true
			}
		}
		return false
	}
	return false
}

// AttributeReader exposes named attributes of a routable item
type AttributeReader interface {
	Attribute(field string) (string, bool)
}

// SplitRule routes matching order items to a supplier and document type.
// Higher Priority wins when several rules match.
type SplitRule struct {
	shared.TenantAggregateRoot
	Name             string      `gorm:"type:varchar(200);not null"`
	Priority         int         `gorm:"not null;default:0;index"`
	Conditions       []Condition `gorm:"serializer:json"`
	TargetType       TargetType  `gorm:"type:varchar(30);not null"`
	TargetSupplierID *uuid.UUID  `gorm:"type:uuid"`
	IsActive         bool        `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (SplitRule) TableName() string {
	return "split_rules"
}

// NewSplitRule creates a routing rule after validating its conditions. The
// target supplier may be nil; matched items then fall back to their own
// default supplier during resolution.
func NewSplitRule(tenantID uuid.UUID, name string, priority int, conditions []Condition, targetType TargetType, targetSupplierID *uuid.UUID) (*SplitRule, error) {
	if name == "" {
		return nil, shared.NewValidationError("INVALID_RULE_NAME", "Rule name cannot be empty")
	}
	if !targetType.IsValid() {
		return nil, shared.NewValidationError("INVALID_TARGET_TYPE",
			fmt.Sprintf("Unknown target type: %s", targetType))
	}
	if len(conditions) == 0 {
		return nil, shared.NewValidationError("EMPTY_CONDITIONS", "Rule must have at least one condition")
	}
	for _, c := range conditions {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}

	return &SplitRule{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Priority:            priority,
		Conditions:          conditions,
		TargetType:          targetType,
		TargetSupplierID:    targetSupplierID,
		IsActive:            true,
	}, nil
}

// Matches reports whether every condition of the rule holds for the item
func (r *SplitRule) Matches(item AttributeReader) bool {
	for _, c := range r.Conditions {
		value, present := item.Attribute(c.Field)
		if !c.Holds(value, present) {
			return false
		}
	}
	return true
}

// Update replaces the mutable fields of the rule
func (r *SplitRule) Update(name string, priority int, conditions []Condition, targetType TargetType, targetSupplierID *uuid.UUID, isActive bool) error {
	if name == "" {
		return shared.NewValidationError("INVALID_RULE_NAME", "Rule name cannot be empty")
	}
	if !targetType.IsValid() {
		return shared.NewValidationError("INVALID_TARGET_TYPE",
			fmt.Sprintf("Unknown target type: %s", targetType))
	}
	if len(conditions) == 0 {
		return shared.NewValidationError("EMPTY_CONDITIONS", "Rule must have at least one condition")
	}
	for _, c := range conditions {
		if err := c.Validate(); err != nil {
			return err
		}
	}

	r.Name = name
	r.Priority = priority
	r.Conditions = conditions
	r.TargetType = targetType
	r.TargetSupplierID = targetSupplierID
	r.IsActive = isActive
	return nil
}
