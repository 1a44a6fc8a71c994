package routing

import (
	"testing"

	"github.com/orderflow/backend/internal/domain/ordering"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLine(attrs map[string]string) *ordering.OrderLine {
	line := &ordering.OrderLine{
		ID:          uuid.New(),
		SKU:         attrs["sku"],
		ProductName: attrs["productName"],
		Category:    attrs["category"],
		Attributes:  attrs,
	}
	if pt, ok := attrs["productType"]; ok {
		line.ProductType = ordering.ProductType(pt)
	}
	return line
}

func TestConditionHolds(t *testing.T) {
	tests := []struct {
		name      string
		condition Condition
		attrs     map[string]string
		expected  bool
	}{
		{
			name:      "eq match",
			condition: Condition{Field: "category", Operator: OperatorEq, Value: "Textiles"},
			attrs:     map[string]string{"category": "Textiles"},
			expected:  true,
		},
		{
			name:      "eq mismatch",
			condition: Condition{Field: "category", Operator: OperatorEq, Value: "Textiles"},
			attrs:     map[string]string{"category": "Hardware"},
			expected:  false,
		},
		{
			name:      "eq is case sensitive",
			condition: Condition{Field: "category", Operator: OperatorEq, Value: "Textiles"},
			attrs:     map[string]string{"category": "textiles"},
			expected:  false,
		},
		{
			name:      "eq missing attribute",
			condition: Condition{Field: "color", Operator: OperatorEq, Value: "red"},
			attrs:     map[string]string{},
			expected:  false,
		},
		{
			name:      "neq mismatch matches",
			condition: Condition{Field: "category", Operator: OperatorNeq, Value: "Textiles"},
			attrs:     map[string]string{"category": "Hardware"},
			expected:  true,
		},
		{
			name:      "neq equal value fails",
			condition: Condition{Field: "category", Operator: OperatorNeq, Value: "Textiles"},
			attrs:     map[string]string{"category": "Textiles"},
			expected:  false,
		},
		{
			name:      "neq missing attribute matches",
			condition: Condition{Field: "color", Operator: OperatorNeq, Value: "red"},
			attrs:     map[string]string{},
			expected:  true,
		},
		{
			name:      "contains case insensitive substring",
			condition: Condition{Field: "productName", Operator: OperatorContains, Value: "silk"},
			attrs:     map[string]string{"productName": "Premium SILK Scarf"},
			expected:  true,
		},
		{
			name:      "contains no substring",
			condition: Condition{Field: "productName", Operator: OperatorContains, Value: "wool"},
			attrs:     map[string]string{"productName": "Premium Silk Scarf"},
			expected:  false,
		},
		{
			name:      "in matches any listed value",
			condition: Condition{Field: "category", Operator: OperatorIn, Values: []string{"Textiles", "Fabrics"}},
			attrs:     map[string]string{"category": "Fabrics"},
			expected:  true,
		},
		{
			name:      "in no listed value",
			condition: Condition{Field: "category", Operator: OperatorIn, Values: []string{"Textiles", "Fabrics"}},
			attrs:     map[string]string{"category": "Hardware"},
			expected:  false,
		},
		{
			name:      "in missing attribute fails",
			condition: Condition{Field: "category", Operator: OperatorIn, Values: []string{"Textiles"}},
			attrs:     map[string]string{},
			expected:  false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			value, present := testLine(tc.attrs).Attribute(tc.condition.Field)
			assert.Equal(t, tc.expected, tc.condition.Holds(value, present))
		})
	}
}

func TestNewSplitRule(t *testing.T) {
	tenantID := uuid.New()
	supplierID := uuid.New()
	validConditions := []Condition{
		{Field: "category", Operator: OperatorEq, Value: "Textiles"},
	}

	t.Run("valid rule", func(t *testing.T) {
		rule, err := NewSplitRule(tenantID, "Textiles to ACME", 10, validConditions, TargetPurchaseOrder, &supplierID)
		require.NoError(t, err)
		assert.Equal(t, tenantID, rule.TenantID)
		assert.Equal(t, 10, rule.Priority)
		assert.True(t, rule.IsActive)
		assert.NotEqual(t, uuid.Nil, rule.ID)
	})

	t.Run("empty name rejected", func(t *testing.T) {
		_, err := NewSplitRule(tenantID, "", 10, validConditions, TargetPurchaseOrder, &supplierID)
		require.Error(t, err)
		assert.Equal(t, shared.KindValidation, shared.KindOf(err))
	})

	t.Run("unknown target type rejected", func(t *testing.T) {
		_, err := NewSplitRule(tenantID, "r", 10, validConditions, TargetType("WAREHOUSE"), &supplierID)
		require.Error(t, err)
		assert.Equal(t, shared.KindValidation, shared.KindOf(err))
	})

	t.Run("nil target supplier allowed", func(t *testing.T) {
		// Matched items then fall back to their own default supplier.
		rule, err := NewSplitRule(tenantID, "route by item default", 10, validConditions, TargetPurchaseOrder, nil)
		require.NoError(t, err)
		assert.Nil(t, rule.TargetSupplierID)
	})

	t.Run("empty conditions rejected", func(t *testing.T) {
		_, err := NewSplitRule(tenantID, "r", 10, nil, TargetPurchaseOrder, &supplierID)
		require.Error(t, err)
	})

	t.Run("in without values rejected", func(t *testing.T) {
		bad := []Condition{{Field: "category", Operator: OperatorIn}}
		_, err := NewSplitRule(tenantID, "r", 10, bad, TargetPurchaseOrder, &supplierID)
		require.Error(t, err)
	})

	t.Run("unknown operator rejected", func(t *testing.T) {
		bad := []Condition{{Field: "category", Operator: Operator("gt"), Value: "5"}}
		_, err := NewSplitRule(tenantID, "r", 10, bad, TargetPurchaseOrder, &supplierID)
		require.Error(t, err)
	})
}

func TestSplitRuleMatches(t *testing.T) {
	supplierID := uuid.New()

	t.Run("all conditions must hold", func(t *testing.T) {
		rule, err := NewSplitRule(uuid.New(), "silk textiles", 5, []Condition{
			{Field: "category", Operator: OperatorEq, Value: "Textiles"},
			{Field: "productName", Operator: OperatorContains, Value: "silk"},
		}, TargetPurchaseOrder, &supplierID)
		require.NoError(t, err)

		assert.True(t, rule.Matches(testLine(map[string]string{
			"category":    "Textiles",
			"productName": "Silk Scarf",
		})))
		assert.False(t, rule.Matches(testLine(map[string]string{
			"category":    "Textiles",
			"productName": "Wool Scarf",
		})))
		assert.False(t, rule.Matches(testLine(map[string]string{
			"category":    "Hardware",
			"productName": "Silk Scarf",
		})))
	})

	t.Run("built-in fields addressable", func(t *testing.T) {
		rule, err := NewSplitRule(uuid.New(), "custom goods", 1, []Condition{
			{Field: "productType", Operator: OperatorEq, Value: "CUSTOM"},
		}, TargetServiceTask, &supplierID)
		require.NoError(t, err)

		assert.True(t, rule.Matches(testLine(map[string]string{"productType": "CUSTOM"})))
		assert.False(t, rule.Matches(testLine(map[string]string{"productType": "FINISHED"})))
	})
}

func TestSplitRuleUpdate(t *testing.T) {
	supplierID := uuid.New()
	rule, err := NewSplitRule(uuid.New(), "original", 1, []Condition{
		{Field: "sku", Operator: OperatorEq, Value: "A-1"},
	}, TargetPurchaseOrder, &supplierID)
	require.NoError(t, err)

	newSupplier := uuid.New()
	err = rule.Update("renamed", 7, []Condition{
		{Field: "category", Operator: OperatorIn, Values: []string{"A", "B"}},
	}, TargetServiceTask, &newSupplier, false)
	require.NoError(t, err)
	assert.Equal(t, "renamed", rule.Name)
	assert.Equal(t, 7, rule.Priority)
	assert.Equal(t, TargetServiceTask, rule.TargetType)
	assert.False(t, rule.IsActive)

	err = rule.Update("cleared supplier", 7, rule.Conditions, TargetServiceTask, nil, true)
	require.NoError(t, err)
	assert.Nil(t, rule.TargetSupplierID)

	err = rule.Update("", 7, rule.Conditions, TargetServiceTask, &newSupplier, true)
	require.Error(t, err)
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))
}
