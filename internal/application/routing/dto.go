package routing

import (
	"time"

	"github.com/orderflow/backend/internal/domain/routing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ConditionInput is one predicate of a rule create/update request
type ConditionInput struct {
	Field    string   `json:"field" binding:"required"`
	Operator string   `json:"operator" binding:"required,oneof=eq neq contains in"`
	Value    string   `json:"value"`
	Values   []string `json:"values"`
}

// CreateRuleInput is the request to create a routing rule
type CreateRuleInput struct {
	Name             string           `json:"name" binding:"required,max=200"`
	Priority         int              `json:"priority"`
	Conditions       []ConditionInput `json:"conditions" binding:"required,min=1,dive"`
	TargetType       string           `json:"target_type" binding:"required,oneof=PURCHASE_ORDER SERVICE_TASK"`
	TargetSupplierID *uuid.UUID       `json:"target_supplier_id"`
}

// UpdateRuleInput is the request to update a routing rule
type UpdateRuleInput struct {
	Name             string           `json:"name" binding:"required,max=200"`
	Priority         int              `json:"priority"`
	Conditions       []ConditionInput `json:"conditions" binding:"required,min=1,dive"`
	TargetType       string           `json:"target_type" binding:"required,oneof=PURCHASE_ORDER SERVICE_TASK"`
	TargetSupplierID *uuid.UUID       `json:"target_supplier_id"`
	IsActive         bool             `json:"is_active"`
}

// RuleDTO is the outward representation of a routing rule
type RuleDTO struct {
	ID               uuid.UUID        `json:"id"`
	Name             string           `json:"name"`
	Priority         int              `json:"priority"`
	Conditions       []ConditionInput `json:"conditions"`
	TargetType       string           `json:"target_type"`
	TargetSupplierID *uuid.UUID       `json:"target_supplier_id"`
	IsActive         bool             `json:"is_active"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// SplitSummary carries machine-readable counts of a routing run
type SplitSummary struct {
	TotalItems     int `json:"total_items"`
	FinishedCount  int `json:"finished_count"`
	CustomCount    int `json:"custom_count"`
	POCount        int `json:"po_count"`
	WOCount        int `json:"wo_count"`
	UnmatchedCount int `json:"unmatched_count"`
}

// SplitResult is the outcome of one routing run. Unmatched items are surfaced
// for manual assignment, never dropped.
type SplitResult struct {
	CreatedPOIDs     []uuid.UUID  `json:"created_po_ids"`
	CreatedTaskIDs   []uuid.UUID  `json:"created_task_ids"`
	UnmatchedItemIDs []uuid.UUID  `json:"unmatched_item_ids"`
	Summary          SplitSummary `json:"summary"`
}

// PendingItemType names one source feeding the pending purchase pool
type PendingItemType string

const (
	// PendingItemDraftPO is a purchase order still in DRAFT
	PendingItemDraftPO PendingItemType = "DRAFT_PO"
	// PendingItemPendingTask is a production task not yet started
	PendingItemPendingTask PendingItemType = "PENDING_WO"
	// PendingItemUnmatchedLine is an order line no document has claimed
	PendingItemUnmatchedLine PendingItemType = "UNMATCHED"
	// PendingItemAll selects every source
	PendingItemAll PendingItemType = "ALL"
)

// IsValid checks whether the item type is a known value
func (t PendingItemType) IsValid() bool {
	switch t {
	case PendingItemDraftPO, PendingItemPendingTask, PendingItemUnmatchedLine, PendingItemAll:
		return true
	}
	return false
}

// PendingPoolQuery filters the pending pool listing. The zero ItemType means
// ALL; zero Page/PageSize take the listing defaults.
type PendingPoolQuery struct {
	ItemType    PendingItemType
	ProductType string
	SupplierID  *uuid.UUID
	OrderID     *uuid.UUID
	Page        int
	PageSize    int
}

// PendingPoolItem is one entry of the pending pool: a draft purchase order, a
// pending production task, or an unmatched order line
type PendingPoolItem struct {
	ItemType     PendingItemType `json:"item_type"`
	ID           uuid.UUID       `json:"id"`
	DocumentNo   string          `json:"document_no,omitempty"`
	OrderID      *uuid.UUID      `json:"order_id,omitempty"`
	SupplierID   *uuid.UUID      `json:"supplier_id,omitempty"`
	SupplierName string          `json:"supplier_name,omitempty"`
	ProductName  string          `json:"product_name,omitempty"`
	Quantity     decimal.Decimal `json:"quantity"`
	Status       string          `json:"status,omitempty"`
}

// AssignLinesInput assigns unmatched order lines to one supplier. Lines are
// grouped by sales order; each group becomes its own draft purchase order.
type AssignLinesInput struct {
	LineIDs    []uuid.UUID `json:"line_ids" binding:"required,min=1"`
	SupplierID uuid.UUID   `json:"supplier_id" binding:"required"`
	POType     string      `json:"po_type" binding:"omitempty,oneof=FINISHED FABRIC"`
}

// AssignLinesResult reports the draft orders created by an assignment
type AssignLinesResult struct {
	CreatedPOIDs      []uuid.UUID `json:"created_po_ids"`
	AssignedLineCount int         `json:"assigned_line_count"`
}

// MergeLinesInput merges unmatched lines across sales orders into combined
// draft purchase orders, one per supplier. A given SupplierID overrides the
// lines' default suppliers.
type MergeLinesInput struct {
	LineIDs    []uuid.UUID `json:"line_ids" binding:"required,min=1"`
	SupplierID *uuid.UUID  `json:"supplier_id"`
}

// MergeLinesResult reports the combined draft orders created by a merge.
// Lines whose supplier is unknown or inactive are skipped, not failed.
type MergeLinesResult struct {
	CreatedPOIDs     []uuid.UUID `json:"created_po_ids"`
	MergedLineCount  int         `json:"merged_line_count"`
	SkippedLineCount int         `json:"skipped_line_count"`
}

// SubmitDraftsInput sends a batch of draft purchase orders into the
// confirmation flow
type SubmitDraftsInput struct {
	POIDs []uuid.UUID `json:"po_ids" binding:"required,min=1"`
}

// SubmitDraftsResult reports how many drafts were submitted and how many of
// the requested orders were skipped as unknown or already past DRAFT
type SubmitDraftsResult struct {
	SubmittedCount int `json:"submitted_count"`
	SkippedCount   int `json:"skipped_count"`
}

func conditionsFromInput(inputs []ConditionInput) []routing.Condition {
	conditions := make([]routing.Condition, 0, len(inputs))
	for _, in := range inputs {
		conditions = append(conditions, routing.Condition{
			Field:    in.Field,
			Operator: routing.Operator(in.Operator),
			Value:    in.Value,
			Values:   in.Values,
		})
	}
	return conditions
}

func toRuleDTO(rule *routing.SplitRule) *RuleDTO {
	conditions := make([]ConditionInput, 0, len(rule.Conditions))
	for _, c := range rule.Conditions {
		conditions = append(conditions, ConditionInput{
			Field:    c.Field,
			Operator: string(c.Operator),
			Value:    c.Value,
			Values:   c.Values,
		})
	}
	return &RuleDTO{
		ID:               rule.ID,
		Name:             rule.Name,
		Priority:         rule.Priority,
		Conditions:       conditions,
		TargetType:       string(rule.TargetType),
		TargetSupplierID: rule.TargetSupplierID,
		IsActive:         rule.IsActive,
		CreatedAt:        rule.CreatedAt,
		UpdatedAt:        rule.UpdatedAt,
	}
}
