package procurement

import (
	"fmt"
	"time"

	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaskStatus represents the lifecycle status of a production task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusCancelled  TaskStatus = "CANCELLED"
)

// IsValid checks if the status is a valid TaskStatus
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo checks if the status can transition to the target status
func (s TaskStatus) CanTransitionTo(target TaskStatus) bool {
	switch s {
	case TaskStatusPending:
		return target == TaskStatusInProgress || target == TaskStatusCancelled
	case TaskStatusInProgress:
		return target == TaskStatusCompleted || target == TaskStatusCancelled
	}
	return false
}

// TaskItem represents a custom item assigned to a production task
type TaskItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	TaskID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TaskItem) TableName() string {
	return "production_task_items"
}

// ProductionTask routes custom-fabricated items to a processor. It follows
// the same grouping and numbering contract as the purchase order with a
// simpler lifecycle.
type ProductionTask struct {
	shared.TenantAggregateRoot
	TaskNo        string     `gorm:"type:varchar(50);not null;uniqueIndex:idx_task_tenant_number,priority:2"`
	OrderID       *uuid.UUID `gorm:"type:uuid;index"`
	ProcessorID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	ProcessorName string     `gorm:"type:varchar(200);not null"`
	Status        TaskStatus `gorm:"type:varchar(20);not null;default:'PENDING'"`
	Items         []TaskItem `gorm:"foreignKey:TaskID;references:ID"`
	CompletedAt   *time.Time
}

// TableName returns the table name for GORM
func (ProductionTask) TableName() string {
	return "production_tasks"
}

// NewProductionTask creates a new production task in PENDING status
func NewProductionTask(tenantID uuid.UUID, taskNo string, processorID uuid.UUID, processorName string, orderID *uuid.UUID) (*ProductionTask, error) {
	if taskNo == "" {
		return nil, shared.NewValidationError("INVALID_TASK_NUMBER", "Task number cannot be empty")
	}
	if processorID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_PROCESSOR", "Processor ID cannot be empty")
	}
	if processorName == "" {
		return nil, shared.NewValidationError("INVALID_PROCESSOR_NAME", "Processor name cannot be empty")
	}

	return &ProductionTask{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		TaskNo:              taskNo,
		OrderID:             orderID,
		ProcessorID:         processorID,
		ProcessorName:       processorName,
		Status:              TaskStatusPending,
		Items:               make([]TaskItem, 0),
	}, nil
}

// AddItem adds a custom item to the task. Only allowed in PENDING status.
func (t *ProductionTask) AddItem(productID uuid.UUID, productName string, quantity decimal.Decimal) (*TaskItem, error) {
	if t.Status != TaskStatusPending {
		return nil, shared.NewValidationError("INVALID_STATE", "Cannot add items to a started task")
	}
	if productID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if productName == "" {
		return nil, shared.NewValidationError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "Quantity must be positive")
	}

	item := TaskItem{
		ID:          uuid.New(),
		TaskID:      t.ID,
		ProductID:   productID,
		ProductName: productName,
		Quantity:    quantity,
		CreatedAt:   time.Now(),
	}
	t.Items = append(t.Items, item)
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	return &item, nil
}

// Start moves the task into progress
func (t *ProductionTask) Start() error {
	return t.transition(TaskStatusInProgress)
}

// Complete marks the task finished
func (t *ProductionTask) Complete() error {
	if err := t.transition(TaskStatusCompleted); err != nil {
		return err
	}
	now := time.Now()
	t.CompletedAt = &now
	return nil
}

// Cancel cancels the task
func (t *ProductionTask) Cancel() error {
	return t.transition(TaskStatusCancelled)
}

func (t *ProductionTask) transition(target TaskStatus) error {
	if !t.Status.CanTransitionTo(target) {
		return shared.NewValidationError("INVALID_TRANSITION",
			fmt.Sprintf("Task %s: illegal transition %s -> %s", t.ID, t.Status, target))
	}

	t.Status = target
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	return nil
}
