// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics provides business metrics for the supply chain system.
// It tracks routing runs, document creation, goods receipts, and stock health.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	routingRunTotal      *Counter
	routingItemsTotal    *Counter
	documentCreatedTotal *Counter
	receiptPostedTotal   *Counter
	receiptLinesTotal    *Counter
	ledgerMutationTotal  *Counter

	// Gauge metrics (point-in-time values)
	lowStockCount *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data provider for periodic collection
	stockProvider StockMetricsProvider
}

// StockMetricsProvider provides stock data for periodic metrics collection.
// This interface allows the telemetry layer to query stock state without
// depending on the inventory domain directly.
type StockMetricsProvider interface {
	// GetLowStockCount returns the count of warehouse/product pairs at or
	// below their minimum threshold for a tenant
	GetLowStockCount(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	StockProvider   StockMetricsProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:         cfg.Meter,
		logger:        logger,
		stopChan:      make(chan struct{}),
		stockProvider: cfg.StockProvider,
	}

	var err error

	// Routing metrics
	bm.routingRunTotal, err = NewCounter(
		cfg.Meter,
		"scm_routing_run_total",
		"Total number of split routing runs",
		"{runs}",
	)
	if err != nil {
		return nil, err
	}

	bm.routingItemsTotal, err = NewCounter(
		cfg.Meter,
		"scm_routing_items_total",
		"Total order items routed, labeled by outcome",
		"{items}",
	)
	if err != nil {
		return nil, err
	}

	// Document metrics
	bm.documentCreatedTotal, err = NewCounter(
		cfg.Meter,
		"scm_document_created_total",
		"Total procurement documents created",
		"{documents}",
	)
	if err != nil {
		return nil, err
	}

	// Receiving metrics
	bm.receiptPostedTotal, err = NewCounter(
		cfg.Meter,
		"scm_receipt_posted_total",
		"Total goods receipts posted",
		"{receipts}",
	)
	if err != nil {
		return nil, err
	}

	bm.receiptLinesTotal, err = NewCounter(
		cfg.Meter,
		"scm_receipt_lines_total",
		"Total goods receipt lines posted",
		"{lines}",
	)
	if err != nil {
		return nil, err
	}

	// Ledger metrics
	bm.ledgerMutationTotal, err = NewCounter(
		cfg.Meter,
		"scm_ledger_mutation_total",
		"Total stock ledger mutations, labeled by operation",
		"{mutations}",
	)
	if err != nil {
		return nil, err
	}

	// Stock gauge metrics
	bm.lowStockCount, err = NewGauge(
		cfg.Meter,
		"scm_low_stock_count",
		"Number of warehouse/product pairs at or below their threshold",
		"{pairs}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// =============================================================================
// Routing Metrics
// =============================================================================

// RecordRoutingRun records one completed split routing run with its outcome
// counts.
func (bm *BusinessMetrics) RecordRoutingRun(ctx context.Context, tenantID uuid.UUID, poCount, woCount, unmatchedCount int64) {
	bm.routingRunTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
	)
	bm.routingItemsTotal.Add(ctx, poCount,
		AttrTenantID.String(tenantID.String()),
		AttrRoutingOutcome.String("purchase_order"),
	)
	bm.routingItemsTotal.Add(ctx, woCount,
		AttrTenantID.String(tenantID.String()),
		AttrRoutingOutcome.String("production_task"),
	)
	bm.routingItemsTotal.Add(ctx, unmatchedCount,
		AttrTenantID.String(tenantID.String()),
		AttrRoutingOutcome.String("unmatched"),
	)
}

// =============================================================================
// Document Metrics
// =============================================================================

// DocType labels the kind of procurement document for metrics.
type DocType string

const (
	DocTypePurchaseOrder  DocType = "purchase_order"
	DocTypeProductionTask DocType = "production_task"
)

// RecordDocumentCreated records the creation of one procurement document.
func (bm *BusinessMetrics) RecordDocumentCreated(ctx context.Context, tenantID uuid.UUID, docType DocType) {
	bm.documentCreatedTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrDocType.String(string(docType)),
	)
}

// =============================================================================
// Receiving Metrics
// =============================================================================

// RecordReceiptPosted records one posted goods receipt and its line count.
func (bm *BusinessMetrics) RecordReceiptPosted(ctx context.Context, tenantID uuid.UUID, lines int64) {
	bm.receiptPostedTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
	)
	bm.receiptLinesTotal.Add(ctx, lines,
		AttrTenantID.String(tenantID.String()),
	)
}

// =============================================================================
// Ledger Metrics
// =============================================================================

// LedgerOp labels the kind of ledger mutation for metrics.
type LedgerOp string

const (
	LedgerOpAdjust   LedgerOp = "adjust"
	LedgerOpTransfer LedgerOp = "transfer"
)

// RecordLedgerMutation records one committed ledger mutation.
func (bm *BusinessMetrics) RecordLedgerMutation(ctx context.Context, tenantID uuid.UUID, op LedgerOp) {
	bm.ledgerMutationTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrLedgerOp.String(string(op)),
	)
}

// =============================================================================
// Stock Metrics
// =============================================================================

// RecordLowStockCount records the number of pairs at or below threshold.
// This is a gauge metric that should be updated periodically.
func (bm *BusinessMetrics) RecordLowStockCount(ctx context.Context, tenantID uuid.UUID, count int64) {
	bm.lowStockCount.Record(ctx, count,
		AttrTenantID.String(tenantID.String()),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// TenantProvider provides tenant IDs for periodic metrics collection.
type TenantProvider interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects stock metrics every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go bm.runPeriodicCollection(ctx, tenantProvider, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	bm.collectStockMetrics(ctx, tenantProvider)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collectStockMetrics(ctx, tenantProvider)
		}
	}
}

// collectStockMetrics collects stock gauge metrics for all tenants.
func (bm *BusinessMetrics) collectStockMetrics(ctx context.Context, tenantProvider TenantProvider) {
	if bm.stockProvider == nil {
		bm.logger.Debug("No stock provider configured, skipping stock metrics collection")
		return
	}

	tenantIDs, err := tenantProvider.GetActiveTenantIDs(ctx)
	if err != nil {
		bm.logger.Error("Failed to get tenant IDs for metrics collection", zap.Error(err))
		return
	}

	for _, tenantID := range tenantIDs {
		lowStockCount, err := bm.stockProvider.GetLowStockCount(ctx, tenantID)
		if err != nil {
			bm.logger.Warn("Failed to get low stock count for tenant",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
			continue
		}
		bm.RecordLowStockCount(ctx, tenantID, lowStockCount)
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// =============================================================================
// Attribute Key Constants
// =============================================================================

// Business metrics attribute keys not already defined in metrics.go
var (
	AttrRoutingOutcome = attribute.Key("routing_outcome")
	AttrDocType        = attribute.Key("doc_type")
	AttrLedgerOp       = attribute.Key("ledger_op")
)
