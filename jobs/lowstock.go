package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-erp/internal/audit"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

// LowStockLister returns products at or below their reorder point.
type LowStockLister interface {
	ListBelowReorderPoint(ctx context.Context, companyID int64) ([]ledger.Product, error)
}

// AuditAppender appends best-effort audit entries.
type AuditAppender interface {
	Append(ctx context.Context, entry audit.Entry)
}

// NewLowStockScanHandler builds the handler for TaskTypeLowStockScan. Each
// product under its reorder point yields one warning entry on the audit trail.
func NewLowStockScanHandler(lister LowStockLister, auditor AuditAppender, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload LowStockScanPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		products, err := lister.ListBelowReorderPoint(ctx, payload.CompanyID)
		if err != nil {
			return err
		}
		for _, product := range products {
			auditor.Append(ctx, audit.Entry{
				Action:   "ledger:lowstock",
				Entity:   "product",
				EntityID: strconv.FormatInt(product.ID, 10),
				NewState: map[string]any{
					"sku":            product.SKU,
					"stock_quantity": product.StockQuantity,
					"reorder_point":  product.ReorderPoint,
				},
				Severity:  audit.SeverityWarning,
				CompanyID: payload.CompanyID,
			})
		}
		logger.Info("low stock scan complete",
			slog.Int64("company_id", payload.CompanyID),
			slog.Int("flagged", len(products)))
		return nil
	}
}
