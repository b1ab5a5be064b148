package ledger

import (
	"fmt"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// MovementType classifies a stock movement and determines the arithmetic
// applied to the product's stock counter.
type MovementType string

const (
	// MovementIn represents inbound stock (receipt).
	MovementIn MovementType = "in"
	// MovementOut represents outbound stock (issue, sale).
	MovementOut MovementType = "out"
	// MovementTransfer represents stock leaving for another warehouse.
	MovementTransfer MovementType = "transfer"
	// MovementAdjustment sets the counter to an absolute target.
	MovementAdjustment MovementType = "adjustment"
	// MovementLoss represents shrinkage or damage write-off.
	MovementLoss MovementType = "loss"
	// MovementReturn represents customer returns coming back to stock.
	MovementReturn MovementType = "return"
)

// Product carries the stock-bearing fields of a product. StockQuantity is
// mutated exclusively through RecordMovement; it never goes below zero.
type Product struct {
	ID            int64     `json:"id"`
	SKU           string    `json:"sku"`
	StockQuantity float64   `json:"stock_quantity"`
	CostPrice     float64   `json:"cost_price"`
	UnitPrice     float64   `json:"unit_price"`
	ReorderPoint  float64   `json:"reorder_point"`
	CompanyID     int64     `json:"company_id"`
	UpdatedBy     int64     `json:"updated_by"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RelatedDocument links a movement to the business document that caused it.
type RelatedDocument struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// StockMovement is one immutable ledger entry. StockAfter is a pure function
// of StockBefore, Type and Quantity; rows are never updated or deleted.
type StockMovement struct {
	ID               int64             `json:"id"`
	ProductID        int64             `json:"product_id"`
	WarehouseFromID  *int64            `json:"warehouse_from_id,omitempty"`
	WarehouseToID    *int64            `json:"warehouse_to_id,omitempty"`
	Type             MovementType      `json:"type"`
	Quantity         float64           `json:"quantity"`
	UnitCost         float64           `json:"unit_cost"`
	TotalValue       float64           `json:"total_value"`
	StockBefore      float64           `json:"stock_before"`
	StockAfter       float64           `json:"stock_after"`
	Reason           string            `json:"reason"`
	ReferenceType    string            `json:"reference_type,omitempty"`
	ReferenceID      string            `json:"reference_id,omitempty"`
	RelatedDocuments []RelatedDocument `json:"related_documents,omitempty"`
	BatchNumber      string            `json:"batch_number,omitempty"`
	ExpiryDate       *time.Time        `json:"expiry_date,omitempty"`
	ProcessedBy      int64             `json:"processed_by"`
	ApprovedBy       *int64            `json:"approved_by,omitempty"`
	IsApproved       bool              `json:"is_approved"`
	CompanyID        int64             `json:"company_id"`
	OccurredAt       time.Time         `json:"occurred_at"`
}

// MovementInput describes a requested stock movement. Quantity is always a
// non-negative magnitude except for adjustments, where it is the absolute
// stock target.
type MovementInput struct {
	ProductID        int64             `json:"product_id"`
	Type             MovementType      `json:"type"`
	Quantity         float64           `json:"quantity"`
	Reason           string            `json:"reason"`
	ReferenceType    string            `json:"reference_type"`
	ReferenceID      string            `json:"reference_id"`
	UnitCost         *float64          `json:"unit_cost,omitempty"`
	BatchNumber      string            `json:"batch_number,omitempty"`
	ExpiryDate       *time.Time        `json:"expiry_date,omitempty"`
	WarehouseFromID  *int64            `json:"warehouse_from_id,omitempty"`
	WarehouseToID    *int64            `json:"warehouse_to_id,omitempty"`
	RelatedDocuments []RelatedDocument `json:"related_documents,omitempty"`
	ProcessedBy      int64             `json:"processed_by"`
	ApprovedBy       *int64            `json:"approved_by,omitempty"`
	CompanyID        int64             `json:"company_id"`
}

// MovementFilter scopes movement history reads.
type MovementFilter struct {
	ProductID int64
	CompanyID int64
	Type      MovementType
	From      time.Time
	To        time.Time
	Limit     int
}

var (
	// ErrProductNotFound indicates the movement referenced a missing product.
	ErrProductNotFound = fmt.Errorf("ledger: product: %w", shared.ErrNotFound)
	// ErrInvalidMovementType indicates an unsupported movement type.
	ErrInvalidMovementType = fmt.Errorf("ledger: movement type: %w", shared.ErrValidation)
	// ErrInvalidQuantity indicates a negative quantity magnitude.
	ErrInvalidQuantity = fmt.Errorf("ledger: quantity must be >= 0: %w", shared.ErrValidation)
)
