package sales

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status tracks the fulfilment state of a sales transaction.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// PaymentStatus tracks the payment state of a sales transaction.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPartial  PaymentStatus = "partial"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// Order is a sales transaction. GrandTotal always equals
// Subtotal − TotalDiscount + TotalTax + ShippingCost.
type Order struct {
	ID              int64         `json:"id"`
	OrderNumber     string        `json:"order_number"`
	CustomerID      int64         `json:"customer_id"`
	SalesPersonID   int64         `json:"sales_person_id"`
	Subtotal        float64       `json:"subtotal"`
	TotalDiscount   float64       `json:"total_discount"`
	TotalTax        float64       `json:"total_tax"`
	ShippingCost    float64       `json:"shipping_cost"`
	GrandTotal      float64       `json:"grand_total"`
	Status          Status        `json:"status"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	ShippingAddress string        `json:"shipping_address,omitempty"`
	BillingAddress  string        `json:"billing_address,omitempty"`
	Notes           string        `json:"notes,omitempty"`
	CompanyID       int64         `json:"company_id"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	Lines           []Line        `json:"lines,omitempty"`
}

// Line is one priced order line.
type Line struct {
	ID         int64   `json:"id"`
	OrderID    int64   `json:"order_id"`
	ProductID  int64   `json:"product_id"`
	Quantity   float64 `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	Discount   float64 `json:"discount"`
	Tax        float64 `json:"tax"`
	TotalPrice float64 `json:"total_price"`
}

// Recalculate recomputes aggregate totals from the current lines. It must be
// called whenever lines change.
func (o *Order) Recalculate() {
	var subtotal, discount, tax float64
	for _, line := range o.Lines {
		subtotal += line.UnitPrice * line.Quantity
		discount += line.Discount
		tax += line.Tax
	}
	o.Subtotal = subtotal
	o.TotalDiscount = discount
	o.TotalTax = tax
	o.GrandTotal = subtotal - discount + tax + o.ShippingCost
}

// CreateOrderInput describes a requested sales order.
type CreateOrderInput struct {
	CompanyID       int64            `json:"company_id" validate:"required,gt=0"`
	CustomerID      int64            `json:"customer_id" validate:"required,gt=0"`
	SalesPersonID   int64            `json:"sales_person_id" validate:"required,gt=0"`
	ShippingCost    float64          `json:"shipping_cost" validate:"gte=0"`
	ShippingAddress string           `json:"shipping_address,omitempty"`
	BillingAddress  string           `json:"billing_address,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	Items           []OrderItemInput `json:"items" validate:"required,min=1,dive"`
}

// OrderItemInput is one requested line. UnitPrice nil means "use the
// product's default price".
type OrderItemInput struct {
	ProductID int64    `json:"product_id" validate:"required,gt=0"`
	Quantity  float64  `json:"quantity" validate:"required,gt=0"`
	UnitPrice *float64 `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
	Discount  float64  `json:"discount" validate:"gte=0"`
	Tax       float64  `json:"tax" validate:"gte=0"`
}

// ListOrdersFilter scopes order listings.
type ListOrdersFilter struct {
	CompanyID  int64
	CustomerID *int64
	Status     *Status
	DateFrom   *time.Time
	DateTo     *time.Time
	Limit      int
	Offset     int
}

// NewOrderNumber generates a unique order number from a time token plus a
// random suffix. A unique index on orders backs this up.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(uuid.NewString()[:8])
	return fmt.Sprintf("SO-%s-%s", now.UTC().Format("20060102-150405"), suffix)
}
