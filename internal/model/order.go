package model

import (
	"time"
)

// Order order model
type Order struct {
	ID             uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNo        string     `gorm:"type:varchar(32);uniqueIndex;not null" json:"order_no"`
	UserID         uint64     `gorm:"type:bigint unsigned;not null;index" json:"user_id"`
	TotalAmount    int64      `gorm:"type:bigint;not null" json:"total_amount"`       // cents, before discount
	DiscountAmount int64      `gorm:"type:bigint;default:0" json:"discount_amount"`   // cents
	PaymentAmount  int64      `gorm:"type:bigint;not null" json:"payment_amount"`     // cents
	Status         int8       `gorm:"type:tinyint;not null;default:1;index" json:"status"`
	PaymentIntent  *string    `gorm:"type:varchar(64)" json:"payment_intent,omitempty"`
	PaidAt         *time.Time `gorm:"type:timestamp" json:"paid_at,omitempty"`
	TrackingNumber *string    `gorm:"type:varchar(64)" json:"tracking_number,omitempty"`
	LabelURL       *string    `gorm:"type:varchar(255)" json:"label_url,omitempty"`
	CancelReason   *string    `gorm:"type:varchar(255)" json:"cancel_reason,omitempty"`
	CreatedAt      time.Time  `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP" json:"updated_at"`

	User  *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

// TableName set name
func (Order) TableName() string {
	return "orders"
}

// OrderItem order line item. UnitPrice and FinalPrice are both recorded so a
// later price or discount change cannot alter what the customer paid.
type OrderItem struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID         uint64    `gorm:"type:bigint unsigned;not null;index" json:"order_id"`
	ProductID       uint64    `gorm:"type:bigint unsigned;not null;index" json:"product_id"`
	ProductName     string    `gorm:"type:varchar(200);not null" json:"product_name"`
	UnitPrice       int64     `gorm:"type:bigint;not null" json:"unit_price"`  // cents, base
	FinalPrice      int64     `gorm:"type:bigint;not null" json:"final_price"` // cents, after discount
	DiscountPercent float64   `gorm:"type:decimal(5,2);not null;default:0" json:"discount_percentage"`
	Quantity        int       `gorm:"type:int;not null" json:"quantity"`
	Amount          int64     `gorm:"type:bigint;not null" json:"amount"` // cents
	CreatedAt       time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName set name
func (OrderItem) TableName() string {
	return "order_items"
}

// Refund refund record tied to a paid order
type Refund struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   uint64    `gorm:"type:bigint unsigned;not null;index" json:"order_id"`
	PaymentID string    `gorm:"type:varchar(64);not null" json:"payment_id"`
	Amount    int64     `gorm:"type:bigint;not null" json:"amount"` // cents
	Reason    string    `gorm:"type:varchar(255);not null" json:"reason"`
	Status    int8      `gorm:"type:tinyint;not null;default:1" json:"status"`
	CreatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName set name
func (Refund) TableName() string {
	return "refunds"
}

// OrderStatus order status const
const (
	OrderStatusPending   = 1
	OrderStatusPaid      = 2
	OrderStatusShipped   = 3
	OrderStatusCancelled = 4
	OrderStatusRefunded  = 5
	OrderStatusCompleted = 6
)

// RefundStatus refund status const
const (
	RefundStatusRequested = 1
	RefundStatusCompleted = 2
	RefundStatusFailed    = 3
)

// IsPending check order is pending
func (o *Order) IsPending() bool {
	return o.Status == OrderStatusPending
}

// IsPaid check order is paid
func (o *Order) IsPaid() bool {
	return o.Status == OrderStatusPaid
}

// CanRefund check order can refund
func (o *Order) CanRefund() bool {
	return o.Status == OrderStatusPaid || o.Status == OrderStatusShipped
}

// GetPaymentAmountUnits get payment amount in currency units
func (o *Order) GetPaymentAmountUnits() float64 {
	return float64(o.PaymentAmount) / 100
}
