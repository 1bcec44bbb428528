package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"storefront/internal/model"
)

// OrderRepository order repository interface
type OrderRepository interface {
	// Create order together with its items in one transaction
	Create(ctx context.Context, order *model.Order) error

	// Get order by order number
	GetByOrderNo(ctx context.Context, orderNo string) (*model.Order, error)

	// Get order by ID
	GetByID(ctx context.Context, id uint64) (*model.Order, error)

	// Update order status
	UpdateStatus(ctx context.Context, orderNo string, status int) error

	// Update payment intent reference and amount
	UpdatePayment(ctx context.Context, orderNo, paymentIntent string, status int) error

	// Update tracking number and label after a shipment is booked
	UpdateShipment(ctx context.Context, orderNo, trackingNumber, labelURL string) error

	// List orders for a user
	ListByUser(ctx context.Context, userID uint64, page, pageSize int) ([]*model.Order, int64, error)

	// Record a refund row
	CreateRefund(ctx context.Context, refund *model.Refund) error

	// Update refund status
	UpdateRefundStatus(ctx context.Context, refundID uint64, status int) error
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates an order repository
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create creates an order with its items
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// GetByOrderNo gets an order by order number
func (r *orderRepository) GetByOrderNo(ctx context.Context, orderNo string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("order_no = ?", orderNo).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("order not found")
		}
		return nil, err
	}
	return &order, nil
}

// GetByID gets an order by ID
func (r *orderRepository) GetByID(ctx context.Context, id uint64) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("order not found")
		}
		return nil, err
	}
	return &order, nil
}

// UpdateStatus updates the order status
func (r *orderRepository) UpdateStatus(ctx context.Context, orderNo string, status int) error {
	result := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("order_no = ?", orderNo).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("order not found")
	}
	return nil
}

// UpdatePayment stores the payment intent reference and new status
func (r *orderRepository) UpdatePayment(ctx context.Context, orderNo, paymentIntent string, status int) error {
	result := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("order_no = ?", orderNo).
		Updates(map[string]interface{}{
			"payment_intent": paymentIntent,
			"status":         status,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("order not found")
	}
	return nil
}

// UpdateShipment stores the tracking number and label URL
func (r *orderRepository) UpdateShipment(ctx context.Context, orderNo, trackingNumber, labelURL string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("order_no = ?", orderNo).
		Updates(map[string]interface{}{
			"tracking_number": trackingNumber,
			"label_url":       labelURL,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("order not found")
	}
	return nil
}

// ListByUser lists a user's orders, newest first
func (r *orderRepository) ListByUser(ctx context.Context, userID uint64, page, pageSize int) ([]*model.Order, int64, error) {
	var orders []*model.Order
	var total int64

	offset := (page - 1) * pageSize

	db := r.db.WithContext(ctx).Model(&model.Order{}).Where("user_id = ?", userID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("Items").
		Offset(offset).
		Limit(pageSize).
		Order("created_at DESC").
		Find(&orders).Error

	return orders, total, err
}

// CreateRefund records a refund row
func (r *orderRepository) CreateRefund(ctx context.Context, refund *model.Refund) error {
	return r.db.WithContext(ctx).Create(refund).Error
}

// UpdateRefundStatus updates the refund status
func (r *orderRepository) UpdateRefundStatus(ctx context.Context, refundID uint64, status int) error {
	return r.db.WithContext(ctx).
		Model(&model.Refund{}).
		Where("id = ?", refundID).
		Update("status", status).Error
}
