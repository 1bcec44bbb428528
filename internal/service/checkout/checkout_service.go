// Package checkout turns carts into orders: pricing the cart, creating the
// payment intent, and handling refunds and shipment booking.
package checkout

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/model"
	"storefront/internal/monitor"
	"storefront/internal/payment"
	"storefront/internal/pricing"
	"storefront/internal/repository"
	"storefront/internal/shipping"
	"storefront/pkg/log"
	"storefront/pkg/snowflake"
	"storefront/pkg/utils"
)

// CartLine is one product and quantity in a cart.
type CartLine struct {
	ProductID uint64 `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// QuotedLine is a cart line with resolved pricing.
type QuotedLine struct {
	ProductID       uint64  `json:"product_id"`
	Name            string  `json:"name"`
	Quantity        int     `json:"quantity"`
	UnitPrice       int64   `json:"unit_price"`
	FinalPrice      int64   `json:"final_price"`
	DiscountPercent float64 `json:"discount_percentage"`
	Amount          int64   `json:"amount"`
}

// Quote is a priced cart.
type Quote struct {
	Lines          []QuotedLine `json:"lines"`
	TotalAmount    int64        `json:"total_amount"`
	DiscountAmount int64        `json:"discount_amount"`
	PaymentAmount  int64        `json:"payment_amount"`
}

// CheckoutResult is a created order with its payment handle.
type CheckoutResult struct {
	OrderNo      string `json:"order_no"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
}

// CheckoutService checkout service interface
type CheckoutService interface {
	// QuoteCart prices the cart with current discounts.
	QuoteCart(ctx context.Context, lines []CartLine) (*Quote, error)

	// CreateOrder persists an order for the cart and opens a payment
	// intent with the provider.
	CreateOrder(ctx context.Context, userID uint64, lines []CartLine) (*CheckoutResult, error)

	// ConfirmPayment marks the order paid after the provider confirms.
	ConfirmPayment(ctx context.Context, orderNo string) error

	// ListOrders pages a user's orders, newest first.
	ListOrders(ctx context.Context, userID uint64, page, pageSize int) ([]*model.Order, int64, error)

	// GetOrder returns one order. Non-admin callers only see their own;
	// someone else's order number reads as not found.
	GetOrder(ctx context.Context, userID uint64, orderNo string, isAdmin bool) (*model.Order, error)

	// RefundOrder refunds a paid order.
	RefundOrder(ctx context.Context, orderNo, reason string) error

	// BookShipment books a shipment for a paid order and stores the
	// tracking number.
	BookShipment(ctx context.Context, orderNo string, to shipping.Address, weightKg float64) (*shipping.Shipment, error)
}

// checkoutService checkout service implementation
type checkoutService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	payments    payment.Client
	shipper     shipping.Client
	idGen       *snowflake.IDGenerator
	warehouse   shipping.Address
	metrics     *monitor.MetricsCollector
}

// NewCheckoutService creates a checkout service
func NewCheckoutService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	payments payment.Client,
	shipper shipping.Client,
	idGen *snowflake.IDGenerator,
	warehouse shipping.Address,
	metrics *monitor.MetricsCollector,
) CheckoutService {
	return &checkoutService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		payments:    payments,
		shipper:     shipper,
		idGen:       idGen,
		warehouse:   warehouse,
		metrics:     metrics,
	}
}

// QuoteCart prices the cart with current discounts
func (s *checkoutService) QuoteCart(ctx context.Context, lines []CartLine) (*Quote, error) {
	if len(lines) == 0 {
		return nil, utils.NewError(utils.CodeInvalidParam, "cart is empty")
	}

	now := time.Now()
	quote := &Quote{Lines: make([]QuotedLine, 0, len(lines))}

	for _, line := range lines {
		product, err := s.productRepo.GetByID(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		if !product.IsActive() {
			return nil, utils.NewError(utils.CodeInvalidParam, fmt.Sprintf("product %d is not available", line.ProductID))
		}

		priced := pricing.PriceProduct(product, product.Category, now)
		amount := priced.FinalPrice * int64(line.Quantity)

		quote.Lines = append(quote.Lines, QuotedLine{
			ProductID:       product.ID,
			Name:            product.Name,
			Quantity:        line.Quantity,
			UnitPrice:       product.Price,
			FinalPrice:      priced.FinalPrice,
			DiscountPercent: priced.EffectivePct,
			Amount:          amount,
		})

		quote.TotalAmount += product.Price * int64(line.Quantity)
		quote.PaymentAmount += amount
	}

	quote.DiscountAmount = quote.TotalAmount - quote.PaymentAmount
	return quote, nil
}

// CreateOrder persists an order and opens a payment intent
func (s *checkoutService) CreateOrder(ctx context.Context, userID uint64, lines []CartLine) (*CheckoutResult, error) {
	quote, err := s.QuoteCart(ctx, lines)
	if err != nil {
		return nil, err
	}

	orderNo := fmt.Sprintf("SO%d", s.idGen.NextID())

	order := &model.Order{
		OrderNo:        orderNo,
		UserID:         userID,
		TotalAmount:    quote.TotalAmount,
		DiscountAmount: quote.DiscountAmount,
		PaymentAmount:  quote.PaymentAmount,
		Status:         model.OrderStatusPending,
		Items:          make([]model.OrderItem, 0, len(quote.Lines)),
	}
	for _, line := range quote.Lines {
		order.Items = append(order.Items, model.OrderItem{
			ProductID:       line.ProductID,
			ProductName:     line.Name,
			Quantity:        line.Quantity,
			UnitPrice:       line.UnitPrice,
			FinalPrice:      line.FinalPrice,
			DiscountPercent: line.DiscountPercent,
			Amount:          line.Amount,
		})
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		if s.metrics != nil {
			s.metrics.CountOrderCreation("failed")
		}
		return nil, err
	}

	intent, err := s.payments.CreateIntent(ctx, quote.PaymentAmount, orderNo)
	if err != nil {
		// The order stays pending; the customer can retry payment.
		if s.metrics != nil {
			s.metrics.CountPayment("intent_failed")
		}
		return nil, utils.WrapError(err, utils.CodePaymentFailed, "payment failed")
	}

	if err := s.orderRepo.UpdatePayment(ctx, orderNo, intent.ID, model.OrderStatusPending); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.CountOrderCreation("success")
	}

	log.WithFields(map[string]interface{}{
		"order_no": orderNo,
		"user_id":  userID,
		"amount":   quote.PaymentAmount,
	}).Info("Order created")

	return &CheckoutResult{
		OrderNo:      orderNo,
		ClientSecret: intent.ClientSecret,
		Amount:       quote.PaymentAmount,
	}, nil
}

// ListOrders pages a user's orders, newest first
func (s *checkoutService) ListOrders(ctx context.Context, userID uint64, page, pageSize int) ([]*model.Order, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.orderRepo.ListByUser(ctx, userID, page, pageSize)
}

// GetOrder returns one order with ownership enforced
func (s *checkoutService) GetOrder(ctx context.Context, userID uint64, orderNo string, isAdmin bool) (*model.Order, error) {
	order, err := s.orderRepo.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if !isAdmin && order.UserID != userID {
		return nil, utils.ErrOrderNotFound
	}
	return order, nil
}

// ConfirmPayment marks the order paid
func (s *checkoutService) ConfirmPayment(ctx context.Context, orderNo string) error {
	order, err := s.orderRepo.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return err
	}
	if !order.IsPending() {
		return utils.NewError(utils.CodeInvalidParam, "order is not awaiting payment")
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderNo, model.OrderStatusPaid); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.CountPayment("success")
	}
	return nil
}

// RefundOrder refunds a paid order
func (s *checkoutService) RefundOrder(ctx context.Context, orderNo, reason string) error {
	order, err := s.orderRepo.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return err
	}
	if !order.CanRefund() {
		return utils.NewError(utils.CodeInvalidParam, "order cannot be refunded")
	}

	if order.PaymentIntent == nil {
		return utils.NewError(utils.CodeInvalidParam, "order has no payment to refund")
	}

	refund := &model.Refund{
		OrderID:   order.ID,
		PaymentID: *order.PaymentIntent,
		Amount:    order.PaymentAmount,
		Reason:    reason,
		Status:    model.RefundStatusRequested,
	}
	if err := s.orderRepo.CreateRefund(ctx, refund); err != nil {
		return err
	}

	result, err := s.payments.Refund(ctx, *order.PaymentIntent, order.PaymentAmount)
	if err != nil {
		if updErr := s.orderRepo.UpdateRefundStatus(ctx, refund.ID, model.RefundStatusFailed); updErr != nil {
			log.Warnf("Failed to mark refund %d failed: %v", refund.ID, updErr)
		}
		if s.metrics != nil {
			s.metrics.CountRefund("failed")
		}
		return utils.WrapError(err, utils.CodePaymentFailed, "refund failed")
	}

	if err := s.orderRepo.UpdateRefundStatus(ctx, refund.ID, model.RefundStatusCompleted); err != nil {
		return err
	}
	if err := s.orderRepo.UpdateStatus(ctx, orderNo, model.OrderStatusRefunded); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.CountRefund("success")
	}

	log.WithFields(map[string]interface{}{
		"order_no":  orderNo,
		"refund_id": result.ID,
		"amount":    order.PaymentAmount,
	}).Info("Order refunded")

	return nil
}

// BookShipment books a shipment for a paid order
func (s *checkoutService) BookShipment(ctx context.Context, orderNo string, to shipping.Address, weightKg float64) (*shipping.Shipment, error) {
	order, err := s.orderRepo.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if !order.IsPaid() {
		return nil, utils.NewError(utils.CodeInvalidParam, "order is not paid")
	}

	shipment, err := s.shipper.CreateShipment(ctx, orderNo, s.warehouse, to, weightKg)
	if err != nil {
		return nil, err
	}

	if err := s.orderRepo.UpdateShipment(ctx, orderNo, shipment.TrackingNumber, shipment.LabelURL); err != nil {
		return nil, err
	}
	if err := s.orderRepo.UpdateStatus(ctx, orderNo, model.OrderStatusShipped); err != nil {
		return nil, err
	}

	return shipment, nil
}
