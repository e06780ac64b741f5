package service

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/broker"
	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/redisclient"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CheckoutService places orders: stock validation, tax, provider checkout
// session, atomic decrement + insert. All-or-nothing — a single short line
// rejects the whole order with no writes.
type CheckoutService struct {
	store          *store.Store
	redis          *redisclient.Client
	payments       *payment.Client
	eventPublisher *broker.EventPublisher
	taxRateBps     int64
	logger         *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	store *store.Store,
	redis *redisclient.Client,
	payments *payment.Client,
	eventPublisher *broker.EventPublisher,
	taxRateBps int,
) *CheckoutService {
	return &CheckoutService{
		store:          store,
		redis:          redis,
		payments:       payments,
		eventPublisher: eventPublisher,
		taxRateBps:     int64(taxRateBps),
		logger:         util.GetLogger(),
	}
}

// CheckoutLine is one requested purchase line
type CheckoutLine struct {
	ProductID int64 `json:"productId" binding:"required"`
	VariantID int64 `json:"variantId" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// CheckoutRequest carries the order placement payload
type CheckoutRequest struct {
	Items []CheckoutLine `json:"items" binding:"required,min=1,dive"`
}

// CheckoutResponse returns the hosted payment page redirect
type CheckoutResponse struct {
	OrderID     int64  `json:"order_id"`
	OrderNumber int64  `json:"order_number"`
	Amount      int64  `json:"amount"`
	URL         string `json:"url"`
}

// PlaceOrder runs the full checkout flow for a user
func (s *CheckoutService) PlaceOrder(ctx context.Context, userID int64, req *CheckoutRequest) (*CheckoutResponse, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.PlaceOrder")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.PaymentCustomerID.Valid || user.PaymentCustomerID.String == "" {
		util.CheckoutRejectedTotal.WithLabelValues("no_payment_customer").Inc()
		return nil, models.ErrNoPaymentCustomer
	}

	lines := mergeLines(req.Items)

	variantIDs := make([]int64, 0, len(lines))
	for _, line := range lines {
		variantIDs = append(variantIDs, line.VariantID)
	}
	variants, titles, err := s.store.GetVariantsByIDs(ctx, variantIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load variants: %w", err)
	}

	if shorts := collectShortLines(lines, variants, titles); len(shorts) > 0 {
		util.CheckoutRejectedTotal.WithLabelValues("out_of_stock").Inc()
		return nil, &models.OutOfStockError{Lines: shorts}
	}

	items := make([]models.OrderItem, 0, len(lines))
	sessionItems := make([]payment.SessionLineItem, 0, len(lines))
	for _, line := range lines {
		v := variants[line.VariantID]
		items = append(items, models.OrderItem{
			ProductID: v.ProductID,
			VariantID: v.ID,
			Quantity:  line.Quantity,
			Price:     v.Price,
		})
		sessionItems = append(sessionItems, payment.SessionLineItem{
			Name:      fmt.Sprintf("%s (%s, %s)", titles[v.ID], v.Color, v.Size),
			UnitPrice: v.Price,
			Quantity:  line.Quantity,
		})
	}

	amount := s.applyTax(subtotal(items))

	session, err := s.payments.CreateCheckoutSession(ctx, user.PaymentCustomerID.String, sessionItems)
	if err != nil {
		util.CheckoutRejectedTotal.WithLabelValues("provider_error").Inc()
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	order := &models.Order{
		UserID:            userID,
		Amount:            amount,
		Status:            models.OrderStatusPending,
		CheckoutSessionID: session.ID,
	}
	if err := s.store.PlaceOrder(ctx, order, items); err != nil {
		if _, raced := err.(*models.OutOfStockError); raced {
			util.CheckoutRejectedTotal.WithLabelValues("out_of_stock").Inc()
			// The provider session is orphaned here; it expires unpaid on
			// the provider side. Nothing was written locally.
			return nil, err
		}
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	util.OrdersPlacedTotal.Inc()
	s.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("order_number", order.OrderNumber),
		zap.Int64("amount", order.Amount))

	eventItems := make([]models.OrderItemData, 0, len(items))
	for _, item := range items {
		eventItems = append(eventItems, models.OrderItemData{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	event := &models.OrderCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCreated,
			Timestamp: time.Now(),
		},
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      userID,
		Amount:      order.Amount,
		Items:       eventItems,
	}
	if err := s.eventPublisher.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}

	if err := s.redis.ClearCart(ctx, userID); err != nil {
		s.logger.Warn("Failed to clear cart after checkout",
			zap.Int64("user_id", userID), zap.Error(err))
	}

	return &CheckoutResponse{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Amount:      order.Amount,
		URL:         session.URL,
	}, nil
}

// mergeLines folds duplicate variant lines into one
func mergeLines(in []CheckoutLine) []CheckoutLine {
	index := make(map[int64]int, len(in))
	out := make([]CheckoutLine, 0, len(in))
	for _, line := range in {
		if i, ok := index[line.VariantID]; ok {
			out[i].Quantity += line.Quantity
			continue
		}
		index[line.VariantID] = len(out)
		out = append(out, line)
	}
	return out
}

// collectShortLines returns every unsatisfiable line. Unknown or
// soft-deleted variants count as zero stock.
func collectShortLines(lines []CheckoutLine, variants map[int64]models.ProductVariant, titles map[int64]string) []models.OutOfStockLine {
	var shorts []models.OutOfStockLine
	for _, line := range lines {
		v, ok := variants[line.VariantID]
		if !ok {
			shorts = append(shorts, models.OutOfStockLine{
				ProductID: line.ProductID,
				VariantID: line.VariantID,
				Requested: line.Quantity,
			})
			continue
		}
		if v.Stock < line.Quantity {
			shorts = append(shorts, models.OutOfStockLine{
				ProductID:      v.ProductID,
				VariantID:      v.ID,
				Title:          titles[v.ID],
				AvailableStock: v.Stock,
				Requested:      line.Quantity,
			})
		}
	}
	return shorts
}

func subtotal(items []models.OrderItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Price * int64(item.Quantity)
	}
	return total
}

// applyTax adds the fixed tax rate on top of the subtotal, rounding to
// whole cents.
func (s *CheckoutService) applyTax(subtotal int64) int64 {
	rate := decimal.NewFromInt(10000 + s.taxRateBps).Div(decimal.NewFromInt(10000))
	return decimal.NewFromInt(subtotal).Mul(rate).Round(0).IntPart()
}
