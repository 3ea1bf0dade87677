// internal/domain/checkout/service.go
package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/cart"
)

const ordersCollection = "orders"

// Records is the slice of the record store orders are written to
type Records interface {
	Put(ctx context.Context, collection, key string, record []byte) error
}

// Service creates order records from carts. It implements cart.OrderPlacer.
type Service struct {
	records  Records
	currency string
	log      *logrus.Logger
}

// NewService creates a new checkout service
func NewService(records Records, currency string, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		records:  records,
		currency: currency,
		log:      logger,
	}
}

// Order is the persisted order record
type Order struct {
	ID        string      `json:"id"`
	SessionID string      `json:"session_id"`
	Lines     []cart.Line `json:"lines"`
	Amount    int64       `json:"amount"`
	Currency  string      `json:"currency"`
	CreatedAt time.Time   `json:"created_at"`
}

// PlaceOrder writes an order record for the cart. Any failure leaves no
// partial state behind: the caller keeps its cart and may retry.
func (s *Service) PlaceOrder(ctx context.Context, sessionID string, c cart.Cart) (*cart.CheckoutResult, error) {
	if len(c.Lines) == 0 {
		return nil, fmt.Errorf("cannot place an order for an empty cart")
	}

	order := Order{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Lines:     c.Lines,
		Amount:    c.Subtotal(),
		Currency:  s.currency,
		CreatedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("failed to encode order: %w", err)
	}

	if err := s.records.Put(ctx, ordersCollection, order.ID, data); err != nil {
		return nil, fmt.Errorf("failed to store order: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"order_id":   order.ID,
		"session_id": sessionID,
		"amount":     order.Amount,
	}).Info("order placed")

	return &cart.CheckoutResult{
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		PlacedAt: order.CreatedAt,
	}, nil
}
