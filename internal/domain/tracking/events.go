// internal/domain/tracking/events.go
package tracking

import "github.com/your-org/storefront-backend/internal/domain/catalog"

// EventKind names a tracked analytics event
type EventKind string

const (
	EventViewContent      EventKind = "ViewContent"
	EventAddToCart        EventKind = "AddToCart"
	EventInitiateCheckout EventKind = "InitiateCheckout"
	EventPurchase         EventKind = "Purchase"
)

// Params is the payload shape the external pixel accepts
type Params struct {
	ContentIDs  []string `json:"content_ids"`
	ContentName string   `json:"content_name"`
	ContentType string   `json:"content_type"`
	Value       float64  `json:"value"`
	Currency    string   `json:"currency"`
}

// Sink delivers a named event to the external pixel. A nil Sink means the
// pixel is unavailable (ad-blocker, consent not granted), which is a
// normal condition.
type Sink func(event string, params Params) error

// ProductParams builds the pixel payload for a single product
func ProductParams(p catalog.Product) Params {
	return Params{
		ContentIDs:  []string{p.ID},
		ContentName: p.Name,
		ContentType: "product",
		Value:       float64(p.Price) / 100,
		Currency:    p.Currency,
	}
}

// CartParams builds the pixel payload for a whole cart. value is the cart
// subtotal in minor units.
func CartParams(productIDs []string, value int64, currency string) Params {
	ids := make([]string, len(productIDs))
	copy(ids, productIDs)
	return Params{
		ContentIDs:  ids,
		ContentType: "product",
		Value:       float64(value) / 100,
		Currency:    currency,
	}
}
