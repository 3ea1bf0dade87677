// internal/domain/cart/entity.go
package cart

import "time"

const (
	// SnapshotVersion is bumped whenever the persisted schema changes.
	// Older snapshots are discarded, not migrated.
	SnapshotVersion = 1

	// MaxLineQuantity guards against input errors
	MaxLineQuantity = 99
)

// Line is one product entry in a cart. UnitPriceSnapshot captures the
// price at add time; it is only refreshed by an explicit re-pricing
// reconciliation, never implicitly.
type Line struct {
	ProductID         string `json:"product_id"`
	Quantity          int    `json:"quantity"`
	UnitPriceSnapshot int64  `json:"unit_price_snapshot"`
}

// Cart is the mutable collection of lines a session intends to purchase.
// Lines keep insertion order (display order) and hold one entry per product.
type Cart struct {
	Lines []Line `json:"lines"`
}

// Find returns the index of the line for productID
func (c Cart) Find(productID string) (int, bool) {
	for i, line := range c.Lines {
		if line.ProductID == productID {
			return i, true
		}
	}
	return -1, false
}

// TotalQuantity returns the sum of all line quantities
func (c Cart) TotalQuantity() int {
	total := 0
	for _, line := range c.Lines {
		total += line.Quantity
	}
	return total
}

// Subtotal returns the cart value in minor units, priced at the snapshots
func (c Cart) Subtotal() int64 {
	var total int64
	for _, line := range c.Lines {
		total += line.UnitPriceSnapshot * int64(line.Quantity)
	}
	return total
}

// Clone returns a copy whose lines do not alias the receiver's
func (c Cart) Clone() Cart {
	lines := make([]Line, len(c.Lines))
	copy(lines, c.Lines)
	return Cart{Lines: lines}
}

// Snapshot is the persisted representation of a cart
type Snapshot struct {
	Version int    `json:"version"`
	Lines   []Line `json:"lines"`
}

// Unavailable signals that a cart line referenced a product the backend no
// longer has. It is surfaced to the UI per line, never raised as an error.
type Unavailable struct {
	ProductID string `json:"product_id"`
}

// CheckoutResult reports a completed order
type CheckoutResult struct {
	OrderID  string    `json:"order_id"`
	Amount   int64     `json:"amount"`
	Currency string    `json:"currency"`
	PlacedAt time.Time `json:"placed_at"`
}
