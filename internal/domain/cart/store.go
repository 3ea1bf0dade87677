// internal/domain/cart/store.go
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/infrastructure/persistence"
)

var (
	// ErrInvalidQuantity rejects caller-contract violations synchronously
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrEmptyCart rejects checkout of an empty cart
	ErrEmptyCart = errors.New("cart is empty")
)

const (
	cartsCollection = "carts"
	mirrorTimeout   = 5 * time.Second
)

// ProductSource resolves the authoritative product record during
// reconciliation
type ProductSource interface {
	Product(ctx context.Context, id string) (*catalog.Product, error)
}

// Mirror receives best-effort copies of the cart snapshot for cross-device
// continuity. The record store client satisfies this.
type Mirror interface {
	Put(ctx context.Context, collection, key string, record []byte) error
}

// OrderPlacer hands a cart to the backend order-creation path
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, sessionID string, c Cart) (*CheckoutResult, error)
}

// Store owns all cart mutation logic for one session. Mutations are
// serialized by an internal mutex and write the full snapshot to
// client-local persistence before returning, so a later read in the same
// flow always observes the latest write. Network effects (the backend
// mirror, reconciliation) run outside the critical section and are applied
// back through it; a sequence number detects and discards results that
// arrive after a newer user mutation.
type Store struct {
	mu       sync.Mutex
	session  string
	cart     Cart
	seq      uint64
	persist  persistence.Store
	products ProductSource
	mirror   Mirror
	log      *logrus.Logger
}

// NewStore creates a cart store for the session. products and mirror are
// optional; persist is not.
func NewStore(sessionID string, persist persistence.Store, products ProductSource, mirror Mirror, logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Store{
		session:  sessionID,
		persist:  persist,
		products: products,
		mirror:   mirror,
		log:      logger,
	}
}

// Session returns the owning session identifier
func (s *Store) Session() string {
	return s.session
}

// Cart returns a copy of the current cart
func (s *Store) Cart() Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// Load hydrates the cart from client-local persistence. An absent, corrupt
// or version-mismatched snapshot yields an empty cart and a logged warning;
// Load never fails.
func (s *Store) Load() Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.persist.Read(s.key())
	if errors.Is(err, persistence.ErrNotFound) {
		s.cart = Cart{}
		return s.cart.Clone()
	} else if err != nil {
		s.log.WithError(err).WithField("session_id", s.session).
			Warn("failed to read cart snapshot, starting empty")
		s.cart = Cart{}
		return s.cart.Clone()
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.log.WithError(err).WithField("session_id", s.session).
			Warn("cart snapshot corrupt, resetting to empty cart")
		s.cart = Cart{}
		return s.cart.Clone()
	}

	if snap.Version != SnapshotVersion {
		s.log.WithFields(logrus.Fields{
			"session_id": s.session,
			"version":    snap.Version,
		}).Warn("cart snapshot version mismatch, resetting to empty cart")
		s.cart = Cart{}
		return s.cart.Clone()
	}

	// A snapshot is untrusted input; enforce the line invariants on the
	// way in
	lines := make([]Line, 0, len(snap.Lines))
	for _, line := range snap.Lines {
		if line.Quantity < 1 {
			continue
		}
		if line.Quantity > MaxLineQuantity {
			line.Quantity = MaxLineQuantity
		}
		if _, exists := (Cart{Lines: lines}).Find(line.ProductID); exists {
			continue
		}
		lines = append(lines, line)
	}
	s.cart = Cart{Lines: lines}

	return s.cart.Clone()
}

// AddItem adds quantity of product to the cart, merging into an existing
// line when present. The line price is snapshotted at call time and the
// total quantity clamped to MaxLineQuantity.
func (s *Store) AddItem(p catalog.Product, quantity int) (Cart, error) {
	if quantity < 1 {
		return s.Cart(), ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.cart.Find(p.ID); ok {
		newQuantity := s.cart.Lines[i].Quantity + quantity
		if newQuantity > MaxLineQuantity {
			newQuantity = MaxLineQuantity
		}
		s.cart.Lines[i].Quantity = newQuantity
	} else {
		if quantity > MaxLineQuantity {
			quantity = MaxLineQuantity
		}
		s.cart.Lines = append(s.cart.Lines, Line{
			ProductID:         p.ID,
			Quantity:          quantity,
			UnitPriceSnapshot: p.Price,
		})
	}

	s.seq++
	s.persistLocked()

	return s.cart.Clone(), nil
}

// RemoveItem removes the line for productID. Removing an absent line is a
// no-op, not an error.
func (s *Store) RemoveItem(productID string) Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.removeLocked(productID) {
		s.seq++
		s.persistLocked()
	}

	return s.cart.Clone()
}

// SetQuantity sets the quantity for productID. Zero or negative removes the
// line; a quantity beyond the sane maximum is rejected.
func (s *Store) SetQuantity(productID string, quantity int) (Cart, error) {
	if quantity > MaxLineQuantity {
		return s.Cart(), ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		if s.removeLocked(productID) {
			s.seq++
			s.persistLocked()
		}
		return s.cart.Clone(), nil
	}

	if i, ok := s.cart.Find(productID); ok {
		s.cart.Lines[i].Quantity = quantity
		s.seq++
		s.persistLocked()
	}

	return s.cart.Clone(), nil
}

// Clear empties the cart and its persisted snapshot
func (s *Store) Clear() Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLocked()
	return s.cart.Clone()
}

// Reconcile refreshes the cart against the authoritative product records.
// Lines whose product no longer exists are dropped and reported as
// Unavailable; snapshot prices are refreshed only when reprice is set.
// The operation is idempotent and safe to run on every cart-page mount.
// A reconciliation that loses the race against a user mutation is
// discarded rather than applied.
func (s *Store) Reconcile(ctx context.Context, reprice bool) (Cart, []Unavailable, error) {
	if s.products == nil {
		return s.Cart(), nil, fmt.Errorf("reconciliation unavailable: no product source")
	}

	s.mu.Lock()
	startSeq := s.seq
	lines := make([]Line, len(s.cart.Lines))
	copy(lines, s.cart.Lines)
	s.mu.Unlock()

	kept := make([]Line, 0, len(lines))
	var dropped []Unavailable
	changed := false

	for _, line := range lines {
		prod, err := s.products.Product(ctx, line.ProductID)
		if errors.Is(err, catalog.ErrNotFound) {
			dropped = append(dropped, Unavailable{ProductID: line.ProductID})
			changed = true
			continue
		} else if err != nil {
			// Backend unreachable is not "product gone"; leave the cart
			// untouched
			return s.Cart(), nil, fmt.Errorf("reconciliation failed: %w", err)
		}

		if reprice && prod.Price != line.UnitPriceSnapshot {
			line.UnitPriceSnapshot = prod.Price
			changed = true
		}
		kept = append(kept, line)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seq != startSeq {
		s.log.WithField("session_id", s.session).
			Debug("discarding stale reconciliation result")
		return s.cart.Clone(), nil, nil
	}

	if changed {
		s.cart.Lines = kept
		s.seq++
		s.persistLocked()
	}

	return s.cart.Clone(), dropped, nil
}

// Checkout hands the cart to the order-creation path. Success clears the
// cart and its persisted snapshot; failure leaves both untouched so the
// user can retry.
func (s *Store) Checkout(ctx context.Context, placer OrderPlacer) (*CheckoutResult, error) {
	if placer == nil {
		return nil, fmt.Errorf("checkout unavailable: no order placer")
	}

	s.mu.Lock()
	current := s.cart.Clone()
	startSeq := s.seq
	s.mu.Unlock()

	if len(current.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	result, err := placer.PlaceOrder(ctx, s.session, current)
	if err != nil {
		return nil, fmt.Errorf("checkout failed: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A mutation that landed while the order was in flight was not part of
	// it; clearing would silently wipe it
	if s.seq != startSeq {
		s.log.WithField("session_id", s.session).
			Warn("cart changed during checkout, keeping current cart")
		return result, nil
	}
	s.clearLocked()

	return result, nil
}

// removeLocked reports whether a line was actually removed
func (s *Store) removeLocked(productID string) bool {
	i, ok := s.cart.Find(productID)
	if !ok {
		return false
	}
	s.cart.Lines = append(s.cart.Lines[:i], s.cart.Lines[i+1:]...)
	return true
}

func (s *Store) clearLocked() {
	s.cart = Cart{}
	s.seq++

	if err := s.persist.Delete(s.key()); err != nil {
		s.log.WithError(err).WithField("session_id", s.session).
			Warn("failed to delete cart snapshot")
	}

	if data, err := json.Marshal(Snapshot{Version: SnapshotVersion}); err == nil {
		s.mirrorAsync(data)
	}
}

// persistLocked writes the full snapshot synchronously to client-local
// persistence, then mirrors it to the backend asynchronously best-effort.
func (s *Store) persistLocked() {
	snap := Snapshot{Version: SnapshotVersion, Lines: s.cart.Lines}
	data, err := json.Marshal(snap)
	if err != nil {
		s.log.WithError(err).Warn("failed to encode cart snapshot")
		return
	}

	if err := s.persist.Write(s.key(), data); err != nil {
		s.log.WithError(err).WithField("session_id", s.session).
			Warn("failed to persist cart snapshot")
	}

	s.mirrorAsync(data)
}

func (s *Store) mirrorAsync(data []byte) {
	if s.mirror == nil {
		return
	}

	session := s.session
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()

		if err := s.mirror.Put(ctx, cartsCollection, session, data); err != nil {
			s.log.WithError(err).WithField("session_id", session).
				Debug("cart mirror write skipped")
		}
	}()
}

func (s *Store) key() string {
	return fmt.Sprintf("cart:%s", s.session)
}
