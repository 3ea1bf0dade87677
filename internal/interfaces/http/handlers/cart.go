// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/tracking"
)

// CartHandler handles cart endpoints
type CartHandler struct {
	sessions *SessionManager
	placer   cart.OrderPlacer
	sink     tracking.Sink
	currency string
	log      *logrus.Logger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(sessions *SessionManager, placer cart.OrderPlacer, sink tracking.Sink, cfg *config.Config, logger *logrus.Logger) *CartHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CartHandler{
		sessions: sessions,
		placer:   placer,
		sink:     sink,
		currency: cfg.App.Currency,
		log:      logger,
	}
}

// CartView is the cart representation returned to the storefront
type CartView struct {
	SessionID     string      `json:"session_id"`
	Lines         []cart.Line `json:"lines"`
	TotalQuantity int         `json:"total_quantity"`
	Subtotal      int64       `json:"subtotal"`
	Currency      string      `json:"currency"`
}

// AddItemRequest carries the product alongside the quantity: the add-time
// price snapshot comes from what the storefront displayed, not from a
// backend round trip, so mutations work with an unconfigured backend too.
type AddItemRequest struct {
	Product  ProductPayload `json:"product" binding:"required"`
	Quantity int            `json:"quantity" binding:"required,min=1"`
}

// ProductPayload is the product as rendered on the storefront page
type ProductPayload struct {
	ID       string `json:"id" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Price    int64  `json:"price" binding:"min=0"`
	Currency string `json:"currency"`
}

// SetQuantityRequest updates one line. Zero removes the line.
type SetQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	session, ok := h.sessions.Session(c)
	if !ok {
		h.mounting(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart retrieved successfully",
		"data":    h.view(session, session.Store.Cart()),
	})
}

// AddItem handles POST /cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	session, ok := h.sessions.Session(c)
	if !ok {
		h.mounting(c)
		return
	}

	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	product := catalog.Product{
		ID:       req.Product.ID,
		Name:     req.Product.Name,
		Price:    req.Product.Price,
		Currency: req.Product.Currency,
	}
	if product.Currency == "" {
		product.Currency = h.currency
	}

	updated, err := session.Store.AddItem(product, req.Quantity)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	session.Tracker.FireOnce(tracking.EventAddToCart, product.ID, tracking.ProductParams(product), h.sink)

	c.JSON(http.StatusOK, gin.H{
		"message": "Item added to cart successfully",
		"data":    h.view(session, updated),
	})
}

// SetQuantity handles PUT /cart/items/:id
func (h *CartHandler) SetQuantity(c *gin.Context) {
	session, ok := h.sessions.Session(c)
	if !ok {
		h.mounting(c)
		return
	}

	var req SetQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	updated, err := session.Store.SetQuantity(c.Param("id"), *req.Quantity)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart item updated successfully",
		"data":    h.view(session, updated),
	})
}

// RemoveItem handles DELETE /cart/items/:id
func (h *CartHandler) RemoveItem(c *gin.Context) {
	session, ok := h.sessions.Session(c)
	if !ok {
		h.mounting(c)
		return
	}

	updated := session.Store.RemoveItem(c.Param("id"))

	c.JSON(http.StatusOK, gin.H{
		"message": "Item removed from cart successfully",
		"data":    h.view(session, updated),
	})
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	session, ok := h.sessions.Session(c)
	if !ok {
		h.mounting(c)
		return
	}

	updated := session.Store.Clear()

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart cleared successfully",
		"data":    h.view(session, updated),
	})
}

// Reconcile handles POST /cart/reconcile. Dropped lines come back as
// per-line notices; a backend failure is reported as a non-fatal state,
// never an error page.
func (h *CartHandler) Reconcile(c *gin.Context) {
	session, ok := h.sessions.Session(c)
	if !ok {
		h.mounting(c)
		return
	}

	reprice := c.Query("reprice") == "true"

	updated, unavailable, err := session.Store.Reconcile(c.Request.Context(), reprice)
	if err != nil {
		h.log.WithError(err).WithField("session_id", session.ID).Warn("cart reconciliation unavailable")
		c.JSON(http.StatusOK, gin.H{
			"message":    "Reconciliation unavailable, showing cart as-is",
			"reconciled": false,
			"data":       h.view(session, updated),
		})
		return
	}

	if unavailable == nil {
		unavailable = []cart.Unavailable{}
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Cart reconciled successfully",
		"reconciled":  true,
		"unavailable": unavailable,
		"data":        h.view(session, updated),
	})
}

// Checkout handles POST /cart/checkout
func (h *CartHandler) Checkout(c *gin.Context) {
	session, ok := h.sessions.Session(c)
	if !ok {
		h.mounting(c)
		return
	}

	current := session.Store.Cart()
	ids := make([]string, len(current.Lines))
	for i, line := range current.Lines {
		ids[i] = line.ProductID
	}

	// A checkout attempt on an empty cart is rejected below and is not an
	// initiated checkout
	if len(current.Lines) > 0 {
		session.Tracker.FireOnce(tracking.EventInitiateCheckout, session.ID,
			tracking.CartParams(ids, current.Subtotal(), h.currency), h.sink)
	}

	result, err := session.Store.Checkout(c.Request.Context(), h.placer)
	if err != nil {
		if errors.Is(err, cart.ErrEmptyCart) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Cart is empty",
			})
			return
		}
		// The cart is untouched so the user can retry
		h.log.WithError(err).WithField("session_id", session.ID).Warn("checkout failed")
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Checkout failed, please try again",
		})
		return
	}

	session.Tracker.FireOnce(tracking.EventPurchase, result.OrderID,
		tracking.CartParams(ids, result.Amount, result.Currency), h.sink)

	c.JSON(http.StatusOK, gin.H{
		"message": "Order placed successfully",
		"data":    result,
	})
}

// mounting answers cart requests that arrive before the client boundary
// has mounted: nothing is rendered and no state is touched.
func (h *CartHandler) mounting(c *gin.Context) {
	c.JSON(http.StatusAccepted, gin.H{
		"status": "mounting",
	})
}

func (h *CartHandler) view(session *Session, current cart.Cart) CartView {
	lines := current.Lines
	if lines == nil {
		lines = []cart.Line{}
	}
	return CartView{
		SessionID:     session.ID,
		Lines:         lines,
		TotalQuantity: current.TotalQuantity(),
		Subtotal:      current.Subtotal(),
		Currency:      h.currency,
	}
}
