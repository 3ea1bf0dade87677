// internal/interfaces/http/handlers/product.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/tracking"
)

// ProductHandler handles catalog endpoints
type ProductHandler struct {
	catalog  *catalog.Service
	sessions *SessionManager
	sink     tracking.Sink
	log      *logrus.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(catalogService *catalog.Service, sessions *SessionManager, sink tracking.Sink, logger *logrus.Logger) *ProductHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ProductHandler{
		catalog:  catalogService,
		sessions: sessions,
		sink:     sink,
		log:      logger,
	}
}

// ListProducts handles GET /products
func (h *ProductHandler) ListProducts(c *gin.Context) {
	products, err := h.catalog.List(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Warn("failed to list products")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Catalog unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Products retrieved successfully",
		"data":    products,
	})
}

// GetProduct handles GET /products/:id. The product view event fires
// through the session deduper, and only once the client boundary has
// mounted; the catalog response itself is never blocked on tracking.
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id := c.Param("id")

	product, err := h.catalog.Product(c.Request.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Product not found",
		})
		return
	} else if err != nil {
		h.log.WithError(err).WithField("product_id", id).Warn("failed to fetch product")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Catalog unavailable",
		})
		return
	}

	if session, ok := h.sessions.Session(c); ok {
		session.Tracker.FireOnce(tracking.EventViewContent, product.ID,
			tracking.ProductParams(*product), h.sink)
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product retrieved successfully",
		"data":    product,
	})
}
