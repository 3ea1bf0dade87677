// internal/interfaces/http/routes/routes.go
package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/checkout"
	"github.com/your-org/storefront-backend/internal/domain/tracking"
	"github.com/your-org/storefront-backend/internal/infrastructure/persistence"
	"github.com/your-org/storefront-backend/internal/infrastructure/recordstore"
	"github.com/your-org/storefront-backend/internal/interfaces/http/handlers"
	"github.com/your-org/storefront-backend/internal/lifecycle"
)

// SetupRoutes wires all API routes with their handlers
func SetupRoutes(api *gin.RouterGroup, cfg *config.Config, records *recordstore.Client, snapshots persistence.Store, boundary *lifecycle.Boundary, logger *logrus.Logger) {
	catalogService := catalog.NewService(records, logger)
	checkoutService := checkout.NewService(records, cfg.App.Currency, logger)
	pixel := tracking.NewPixel(cfg, logger)
	sink := pixel.Sink()

	// Mirrored cart snapshots lapse with the session idle window
	mirror := recordstore.ExpiringWriter{Client: records, TTL: 24 * time.Hour}

	sessions := handlers.NewSessionManager(boundary, snapshots, catalogService, mirror, logger)

	cartHandler := handlers.NewCartHandler(sessions, checkoutService, sink, cfg, logger)
	productHandler := handlers.NewProductHandler(catalogService, sessions, sink, logger)

	// Product catalog routes
	products := api.Group("/products")
	{
		products.GET("", productHandler.ListProducts)
		products.GET("/:id", productHandler.GetProduct)
	}

	// Cart routes; all of them answer with a placeholder until the client
	// boundary has mounted
	cartRoutes := api.Group("/cart")
	{
		cartRoutes.GET("", cartHandler.GetCart)
		cartRoutes.DELETE("", cartHandler.ClearCart)
		cartRoutes.POST("/items", cartHandler.AddItem)
		cartRoutes.PUT("/items/:id", cartHandler.SetQuantity)
		cartRoutes.DELETE("/items/:id", cartHandler.RemoveItem)
		cartRoutes.POST("/reconcile", cartHandler.Reconcile)
		cartRoutes.POST("/checkout", cartHandler.Checkout)
	}
}
