// internal/domain/catalog/entity.go
package catalog

// Product represents a catalog product. Products are immutable from the
// cart's perspective; the backend record store owns and versions them.
type Product struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"` // Price in minor units (paise)
	Currency string `json:"currency"`
}
