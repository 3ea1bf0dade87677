package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/tracking"
	"github.com/your-org/storefront-backend/internal/infrastructure/persistence"
	"github.com/your-org/storefront-backend/internal/lifecycle"
)

type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingSink) sink(event string, _ tracking.Params) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) named(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == event {
			n++
		}
	}
	return n
}

type stubPlacer struct {
	err error
}

func (p *stubPlacer) PlaceOrder(_ context.Context, _ string, c cart.Cart) (*cart.CheckoutResult, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &cart.CheckoutResult{
		OrderID:  "order-1",
		Amount:   c.Subtotal(),
		Currency: "INR",
		PlacedAt: time.Now().UTC(),
	}, nil
}

type stubProducts struct {
	products map[string]catalog.Product
}

func (s *stubProducts) Product(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &p, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type testEnv struct {
	router *gin.Engine
	sink   *recordingSink
	placer *stubPlacer
	cookie string
}

func newTestEnv(mounted bool, products cart.ProductSource) *testEnv {
	gin.SetMode(gin.TestMode)

	boundary := lifecycle.NewBoundary(quietLogger())
	if mounted {
		boundary.Mount(func() bool { return true })
	}

	sessions := NewSessionManager(boundary, persistence.NewMemoryStore(), products, nil, quietLogger())

	cfg := &config.Config{}
	cfg.App.Currency = "INR"

	env := &testEnv{
		sink:   &recordingSink{},
		placer: &stubPlacer{},
	}

	handler := NewCartHandler(sessions, env.placer, env.sink.sink, cfg, quietLogger())

	router := gin.New()
	cartRoutes := router.Group("/api/v1/cart")
	{
		cartRoutes.GET("", handler.GetCart)
		cartRoutes.DELETE("", handler.ClearCart)
		cartRoutes.POST("/items", handler.AddItem)
		cartRoutes.PUT("/items/:id", handler.SetQuantity)
		cartRoutes.DELETE("/items/:id", handler.RemoveItem)
		cartRoutes.POST("/reconcile", handler.Reconcile)
		cartRoutes.POST("/checkout", handler.Checkout)
	}
	env.router = router

	return env
}

// do issues a request, carrying the session cookie across calls the way a
// browser would
func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if e.cookie != "" {
		req.Header.Set("Cookie", sessionCookie+"="+e.cookie)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookie {
			e.cookie = c.Value
		}
	}
	return w
}

func decodeCartView(t *testing.T, w *httptest.ResponseRecorder) CartView {
	t.Helper()
	var resp struct {
		Data CartView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

const addDarjeeling = `{"product":{"id":"T1","name":"Darjeeling 100g","price":499},"quantity":2}`

func TestCartEndpoints_PlaceholderUntilMounted(t *testing.T) {
	env := newTestEnv(false, nil)

	for _, call := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/v1/cart", ""},
		{http.MethodPost, "/api/v1/cart/items", addDarjeeling},
		{http.MethodPost, "/api/v1/cart/checkout", ""},
	} {
		w := env.do(call.method, call.path, call.body)
		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Contains(t, w.Body.String(), `"mounting"`)
	}
}

func TestAddAndGetCart_SessionCookieFlow(t *testing.T) {
	env := newTestEnv(true, nil)

	w := env.do(http.MethodPost, "/api/v1/cart/items", addDarjeeling)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, env.cookie)

	w = env.do(http.MethodGet, "/api/v1/cart", "")
	require.Equal(t, http.StatusOK, w.Code)

	view := decodeCartView(t, w)
	assert.Equal(t, env.cookie, view.SessionID)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, "T1", view.Lines[0].ProductID)
	assert.Equal(t, 2, view.Lines[0].Quantity)
	assert.Equal(t, int64(998), view.Subtotal)
	assert.Equal(t, "INR", view.Currency)
}

func TestAddItem_MergesRepeatedAdds(t *testing.T) {
	env := newTestEnv(true, nil)

	env.do(http.MethodPost, "/api/v1/cart/items", addDarjeeling)
	w := env.do(http.MethodPost, "/api/v1/cart/items", addDarjeeling)
	require.Equal(t, http.StatusOK, w.Code)

	view := decodeCartView(t, w)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 4, view.Lines[0].Quantity)
}

func TestAddItem_InvalidQuantityRejected(t *testing.T) {
	env := newTestEnv(true, nil)

	w := env.do(http.MethodPost, "/api/v1/cart/items",
		`{"product":{"id":"T1","name":"Darjeeling 100g","price":499},"quantity":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/api/v1/cart", "")
	assert.Empty(t, decodeCartView(t, w).Lines)
}

func TestAddItem_FiresAddToCartOncePerProduct(t *testing.T) {
	env := newTestEnv(true, nil)

	env.do(http.MethodPost, "/api/v1/cart/items", addDarjeeling)
	env.do(http.MethodPost, "/api/v1/cart/items", addDarjeeling)

	assert.Equal(t, 1, env.sink.named(string(tracking.EventAddToCart)))
}

func TestSetQuantity_ZeroRemovesLine(t *testing.T) {
	env := newTestEnv(true, nil)

	env.do(http.MethodPost, "/api/v1/cart/items", addDarjeeling)

	w := env.do(http.MethodPut, "/api/v1/cart/items/T1", `{"quantity":0}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeCartView(t, w).Lines)
}

func TestRemoveItem_ThenCartIsEmpty(t *testing.T) {
	env := newTestEnv(true, nil)

	env.do(http.MethodPost, "/api/v1/cart/items", addDarjeeling)

	w := env.do(http.MethodDelete, "/api/v1/cart/items/T1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeCartView(t, w).Lines)
}

func TestReconcile_ReportsUnavailableLines(t *testing.T) {
	products := &stubProducts{products: map[string]catalog.Product{
		"T1": {ID: "T1", Name: "Darjeeling 100g", Price: 499, Currency: "INR"},
	}}
	env := newTestEnv(true, products)

	env.do(http.MethodPost, "/api/v1/cart/items", addDarjeeling)
	env.do(http.MethodPost, "/api/v1/cart/items",
		`{"product":{"id":"T2","name":"Assam 250g","price":799},"quantity":1}`)

	w := env.do(http.MethodPost, "/api/v1/cart/reconcile", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Reconciled  bool               `json:"reconciled"`
		Unavailable []cart.Unavailable `json:"unavailable"`
		Data        CartView           `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Reconciled)
	require.Len(t, resp.Unavailable, 1)
	assert.Equal(t, "T2", resp.Unavailable[0].ProductID)
	require.Len(t, resp.Data.Lines, 1)
	assert.Equal(t, "T1", resp.Data.Lines[0].ProductID)
}

func TestReconcile_NoProductSourceIsNonFatal(t *testing.T) {
	env := newTestEnv(true, nil)

	env.do(http.MethodPost, "/api/v1/cart/items", addDarjeeling)

	w := env.do(http.MethodPost, "/api/v1/cart/reconcile", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"reconciled":false`)

	// Cart untouched
	view := decodeCartView(t, w)
	assert.Len(t, view.Lines, 1)
}

func TestCheckout_EmptyCartRejected(t *testing.T) {
	env := newTestEnv(true, nil)

	w := env.do(http.MethodPost, "/api/v1/cart/checkout", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// A rejected attempt is not an initiated checkout
	assert.Equal(t, 0, env.sink.named(string(tracking.EventInitiateCheckout)))
}

func TestSession_ForgedCookieIsReplaced(t *testing.T) {
	gin.SetMode(gin.TestMode)

	base := t.TempDir()
	snapshotDir := filepath.Join(base, "data", "carts")
	snapshots, err := persistence.NewFileStore(snapshotDir)
	require.NoError(t, err)

	boundary := lifecycle.NewBoundary(quietLogger())
	boundary.Mount(func() bool { return true })
	sessions := NewSessionManager(boundary, snapshots, nil, nil, quietLogger())

	cfg := &config.Config{}
	cfg.App.Currency = "INR"
	handler := NewCartHandler(sessions, &stubPlacer{}, nil, cfg, quietLogger())

	router := gin.New()
	router.POST("/api/v1/cart/items", handler.AddItem)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(addDarjeeling))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cookie", sessionCookie+"=../../../../escaped")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// The forged value is discarded for a freshly minted uuid
	var minted string
	for _, ck := range w.Result().Cookies() {
		if ck.Name == sessionCookie {
			minted = ck.Value
		}
	}
	require.NotEmpty(t, minted)
	require.NoError(t, uuid.Validate(minted))

	// The snapshot landed inside the snapshot directory and nowhere else
	_, err = os.Stat(filepath.Join(snapshotDir, "cart_"+minted+".json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(base, "escaped.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestCheckout_FailurePreservesCart(t *testing.T) {
	env := newTestEnv(true, nil)
	env.placer.err = assert.AnError

	env.do(http.MethodPost, "/api/v1/cart/items", addDarjeeling)

	w := env.do(http.MethodPost, "/api/v1/cart/checkout", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = env.do(http.MethodGet, "/api/v1/cart", "")
	assert.Len(t, decodeCartView(t, w).Lines, 1)
}

func TestCheckout_SuccessClearsCartAndFiresEvents(t *testing.T) {
	env := newTestEnv(true, nil)

	env.do(http.MethodPost, "/api/v1/cart/items", addDarjeeling)

	w := env.do(http.MethodPost, "/api/v1/cart/checkout", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"order_id":"order-1"`)

	assert.Equal(t, 1, env.sink.named(string(tracking.EventInitiateCheckout)))
	assert.Equal(t, 1, env.sink.named(string(tracking.EventPurchase)))

	w = env.do(http.MethodGet, "/api/v1/cart", "")
	assert.Empty(t, decodeCartView(t, w).Lines)
}
