package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	mnoop "go.opentelemetry.io/otel/metric/noop"
	tnoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/comanda-pos/comanda/internal/domain/catalog"
	"github.com/comanda-pos/comanda/internal/domain/inventory"
	"github.com/comanda-pos/comanda/internal/domain/order"
	"github.com/comanda-pos/comanda/internal/domain/recipe"
	"github.com/comanda-pos/comanda/internal/storage/memory"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// Response shapes, decoded with encoding/json to stay independent of the
// jx encoders under test.

type orderJSON struct {
	ID       string  `json:"id"`
	Status   string  `json:"status"`
	Subtotal float64 `json:"subtotal"`
	Total    float64 `json:"total"`
}

type lineItemJSON struct {
	ID         string  `json:"id"`
	OrderID    string  `json:"orderId"`
	MenuItemID string  `json:"menuItemId"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unitPrice"`
	TotalPrice float64 `json:"totalPrice"`
	Notes      string  `json:"notes"`
}

type addonJSON struct {
	ID         string  `json:"id"`
	AddonID    string  `json:"addonId"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unitPrice"`
	TotalPrice float64 `json:"totalPrice"`
}

type mutationJSON struct {
	LineItem *lineItemJSON `json:"lineItem"`
	Addons   []addonJSON   `json:"addons"`
	Order    struct {
		Subtotal float64 `json:"subtotal"`
		Total    float64 `json:"total"`
	} `json:"order"`
}

type errorJSON struct {
	Error struct {
		Kind    string            `json:"kind"`
		Message string            `json:"message"`
		Context map[string]string `json:"context"`
	} `json:"error"`
}

func newTestServer(t *testing.T) (*memory.Store, *httptest.Server) {
	t.Helper()

	store := memory.New()
	store.SeedMenuItem(catalog.MenuItem{ID: "pasta", Name: "Pasta", Price: dec("12.50"), Category: "mains", Active: true})
	store.SeedMenuItem(catalog.MenuItem{ID: "espresso", Name: "Espresso", Price: dec("2.50"), Category: "drinks", Active: true})
	store.SeedMenuItem(catalog.MenuItem{ID: "fugu", Name: "Fugu Sashimi", Price: dec("90.00"), Category: "specials", Active: false})
	store.SeedAddon(catalog.Addon{ID: "extra-cheese", Name: "Extra Cheese", Price: dec("1.50"), Active: true})

	store.SeedRecipeLink(recipe.Link{ItemID: "pasta", StockUnitID: "flour", QuantityPerUnit: dec("200")})
	store.SeedRecipeLink(recipe.Link{ItemID: "extra-cheese", StockUnitID: "cheese", QuantityPerUnit: dec("50")})

	store.SeedStockUnit(inventory.StockUnit{ID: "flour", Name: "Flour", Quantity: dec("1000"), Unit: "g"})
	store.SeedStockUnit(inventory.StockUnit{ID: "cheese", Name: "Cheese", Quantity: dec("100"), Unit: "g"})

	mutator := order.NewMutator(store, recipe.NewResolver(store), inventory.NewLedger())
	coord := order.NewCoordinator(store, mutator, order.NewRecalculator())

	h, err := NewHandler(coord, store, store, tnoop.NewTracerProvider(), mnoop.NewMeterProvider())
	require.NoError(t, err)

	mux := http.NewServeMux()
	h.Routes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return store, srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func openTestOrder(t *testing.T, srv *httptest.Server) orderJSON {
	t.Helper()
	resp := do(t, srv, http.MethodPost, "/api/orders", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[orderJSON](t, resp)
}

func TestOpenOrder(t *testing.T) {
	_, srv := newTestServer(t)

	o := openTestOrder(t, srv)

	assert.NotEmpty(t, o.ID)
	assert.Equal(t, "open", o.Status)
	assert.Zero(t, o.Total)
}

func TestAddItem(t *testing.T) {
	store, srv := newTestServer(t)
	o := openTestOrder(t, srv)

	resp := do(t, srv, http.MethodPost, "/api/orders/"+o.ID+"/items",
		`{"menuItemId": "pasta", "quantity": 2}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	res := decode[mutationJSON](t, resp)
	require.NotNil(t, res.LineItem)
	assert.Equal(t, "pasta", res.LineItem.MenuItemID)
	assert.Equal(t, 2, res.LineItem.Quantity)
	assert.InDelta(t, 25.00, res.LineItem.TotalPrice, 0.001)
	assert.InDelta(t, 25.00, res.Order.Total, 0.001)
	assert.True(t, dec("600").Equal(store.StockQuantity("flour")))
}

func TestAddItem_WithAddonsAndCustomPrice(t *testing.T) {
	_, srv := newTestServer(t)
	o := openTestOrder(t, srv)

	resp := do(t, srv, http.MethodPost, "/api/orders/"+o.ID+"/items",
		`{"menuItemId": "pasta", "quantity": 1, "unitPrice": "10.00", "notes": "no garlic",
		  "addons": [{"addonId": "extra-cheese", "quantity": 2}]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	res := decode[mutationJSON](t, resp)
	require.NotNil(t, res.LineItem)
	assert.InDelta(t, 10.00, res.LineItem.UnitPrice, 0.001)
	assert.Equal(t, "no garlic", res.LineItem.Notes)
	require.Len(t, res.Addons, 1)
	assert.Equal(t, "extra-cheese", res.Addons[0].AddonID)
	assert.InDelta(t, 3.00, res.Addons[0].TotalPrice, 0.001)
	assert.InDelta(t, 13.00, res.Order.Total, 0.001)
}

func TestAddItem_UnknownMenuItem(t *testing.T) {
	_, srv := newTestServer(t)
	o := openTestOrder(t, srv)

	resp := do(t, srv, http.MethodPost, "/api/orders/"+o.ID+"/items",
		`{"menuItemId": "ghost", "quantity": 1}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	e := decode[errorJSON](t, resp)
	assert.Equal(t, "reference_not_found", e.Error.Kind)
	assert.Equal(t, "ghost", e.Error.Context["id"])
}

func TestAddItem_InactiveMenuItem(t *testing.T) {
	_, srv := newTestServer(t)
	o := openTestOrder(t, srv)

	resp := do(t, srv, http.MethodPost, "/api/orders/"+o.ID+"/items",
		`{"menuItemId": "fugu", "quantity": 1}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	e := decode[errorJSON](t, resp)
	assert.Equal(t, "inactive_reference", e.Error.Kind)
}

func TestAddItem_InsufficientStock(t *testing.T) {
	store, srv := newTestServer(t)
	o := openTestOrder(t, srv)

	// 6 pasta needs 1200g flour; only 1000g available.
	resp := do(t, srv, http.MethodPost, "/api/orders/"+o.ID+"/items",
		`{"menuItemId": "pasta", "quantity": 6}`)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	e := decode[errorJSON](t, resp)
	assert.Equal(t, "insufficient_stock", e.Error.Kind)
	assert.Equal(t, "flour", e.Error.Context["stockUnitId"])
	assert.Equal(t, "1200", e.Error.Context["required"])
	assert.Equal(t, "1000", e.Error.Context["available"])
	assert.True(t, dec("1000").Equal(store.StockQuantity("flour")), "failed add must not touch stock")
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	_, srv := newTestServer(t)
	o := openTestOrder(t, srv)

	resp := do(t, srv, http.MethodPost, "/api/orders/"+o.ID+"/items",
		`{"menuItemId": "pasta", "quantity": 0}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	e := decode[errorJSON](t, resp)
	assert.Equal(t, "invalid_quantity", e.Error.Kind)
}

func TestAddItem_MalformedBody(t *testing.T) {
	_, srv := newTestServer(t)
	o := openTestOrder(t, srv)

	resp := do(t, srv, http.MethodPost, "/api/orders/"+o.ID+"/items", `{"menuItemId": `)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	e := decode[errorJSON](t, resp)
	assert.Equal(t, "bad_request", e.Error.Kind)
}

func TestUpdateQuantity(t *testing.T) {
	store, srv := newTestServer(t)
	o := openTestOrder(t, srv)

	add := decode[mutationJSON](t, do(t, srv, http.MethodPost, "/api/orders/"+o.ID+"/items",
		`{"menuItemId": "pasta", "quantity": 1}`))

	resp := do(t, srv, http.MethodPatch, "/api/items/"+add.LineItem.ID, `{"quantity": 3}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	res := decode[mutationJSON](t, resp)
	assert.Equal(t, 3, res.LineItem.Quantity)
	assert.InDelta(t, 37.50, res.Order.Total, 0.001)
	assert.True(t, dec("400").Equal(store.StockQuantity("flour")))
}

func TestRemoveItem_RestoresStock(t *testing.T) {
	store, srv := newTestServer(t)
	o := openTestOrder(t, srv)

	add := decode[mutationJSON](t, do(t, srv, http.MethodPost, "/api/orders/"+o.ID+"/items",
		`{"menuItemId": "pasta", "quantity": 2}`))
	require.True(t, dec("600").Equal(store.StockQuantity("flour")))

	resp := do(t, srv, http.MethodDelete, "/api/items/"+add.LineItem.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	res := decode[mutationJSON](t, resp)
	assert.Zero(t, res.Order.Total)
	assert.True(t, dec("1000").Equal(store.StockQuantity("flour")))
}

func TestAttachAndDetachAddon(t *testing.T) {
	store, srv := newTestServer(t)
	o := openTestOrder(t, srv)

	add := decode[mutationJSON](t, do(t, srv, http.MethodPost, "/api/orders/"+o.ID+"/items",
		`{"menuItemId": "pasta", "quantity": 1}`))

	resp := do(t, srv, http.MethodPost, "/api/items/"+add.LineItem.ID+"/addons",
		`{"addonId": "extra-cheese", "quantity": 1}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	res := decode[mutationJSON](t, resp)
	require.Len(t, res.Addons, 1)
	assert.InDelta(t, 14.00, res.Order.Total, 0.001)
	assert.True(t, dec("50").Equal(store.StockQuantity("cheese")))

	// Attaching the same add-on again is rejected.
	resp = do(t, srv, http.MethodPost, "/api/items/"+add.LineItem.ID+"/addons",
		`{"addonId": "extra-cheese", "quantity": 1}`)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "addon_already_attached", decode[errorJSON](t, resp).Error.Kind)

	resp = do(t, srv, http.MethodDelete, "/api/items/"+add.LineItem.ID+"/addons/extra-cheese", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	res = decode[mutationJSON](t, resp)
	assert.InDelta(t, 12.50, res.Order.Total, 0.001)
	assert.True(t, dec("100").Equal(store.StockQuantity("cheese")))
}

func TestGetOrder_View(t *testing.T) {
	_, srv := newTestServer(t)
	o := openTestOrder(t, srv)

	do(t, srv, http.MethodPost, "/api/orders/"+o.ID+"/items", `{"menuItemId": "pasta", "quantity": 1}`).Body.Close()
	do(t, srv, http.MethodPost, "/api/orders/"+o.ID+"/items", `{"menuItemId": "espresso", "quantity": 2}`).Body.Close()

	resp := do(t, srv, http.MethodGet, "/api/orders/"+o.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	view := decode[struct {
		Order orderJSON `json:"order"`
		Items []struct {
			LineItem lineItemJSON `json:"lineItem"`
			Addons   []addonJSON  `json:"addons"`
		} `json:"items"`
	}](t, resp)

	assert.Len(t, view.Items, 2)
	assert.InDelta(t, 17.50, view.Order.Total, 0.001)
}

func TestCompleteOrder_RejectsFurtherMutations(t *testing.T) {
	_, srv := newTestServer(t)
	o := openTestOrder(t, srv)

	resp := do(t, srv, http.MethodPost, "/api/orders/"+o.ID+"/complete", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "completed", decode[orderJSON](t, resp).Status)

	resp = do(t, srv, http.MethodPost, "/api/orders/"+o.ID+"/items", `{"menuItemId": "pasta", "quantity": 1}`)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "order_not_open", decode[errorJSON](t, resp).Error.Kind)
}

func TestCancelOrder(t *testing.T) {
	_, srv := newTestServer(t)
	o := openTestOrder(t, srv)

	resp := do(t, srv, http.MethodPost, "/api/orders/"+o.ID+"/cancel", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "cancelled", decode[orderJSON](t, resp).Status)
}

func TestGetOrder_Unknown(t *testing.T) {
	_, srv := newTestServer(t)

	resp := do(t, srv, http.MethodGet, "/api/orders/nope", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "reference_not_found", decode[errorJSON](t, resp).Error.Kind)
}

func TestGetMenu(t *testing.T) {
	_, srv := newTestServer(t)

	resp := do(t, srv, http.MethodGet, "/api/menu", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	menu := decode[struct {
		Items []struct {
			ID     string  `json:"id"`
			Price  float64 `json:"price"`
			Active bool    `json:"active"`
		} `json:"items"`
		Addons []struct {
			ID string `json:"id"`
		} `json:"addons"`
	}](t, resp)

	assert.Len(t, menu.Items, 3)
	assert.Len(t, menu.Addons, 1)
}

func TestGetStock(t *testing.T) {
	_, srv := newTestServer(t)

	resp := do(t, srv, http.MethodGet, "/api/stock", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	stock := decode[struct {
		Stock []struct {
			ID       string  `json:"id"`
			Quantity float64 `json:"quantity"`
			Unit     string  `json:"unit"`
		} `json:"stock"`
	}](t, resp)

	require.Len(t, stock.Stock, 2)
	assert.Equal(t, "cheese", stock.Stock[0].ID)
	assert.Equal(t, "flour", stock.Stock[1].ID)
}
