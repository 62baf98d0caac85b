// Package api is the HTTP command layer consumed by order-entry terminals.
// It maps JSON requests onto coordinator mutations and renders the
// caller-facing result and error shapes; no business rules live here.
package api

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/comanda-pos/comanda/internal/domain/catalog"
	"github.com/comanda-pos/comanda/internal/domain/inventory"
	"github.com/comanda-pos/comanda/internal/domain/order"
)

// StockLister provides the current stock levels for terminal displays,
// outside any mutation transaction.
type StockLister interface {
	ListStock(ctx context.Context) ([]inventory.StockUnit, error)
}

// Handler serves the order-entry command API.
type Handler struct {
	coordinator *order.Coordinator
	catalog     catalog.Source
	stock       StockLister

	tracer    trace.Tracer
	mutations metric.Int64Counter
}

// NewHandler constructs a Handler with the required collaborators.
func NewHandler(
	coordinator *order.Coordinator,
	cat catalog.Source,
	stock StockLister,
	tracerProvider trace.TracerProvider,
	meterProvider metric.MeterProvider,
) (*Handler, error) {
	mutations, err := meterProvider.Meter("comanda.api").Int64Counter("comanda.mutations",
		metric.WithDescription("Line-item mutations executed, by operation and outcome"),
	)
	if err != nil {
		return nil, err
	}
	return &Handler{
		coordinator: coordinator,
		catalog:     cat,
		stock:       stock,
		tracer:      tracerProvider.Tracer("comanda.api"),
		mutations:   mutations,
	}, nil
}

// Routes registers all API endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/orders", h.openOrder)
	mux.HandleFunc("GET /api/orders/{id}", h.getOrder)
	mux.HandleFunc("POST /api/orders/{id}/complete", h.completeOrder)
	mux.HandleFunc("POST /api/orders/{id}/cancel", h.cancelOrder)
	mux.HandleFunc("POST /api/orders/{id}/items", h.addItem)
	mux.HandleFunc("PATCH /api/items/{id}", h.updateQuantity)
	mux.HandleFunc("DELETE /api/items/{id}", h.removeItem)
	mux.HandleFunc("POST /api/items/{id}/addons", h.attachAddon)
	mux.HandleFunc("DELETE /api/items/{id}/addons/{addonID}", h.detachAddon)
	mux.HandleFunc("GET /api/menu", h.getMenu)
	mux.HandleFunc("GET /api/stock", h.getStock)
}
