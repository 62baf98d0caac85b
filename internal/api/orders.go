package api

import (
	"context"
	"net/http"

	"github.com/go-faster/jx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/comanda-pos/comanda/internal/domain/order"
)

func (h *Handler) openOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "OpenOrder")
	defer span.End()

	o, err := h.coordinator.OpenOrder(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeError(w, r.WithContext(ctx), err)
		return
	}
	writeJSON(w, r, http.StatusCreated, func(e *jx.Encoder) {
		encodeOrder(e, *o)
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrder")
	defer span.End()

	view, err := h.coordinator.GetOrder(ctx, r.PathValue("id"))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeError(w, r.WithContext(ctx), err)
		return
	}
	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		encodeOrderView(e, view)
	})
}

func (h *Handler) completeOrder(w http.ResponseWriter, r *http.Request) {
	h.transitionOrder(w, r, "CompleteOrder", h.coordinator.CompleteOrder)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	h.transitionOrder(w, r, "CancelOrder", h.coordinator.CancelOrder)
}

func (h *Handler) transitionOrder(
	w http.ResponseWriter, r *http.Request,
	span string,
	fn func(ctx context.Context, orderID string) (*order.Order, error),
) {
	ctx, sp := h.tracer.Start(r.Context(), span)
	defer sp.End()

	o, err := fn(ctx, r.PathValue("id"))
	if err != nil {
		sp.SetStatus(codes.Error, err.Error())
		writeError(w, r.WithContext(ctx), err)
		return
	}
	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, *o)
	})
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	req, err := decodeAddItem(r)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	h.mutate(w, r, http.StatusCreated, order.Mutation{
		Op:         order.OpAddItem,
		OrderID:    r.PathValue("id"),
		MenuItemID: req.MenuItemID,
		Quantity:   req.Quantity,
		UnitPrice:  req.UnitPrice,
		Notes:      req.Notes,
		Addons:     req.Addons,
	})
}

func (h *Handler) updateQuantity(w http.ResponseWriter, r *http.Request) {
	req, err := decodeQuantity(r)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	h.mutate(w, r, http.StatusOK, order.Mutation{
		Op:         order.OpUpdateQuantity,
		LineItemID: r.PathValue("id"),
		Quantity:   req.Quantity,
	})
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, http.StatusOK, order.Mutation{
		Op:         order.OpRemoveItem,
		LineItemID: r.PathValue("id"),
	})
}

func (h *Handler) attachAddon(w http.ResponseWriter, r *http.Request) {
	req, err := decodeAttachAddon(r)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	h.mutate(w, r, http.StatusCreated, order.Mutation{
		Op:         order.OpAttachAddon,
		LineItemID: r.PathValue("id"),
		AddonID:    req.AddonID,
		Quantity:   req.Quantity,
		UnitPrice:  req.UnitPrice,
	})
}

func (h *Handler) detachAddon(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, http.StatusOK, order.Mutation{
		Op:         order.OpDetachAddon,
		LineItemID: r.PathValue("id"),
		AddonID:    r.PathValue("addonID"),
	})
}

// mutate runs a single line-item mutation and records its outcome.
func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, okStatus int, m order.Mutation) {
	ctx, span := h.tracer.Start(r.Context(), string(m.Op))
	defer span.End()

	res, err := h.coordinator.Execute(ctx, m)

	outcome := "ok"
	if err != nil {
		outcome = mapError(err).kind
	}
	h.mutations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", string(m.Op)),
		attribute.String("outcome", outcome),
	))

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeError(w, r.WithContext(ctx), err)
		return
	}
	writeJSON(w, r, okStatus, func(e *jx.Encoder) {
		encodeMutationResult(e, res)
	})
}
