package api

import (
	"net/http"

	"github.com/go-faster/jx"
	"go.opentelemetry.io/otel/codes"
)

func (h *Handler) getMenu(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetMenu")
	defer span.End()

	items, err := h.catalog.ListMenuItems(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeError(w, r.WithContext(ctx), err)
		return
	}
	addons, err := h.catalog.ListAddons(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeError(w, r.WithContext(ctx), err)
		return
	}

	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("items")
		e.ArrStart()
		for _, item := range items {
			encodeMenuItem(e, item)
		}
		e.ArrEnd()
		e.FieldStart("addons")
		e.ArrStart()
		for _, a := range addons {
			encodeCatalogAddon(e, a)
		}
		e.ArrEnd()
		e.ObjEnd()
	})
}

func (h *Handler) getStock(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetStock")
	defer span.End()

	units, err := h.stock.ListStock(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeError(w, r.WithContext(ctx), err)
		return
	}

	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("stock")
		e.ArrStart()
		for _, u := range units {
			encodeStockUnit(e, u)
		}
		e.ArrEnd()
		e.ObjEnd()
	})
}
