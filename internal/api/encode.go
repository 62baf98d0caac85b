package api

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/comanda-pos/comanda/internal/domain/catalog"
	"github.com/comanda-pos/comanda/internal/domain/inventory"
	"github.com/comanda-pos/comanda/internal/domain/order"
)

// encodeDecimal writes a decimal as a raw JSON number, keeping the exact
// decimal representation on the wire instead of a binary float approximation.
func encodeDecimal(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.String()))
}

// writeJSON encodes the body with fn and writes it with the given status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, fn func(e *jx.Encoder)) {
	var e jx.Encoder
	fn(&e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(e.Bytes()); err != nil {
		zctx.From(r.Context()).Debug("write response", zap.Error(err))
	}
}

func encodeOrder(e *jx.Encoder, o order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("subtotal")
	encodeDecimal(e, o.Subtotal)
	e.FieldStart("total")
	encodeDecimal(e, o.Total)
	e.ObjEnd()
}

func encodeTotals(e *jx.Encoder, t order.OrderTotals) {
	e.ObjStart()
	e.FieldStart("subtotal")
	encodeDecimal(e, t.Subtotal)
	e.FieldStart("total")
	encodeDecimal(e, t.Total)
	e.ObjEnd()
}

func encodeLineItem(e *jx.Encoder, li order.LineItem) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(li.ID)
	e.FieldStart("orderId")
	e.Str(li.OrderID)
	e.FieldStart("menuItemId")
	e.Str(li.MenuItemID)
	e.FieldStart("quantity")
	e.Int(li.Quantity)
	e.FieldStart("unitPrice")
	encodeDecimal(e, li.UnitPrice)
	e.FieldStart("totalPrice")
	encodeDecimal(e, li.TotalPrice)
	if li.Notes != "" {
		e.FieldStart("notes")
		e.Str(li.Notes)
	}
	e.ObjEnd()
}

func encodeAddon(e *jx.Encoder, a order.AddonAssignment) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(a.ID)
	e.FieldStart("addonId")
	e.Str(a.AddonID)
	e.FieldStart("quantity")
	e.Int(a.Quantity)
	e.FieldStart("unitPrice")
	encodeDecimal(e, a.UnitPrice)
	e.FieldStart("totalPrice")
	encodeDecimal(e, a.TotalPrice)
	e.ObjEnd()
}

func encodeAddons(e *jx.Encoder, addons []order.AddonAssignment) {
	e.ArrStart()
	for _, a := range addons {
		encodeAddon(e, a)
	}
	e.ArrEnd()
}

// encodeMutationResult renders the caller-facing success shape:
// {lineItem, addons, order: {subtotal, total}}.
func encodeMutationResult(e *jx.Encoder, res *order.MutationResult) {
	e.ObjStart()
	if res.LineItem != nil {
		e.FieldStart("lineItem")
		encodeLineItem(e, *res.LineItem)
		e.FieldStart("addons")
		encodeAddons(e, res.Addons)
	}
	e.FieldStart("order")
	encodeTotals(e, res.Order)
	e.ObjEnd()
}

func encodeOrderView(e *jx.Encoder, view *order.OrderView) {
	e.ObjStart()
	e.FieldStart("order")
	encodeOrder(e, view.Order)
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range view.Items {
		e.ObjStart()
		e.FieldStart("lineItem")
		encodeLineItem(e, it.LineItem)
		e.FieldStart("addons")
		encodeAddons(e, it.Addons)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

func encodeMenuItem(e *jx.Encoder, item catalog.MenuItem) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(item.ID)
	e.FieldStart("name")
	e.Str(item.Name)
	e.FieldStart("price")
	encodeDecimal(e, item.Price)
	e.FieldStart("category")
	e.Str(item.Category)
	e.FieldStart("active")
	e.Bool(item.Active)
	e.ObjEnd()
}

func encodeCatalogAddon(e *jx.Encoder, a catalog.Addon) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(a.ID)
	e.FieldStart("name")
	e.Str(a.Name)
	e.FieldStart("price")
	encodeDecimal(e, a.Price)
	e.FieldStart("active")
	e.Bool(a.Active)
	e.ObjEnd()
}

func encodeStockUnit(e *jx.Encoder, u inventory.StockUnit) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(u.ID)
	e.FieldStart("name")
	e.Str(u.Name)
	e.FieldStart("quantity")
	encodeDecimal(e, u.Quantity)
	e.FieldStart("unit")
	e.Str(u.Unit)
	e.ObjEnd()
}
