package api

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/comanda-pos/comanda/internal/domain/inventory"
	"github.com/comanda-pos/comanda/internal/domain/order"
)

type apiError struct {
	status  int
	kind    string
	message string
	context [][2]string
}

// mapError translates the mutation error taxonomy into an HTTP response
// shape. Anything outside the taxonomy is reported as a persistence failure
// without leaking internals to the client.
func mapError(err error) apiError {
	var (
		insufficient *inventory.InsufficientStockError
		notFound     *order.ReferenceNotFoundError
		inactive     *order.InactiveReferenceError
		notOpen      *order.OrderNotOpenError
	)
	switch {
	case errors.As(err, &insufficient):
		return apiError{
			status:  http.StatusConflict,
			kind:    "insufficient_stock",
			message: insufficient.Error(),
			context: [][2]string{
				{"stockUnitId", insufficient.StockUnitID},
				{"required", insufficient.Required.String()},
				{"available", insufficient.Available.String()},
			},
		}
	case errors.Is(err, order.ErrConcurrentModification):
		return apiError{
			status:  http.StatusConflict,
			kind:    "concurrent_modification",
			message: "order was modified concurrently, retry the request",
		}
	case errors.As(err, &notOpen):
		return apiError{
			status:  http.StatusConflict,
			kind:    "order_not_open",
			message: notOpen.Error(),
			context: [][2]string{
				{"orderId", notOpen.OrderID},
				{"status", string(notOpen.Status)},
			},
		}
	case errors.As(err, &notFound):
		return apiError{
			status:  http.StatusNotFound,
			kind:    "reference_not_found",
			message: notFound.Error(),
			context: [][2]string{
				{"kind", string(notFound.Kind)},
				{"id", notFound.ID},
			},
		}
	case errors.As(err, &inactive):
		return apiError{
			status:  http.StatusUnprocessableEntity,
			kind:    "inactive_reference",
			message: inactive.Error(),
			context: [][2]string{
				{"kind", string(inactive.Kind)},
				{"id", inactive.ID},
			},
		}
	case errors.Is(err, order.ErrInvalidQuantity):
		return apiError{
			status:  http.StatusUnprocessableEntity,
			kind:    "invalid_quantity",
			message: "quantity must be a positive integer",
		}
	case errors.Is(err, order.ErrAddonAlreadyAttached):
		return apiError{
			status:  http.StatusConflict,
			kind:    "addon_already_attached",
			message: "add-on is already attached to this line item",
		}
	default:
		return apiError{
			status:  http.StatusInternalServerError,
			kind:    "persistence",
			message: "storage failure, the mutation was not applied",
		}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := mapError(err)
	if e.status >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
	}
	writeJSON(w, r, e.status, func(enc *jx.Encoder) {
		enc.ObjStart()
		enc.FieldStart("error")
		enc.ObjStart()
		enc.FieldStart("kind")
		enc.Str(e.kind)
		enc.FieldStart("message")
		enc.Str(e.message)
		if len(e.context) > 0 {
			enc.FieldStart("context")
			enc.ObjStart()
			for _, kv := range e.context {
				enc.FieldStart(kv[0])
				enc.Str(kv[1])
			}
			enc.ObjEnd()
		}
		enc.ObjEnd()
		enc.ObjEnd()
	})
}

// writeBadRequest reports malformed request payloads.
func writeBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	writeJSON(w, r, http.StatusBadRequest, func(enc *jx.Encoder) {
		enc.ObjStart()
		enc.FieldStart("error")
		enc.ObjStart()
		enc.FieldStart("kind")
		enc.Str("bad_request")
		enc.FieldStart("message")
		enc.Str(err.Error())
		enc.ObjEnd()
		enc.ObjEnd()
	})
}
