package api

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/comanda-pos/comanda/internal/domain/order"
)

// maxBodyBytes caps command request bodies; order-entry payloads are tiny.
const maxBodyBytes = 1 << 20

type addItemRequest struct {
	MenuItemID string
	Quantity   int
	UnitPrice  *decimal.Decimal
	Notes      string
	Addons     []order.AddonSelection
}

type quantityRequest struct {
	Quantity int
}

type attachAddonRequest struct {
	AddonID   string
	Quantity  int
	UnitPrice *decimal.Decimal
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read request body")
	}
	return body, nil
}

func decodeAddItem(r *http.Request) (addItemRequest, error) {
	var req addItemRequest
	body, err := readBody(r)
	if err != nil {
		return req, err
	}

	d := jx.DecodeBytes(body)
	err = d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "menuItemId":
			req.MenuItemID, err = d.Str()
			return err
		case "quantity":
			req.Quantity, err = d.Int()
			return err
		case "unitPrice":
			req.UnitPrice, err = decodePrice(d)
			return err
		case "notes":
			req.Notes, err = d.Str()
			return err
		case "addons":
			return d.Arr(func(d *jx.Decoder) error {
				sel, err := decodeAddonSelection(d)
				if err != nil {
					return err
				}
				req.Addons = append(req.Addons, sel)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	return req, err
}

func decodeQuantity(r *http.Request) (quantityRequest, error) {
	var req quantityRequest
	body, err := readBody(r)
	if err != nil {
		return req, err
	}

	d := jx.DecodeBytes(body)
	err = d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "quantity":
			req.Quantity, err = d.Int()
			return err
		default:
			return d.Skip()
		}
	})
	return req, err
}

func decodeAttachAddon(r *http.Request) (attachAddonRequest, error) {
	var req attachAddonRequest
	body, err := readBody(r)
	if err != nil {
		return req, err
	}

	d := jx.DecodeBytes(body)
	err = d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "addonId":
			req.AddonID, err = d.Str()
			return err
		case "quantity":
			req.Quantity, err = d.Int()
			return err
		case "unitPrice":
			req.UnitPrice, err = decodePrice(d)
			return err
		default:
			return d.Skip()
		}
	})
	return req, err
}

func decodeAddonSelection(d *jx.Decoder) (order.AddonSelection, error) {
	var sel order.AddonSelection
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "addonId":
			sel.AddonID, err = d.Str()
			return err
		case "quantity":
			sel.Quantity, err = d.Int()
			return err
		case "unitPrice":
			sel.UnitPrice, err = decodePrice(d)
			return err
		default:
			return d.Skip()
		}
	})
	return sel, err
}

// decodePrice accepts a JSON number or string and parses it exactly; going
// through float64 here would defeat the decimal arithmetic downstream.
func decodePrice(d *jx.Decoder) (*decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return nil, err
		}
		raw = s
	case jx.Null:
		return nil, d.Null()
	default:
		num, err := d.Num()
		if err != nil {
			return nil, err
		}
		raw = num.String()
	}

	price, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "parse price %q", raw)
	}
	return &price, nil
}
