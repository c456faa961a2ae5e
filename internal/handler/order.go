package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/avetra/ordersvc/internal/domain/kernel"
	"github.com/avetra/ordersvc/internal/domain/order"
)

type orderItemRequest struct {
	productID kernel.ProductID
	qty       kernel.Quantity
}

type createOrderRequest struct {
	customerID int64
	items      []orderItemRequest
}

// CreateOrder handles POST /api/v1/orders. Unit prices are sourced from the
// catalog at creation time, never from the client.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCreateOrder(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()

	ids := make([]kernel.ProductID, len(req.items))
	for i, it := range req.items {
		ids[i] = it.productID
	}
	catalog, err := h.products.GetByIDs(ctx, ids)
	if err != nil {
		writeError(w, r, err)
		return
	}
	prices := make(map[kernel.ProductID]kernel.UnitPrice, len(catalog))
	for _, p := range catalog {
		prices[p.ID] = p.Price
	}

	items := make([]order.ItemData, len(req.items))
	for i, it := range req.items {
		price, ok := prices[it.productID]
		if !ok {
			writeError(w, r, errors.Wrapf(order.ErrUnknownProduct, "product %s", it.productID))
			return
		}
		items[i] = order.ItemData{
			ProductID: it.productID,
			Qty:       it.qty,
			UnitPrice: price,
		}
	}

	id, err := h.orders.CreateOrder(ctx, req.customerID, items)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("id")
	e.Str(id.String())
	e.ObjEnd()
	writeJSON(w, http.StatusCreated, &e)
}

// GetOrder handles GET /api/v1/orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := kernel.ParseOrderID(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	rm, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, encodeOrder(rm))
}

// ConfirmOrder handles POST /api/v1/orders/{id}/confirm.
func (h *Handler) ConfirmOrder(w http.ResponseWriter, r *http.Request) {
	h.transitionOrder(w, r, order.StatusConfirmed, h.orders.ConfirmOrder)
}

// CancelOrder handles POST /api/v1/orders/{id}/cancel.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	h.transitionOrder(w, r, order.StatusCancelled, h.orders.CancelOrder)
}

func (h *Handler) transitionOrder(
	w http.ResponseWriter,
	r *http.Request,
	target order.Status,
	transition func(ctx context.Context, id kernel.OrderID) error,
) {
	id, err := kernel.ParseOrderID(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := transition(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("id")
	e.Str(id.String())
	e.FieldStart("status")
	e.Str(string(target))
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

func decodeCreateOrder(r *http.Request) (createOrderRequest, error) {
	var req createOrderRequest

	d := jx.Decode(r.Body, 4096)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "customerId":
			v, err := d.Int64()
			if err != nil {
				return err
			}
			req.customerID = v
			return nil
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				it, err := decodeOrderItem(d)
				if err != nil {
					return err
				}
				req.items = append(req.items, it)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return createOrderRequest{}, asRequestError(err)
	}

	if req.customerID <= 0 {
		return createOrderRequest{}, badRequest("customerId is required")
	}
	return req, nil
}

func decodeOrderItem(d *jx.Decoder) (orderItemRequest, error) {
	var it orderItemRequest
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "productId":
			raw, err := d.Str()
			if err != nil {
				return err
			}
			id, err := kernel.ParseProductID(raw)
			if err != nil {
				return err
			}
			it.productID = id
			return nil
		case "qty":
			v, err := d.Int64()
			if err != nil {
				return err
			}
			qty, err := kernel.NewQuantity(v)
			if err != nil {
				return err
			}
			if qty.IsZero() {
				return badRequest("qty must be positive")
			}
			it.qty = qty
			return nil
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return orderItemRequest{}, err
	}
	if it.productID == "" {
		return orderItemRequest{}, badRequest("productId is required")
	}
	if it.qty.IsZero() {
		return orderItemRequest{}, badRequest("qty is required")
	}
	return it, nil
}

// asRequestError keeps already-classified errors as they are and downgrades
// raw JSON syntax errors to a 400.
func asRequestError(err error) error {
	if statusOf(err) != http.StatusInternalServerError {
		return err
	}
	return badRequest("invalid request body")
}

func encodeOrder(rm *order.ReadModel) *jx.Encoder {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("id")
	e.Str(rm.ID.String())
	e.FieldStart("customerId")
	e.Int64(rm.CustomerID)
	e.FieldStart("status")
	e.Str(string(rm.Status))
	e.FieldStart("statusTitle")
	e.Str(rm.StatusTitle)
	e.FieldStart("createdAt")
	e.Str(rm.CreatedAt.UTC().Format(time.RFC3339Nano))
	e.FieldStart("totalAmount")
	e.Str(rm.TotalAmount.String())
	e.FieldStart("items")
	e.ArrStart()
	for _, item := range rm.Items {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(item.ID.String())
		e.FieldStart("productId")
		e.Str(item.ProductID.String())
		e.FieldStart("productName")
		e.Str(item.ProductName)
		e.FieldStart("sku")
		e.Str(item.Sku)
		e.FieldStart("qty")
		e.Int64(item.Qty)
		e.FieldStart("unitPrice")
		e.Str(item.UnitPrice.String())
		e.FieldStart("totalPrice")
		e.Str(item.TotalPrice.String())
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
	return &e
}
