package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/jx"

	"github.com/avetra/ordersvc/internal/domain/kernel"
)

// CreateInventoryItem handles POST /api/v1/inventory.
func (h *Handler) CreateInventoryItem(w http.ResponseWriter, r *http.Request) {
	var (
		productID   kernel.ProductID
		warehouseID int32
		onHand      kernel.Quantity
	)

	d := jx.Decode(r.Body, 4096)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "productId":
			raw, err := d.Str()
			if err != nil {
				return err
			}
			productID, err = kernel.ParseProductID(raw)
			return err
		case "warehouseId":
			v, err := d.Int32()
			if err != nil {
				return err
			}
			warehouseID = v
			return nil
		case "onHand":
			v, err := d.Int64()
			if err != nil {
				return err
			}
			onHand, err = kernel.NewQuantity(v)
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		writeError(w, r, asRequestError(err))
		return
	}
	if productID == "" {
		writeError(w, r, badRequest("productId is required"))
		return
	}
	if warehouseID <= 0 {
		writeError(w, r, badRequest("warehouseId is required"))
		return
	}

	id, err := h.inventory.CreateItem(r.Context(), productID, warehouseID, onHand)
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

// GetInventoryItem handles GET /api/v1/inventory/{id}.
func (h *Handler) GetInventoryItem(w http.ResponseWriter, r *http.Request) {
	id, err := kernel.ParseInventoryItemID(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	item, err := h.inventory.GetItem(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("id")
	e.Str(item.ID.String())
	e.FieldStart("productId")
	e.Str(item.ProductID.String())
	e.FieldStart("warehouseId")
	e.Int32(item.WarehouseID)
	e.FieldStart("onHand")
	e.Int64(item.OnHand.Int64())
	e.FieldStart("reserved")
	e.Int64(item.Reserved.Int64())
	e.FieldStart("available")
	e.Int64(item.Available().Int64())
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

// ReceiveInventory handles POST /api/v1/inventory/{id}/receive.
func (h *Handler) ReceiveInventory(w http.ResponseWriter, r *http.Request) {
	h.mutateInventory(w, r, h.inventory.Receive)
}

// AdjustInventory handles POST /api/v1/inventory/{id}/adjust.
func (h *Handler) AdjustInventory(w http.ResponseWriter, r *http.Request) {
	h.mutateInventory(w, r, h.inventory.AdjustOnHand)
}

func (h *Handler) mutateInventory(
	w http.ResponseWriter,
	r *http.Request,
	mutate func(ctx context.Context, id kernel.InventoryItemID, qty kernel.Quantity) error,
) {
	id, err := kernel.ParseInventoryItemID(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var (
		qty kernel.Quantity
		set bool
	)
	d := jx.Decode(r.Body, 4096)
	err = d.Obj(func(d *jx.Decoder, key string) error {
		if key != "qty" {
			return d.Skip()
		}
		v, err := d.Int64()
		if err != nil {
			return err
		}
		qty, err = kernel.NewQuantity(v)
		set = err == nil
		return err
	})
	if err != nil {
		writeError(w, r, asRequestError(err))
		return
	}
	if !set {
		writeError(w, r, badRequest("qty is required"))
		return
	}

	if err := mutate(r.Context(), id, qty); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
