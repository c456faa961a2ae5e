package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

// ListProducts handles GET /api/v1/products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ArrStart()
	for _, p := range products {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(p.ID.String())
		e.FieldStart("name")
		e.Str(p.Name)
		e.FieldStart("sku")
		e.Str(p.Sku)
		e.FieldStart("price")
		e.Str(p.Price.String())
		e.ObjEnd()
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}
