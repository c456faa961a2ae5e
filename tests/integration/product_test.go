//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListProducts(t *testing.T) {
	resp := doGet(t, "/api/v1/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != seededProductCount {
		t.Fatalf("got %d products, want %d", len(products), seededProductCount)
	}

	for _, p := range products {
		if p.ID == "" || p.Name == "" || p.Sku == "" || p.Price == "" {
			t.Errorf("incomplete product: %+v", p)
		}
	}
}
