//go:build integration

package integration

import (
	"net/http"
	"testing"
)

// TestInventoryAdmin walks the whole admin surface against SPRING-COIL, the
// one fixture product seeded without an inventory record. Steps share state,
// so they run as ordered subtests of a single test.
func TestInventoryAdmin(t *testing.T) {
	product := productID(t, "SPRING-COIL")

	var itemID string

	t.Run("create", func(t *testing.T) {
		resp := doPost(t, "/api/v1/inventory", inventoryRequest{
			ProductID:   product,
			WarehouseID: 7,
			OnHand:      10,
		})
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}
		itemID = decodeJSON[createdResponse](t, resp).ID
		if itemID == "" {
			t.Fatal("empty inventory item id")
		}
	})

	t.Run("duplicate product conflicts", func(t *testing.T) {
		resp := doPost(t, "/api/v1/inventory", inventoryRequest{
			ProductID:   product,
			WarehouseID: 7,
			OnHand:      5,
		})
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusConflict {
			t.Fatalf("expected 409, got %d", resp.StatusCode)
		}
	})

	t.Run("get", func(t *testing.T) {
		resp := doGet(t, "/api/v1/inventory/"+itemID)
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		item := decodeJSON[inventoryResponse](t, resp)
		if item.ProductID != product {
			t.Errorf("product: got %s, want %s", item.ProductID, product)
		}
		if item.OnHand != 10 || item.Reserved != 0 || item.Available != 10 {
			t.Errorf("stock: got on_hand=%d reserved=%d available=%d, want 10/0/10",
				item.OnHand, item.Reserved, item.Available)
		}
	})

	t.Run("receive", func(t *testing.T) {
		resp := doPost(t, "/api/v1/inventory/"+itemID+"/receive", map[string]int64{"qty": 15})
		resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", resp.StatusCode)
		}

		resp = doGet(t, "/api/v1/inventory/"+itemID)
		defer resp.Body.Close()
		if got := decodeJSON[inventoryResponse](t, resp).OnHand; got != 25 {
			t.Fatalf("on hand after receive: got %d, want 25", got)
		}
	})

	t.Run("adjust", func(t *testing.T) {
		resp := doPost(t, "/api/v1/inventory/"+itemID+"/adjust", map[string]int64{"qty": 4})
		resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", resp.StatusCode)
		}

		resp = doGet(t, "/api/v1/inventory/"+itemID)
		defer resp.Body.Close()
		if got := decodeJSON[inventoryResponse](t, resp).OnHand; got != 4 {
			t.Fatalf("on hand after adjust: got %d, want 4", got)
		}
	})

	t.Run("negative receive rejected", func(t *testing.T) {
		resp := doPost(t, "/api/v1/inventory/"+itemID+"/receive", map[string]int64{"qty": -1})
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})
}

func TestGetInventoryItem_NotFound(t *testing.T) {
	resp := doGet(t, "/api/v1/inventory/01HZZZZZZZZZZZZZZZZZZZZZZZ")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCreateInventoryItem_UnknownProduct(t *testing.T) {
	resp := doPost(t, "/api/v1/inventory", inventoryRequest{
		ProductID:   "01HZZZZZZZZZZZZZZZZZZZZZZZ",
		WarehouseID: 1,
		OnHand:      1,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
