//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
)

func TestIdempotency_ReplayCreateOrder(t *testing.T) {
	key := uuid.NewString()
	req := orderRequest{
		CustomerID: testCustomerID,
		Items:      []orderItemRequest{{ProductID: productID(t, "WIDGET-STD"), Qty: 1}},
	}

	resp := doPostWithKey(t, "/api/v1/orders", req, key)
	first := decodeJSON[createdResponse](t, resp)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first request: expected 201, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Idempotency-Replayed") != "" {
		t.Error("first response must not be marked replayed")
	}

	resp = doPostWithKey(t, "/api/v1/orders", req, key)
	defer resp.Body.Close()
	second := decodeJSON[createdResponse](t, resp)

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("replay: expected 201, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Idempotency-Replayed") != "true" {
		t.Error("replay response missing Idempotency-Replayed header")
	}
	if second.ID != first.ID {
		t.Fatalf("replay created a second order: %s vs %s", second.ID, first.ID)
	}
}

func TestIdempotency_HashMismatch(t *testing.T) {
	key := uuid.NewString()
	std := productID(t, "WIDGET-STD")

	resp := doPostWithKey(t, "/api/v1/orders", orderRequest{
		CustomerID: testCustomerID,
		Items:      []orderItemRequest{{ProductID: std, Qty: 1}},
	}, key)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first request: expected 201, got %d", resp.StatusCode)
	}

	// Same key, different payload.
	resp = doPostWithKey(t, "/api/v1/orders", orderRequest{
		CustomerID: testCustomerID,
		Items:      []orderItemRequest{{ProductID: std, Qty: 2}},
	}, key)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestIdempotency_InvalidKey(t *testing.T) {
	resp := doPostWithKey(t, "/api/v1/orders", orderRequest{
		CustomerID: testCustomerID,
		Items:      []orderItemRequest{{ProductID: productID(t, "WIDGET-STD"), Qty: 1}},
	}, "not-a-uuid")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestIdempotency_ReplaysErrorResponses(t *testing.T) {
	key := uuid.NewString()
	req := orderRequest{CustomerID: testCustomerID, Items: []orderItemRequest{}}

	resp := doPostWithKey(t, "/api/v1/orders", req, key)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("first request: expected 400, got %d", resp.StatusCode)
	}

	// 4xx outcomes are final, so the retry replays the stored response.
	resp = doPostWithKey(t, "/api/v1/orders", req, key)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("replay: expected 400, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Idempotency-Replayed") != "true" {
		t.Error("replay response missing Idempotency-Replayed header")
	}
}
