package chapa

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestInitializeReturnsCheckoutURL(t *testing.T) {
	var gotAuth string
	var gotBody initializeBody

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/transaction/initialize" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "success",
			"message": "Hosted Link",
			"data": map[string]any{
				"checkout_url": "https://checkout.chapa.co/checkout/payment/abc123",
			},
		})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, SecretKey: "sk-test"}, srv.Client())

	result, err := client.Initialize(context.Background(), InitializeRequest{
		Amount:      500,
		Currency:    "etb",
		Email:       "seller@example.com",
		FirstName:   "Abebe",
		LastName:    "Kebede",
		TxRef:       "subscription_1700000000000_42",
		CallbackURL: "https://talakkinash.com/payment/verify",
		Title:       "Subscription Payment",
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if result.CheckoutURL != "https://checkout.chapa.co/checkout/payment/abc123" {
		t.Fatalf("unexpected checkout url: %s", result.CheckoutURL)
	}
	if result.TxRef != "subscription_1700000000000_42" {
		t.Fatalf("unexpected tx_ref: %s", result.TxRef)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("unexpected auth header: %s", gotAuth)
	}
	if gotBody.Currency != "ETB" {
		t.Fatalf("currency must be upper-cased, got %s", gotBody.Currency)
	}
	if gotBody.TxRef != "subscription_1700000000000_42" {
		t.Fatalf("unexpected tx_ref in body: %s", gotBody.TxRef)
	}
}

func TestInitializeFailureIsGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "failed",
			"message": "Invalid currency",
		})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, SecretKey: "sk-test"}, srv.Client())

	_, err := client.Initialize(context.Background(), InitializeRequest{
		Amount:   500,
		Currency: "XXX",
		Email:    "seller@example.com",
		TxRef:    "subscription_1_42",
	})
	if !errors.Is(err, ErrGatewayRejected) {
		t.Fatalf("expected ErrGatewayRejected, got %v", err)
	}
}

func TestInitializeRespectsContextTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, SecretKey: "sk-test"}, srv.Client())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Initialize(ctx, InitializeRequest{
		Amount:   500,
		Currency: "ETB",
		Email:    "seller@example.com",
		TxRef:    "subscription_1_42",
	})
	if err == nil {
		t.Fatalf("expected timeout error")
	}
}
