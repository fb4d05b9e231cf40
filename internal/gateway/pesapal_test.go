package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// servidor fake da API PesaPal v3 pros testes de cliente
func pesapalTestServer(t *testing.T, statusDesc string, submitted *map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/api/Auth/RequestToken", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("token: metodo %s", r.Method)
		}
		var creds map[string]string
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds["consumer_key"] != "ck" || creds["consumer_secret"] != "cs" {
			t.Errorf("token: credenciais erradas: %v", creds)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok123"})
	})

	mux.HandleFunc("/api/Transactions/SubmitOrderRequest", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok123" {
			t.Errorf("submit: Authorization = %q", got)
		}
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if submitted != nil {
			*submitted = payload
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"order_tracking_id": "trk-1",
			"redirect_url":      "https://pay.example/checkout/trk-1",
		})
	})

	mux.HandleFunc("/api/Transactions/GetTransactionStatus", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("orderTrackingId"); got != "trk-1" {
			t.Errorf("status: orderTrackingId = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"order_tracking_id":          "trk-1",
			"payment_status_description": statusDesc,
		})
	})

	return httptest.NewServer(mux)
}

func TestPesapalSubmitOrder(t *testing.T) {
	var payload map[string]any
	srv := pesapalTestServer(t, "PENDING", &payload)
	defer srv.Close()

	p := NewPesapal(PesapalConfig{BaseURL: srv.URL, ConsumerKey: "ck", ConsumerSecret: "cs"})

	order, err := p.SubmitOrder(context.Background(), OrderRequest{
		Reference:   "DEP_u1_1700000000000",
		AmountCents: 50000,
		Currency:    "KES",
		PhoneNumber: "+254700000000",
		Description: "Deposit",
		CallbackURL: "http://localhost:8084/payments/callback",
	})
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	if order.OrderTrackingID != "trk-1" {
		t.Fatalf("OrderTrackingID = %q", order.OrderTrackingID)
	}
	if order.CheckoutURL != "https://pay.example/checkout/trk-1" {
		t.Fatalf("CheckoutURL = %q", order.CheckoutURL)
	}

	// o provedor recebe o valor decimal, não centavos
	if got := payload["amount"]; got != 500.0 {
		t.Errorf("amount enviado = %v, esperava 500", got)
	}
	if got := payload["id"]; got != "DEP_u1_1700000000000" {
		t.Errorf("id enviado = %v", got)
	}
	if got := payload["currency"]; got != "KES" {
		t.Errorf("currency enviada = %v", got)
	}
}

func TestPesapalQueryStatusMapping(t *testing.T) {
	cases := []struct {
		provider string
		want     Status
	}{
		{"COMPLETED", StatusCompleted},
		{"PENDING", StatusPending},
		{"FAILED", StatusFailed},
		{"CANCELLED", StatusFailed},
		{"INVALID", StatusFailed},
		// status novo do provedor nunca pode virar completed
		{"SOMETHING_NEW", StatusPending},
		{"", StatusPending},
	}

	for _, c := range cases {
		srv := pesapalTestServer(t, c.provider, nil)
		p := NewPesapal(PesapalConfig{BaseURL: srv.URL, ConsumerKey: "ck", ConsumerSecret: "cs"})

		got, err := p.QueryStatus(context.Background(), "trk-1")
		srv.Close()
		if err != nil {
			t.Fatalf("QueryStatus(%q): %v", c.provider, err)
		}
		if got != c.want {
			t.Errorf("QueryStatus(%q) = %q, esperava %q", c.provider, got, c.want)
		}
	}
}

func TestPesapalAuthHTMLResponse(t *testing.T) {
	// endpoint de token devolvendo HTML no lugar de JSON
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>maintenance</body></html>"))
	}))
	defer srv.Close()

	p := NewPesapal(PesapalConfig{BaseURL: srv.URL, ConsumerKey: "ck", ConsumerSecret: "cs"})

	_, err := p.SubmitOrder(context.Background(), OrderRequest{Reference: "DEP_u1_1", AmountCents: 10000, Currency: "KES"})
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("esperava AuthError, veio %v", err)
	}
}

func TestPesapalAuthRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := NewPesapal(PesapalConfig{BaseURL: srv.URL, ConsumerKey: "bad", ConsumerSecret: "bad"})

	_, err := p.QueryStatus(context.Background(), "trk-1")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("esperava AuthError, veio %v", err)
	}
}

func TestPesapalSubmitOrderGatewayError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/Auth/RequestToken", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok123"})
	})
	mux.HandleFunc("/api/Transactions/SubmitOrderRequest", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":"duplicate_id"}}`, http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := NewPesapal(PesapalConfig{BaseURL: srv.URL, ConsumerKey: "ck", ConsumerSecret: "cs"})

	_, err := p.SubmitOrder(context.Background(), OrderRequest{Reference: "DEP_u1_1", AmountCents: 10000, Currency: "KES"})
	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("esperava GatewayError, veio %v", err)
	}
	if gwErr.HTTPStatus != http.StatusInternalServerError {
		t.Errorf("HTTPStatus = %d", gwErr.HTTPStatus)
	}
}
