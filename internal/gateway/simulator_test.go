package gateway

import (
	"context"
	"net/url"
	"testing"
	"time"
)

func TestSimulatorSubmitOrder(t *testing.T) {
	s := NewSimulator("http://localhost:8084/payments/callback", 0)

	order, err := s.SubmitOrder(context.Background(), OrderRequest{Reference: "DEP_u1_1700000000000", AmountCents: 10000, Currency: "KES"})
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	if order.OrderTrackingID != "SIM_DEP_u1_1700000000000" {
		t.Fatalf("OrderTrackingID = %q", order.OrderTrackingID)
	}

	// o checkout precisa voltar pro callback com os dois parâmetros
	u, err := url.Parse(order.CheckoutURL)
	if err != nil {
		t.Fatalf("CheckoutURL inválida: %v", err)
	}
	q := u.Query()
	if q.Get("OrderTrackingId") != order.OrderTrackingID {
		t.Errorf("OrderTrackingId = %q", q.Get("OrderTrackingId"))
	}
	if q.Get("OrderMerchantReference") != "DEP_u1_1700000000000" {
		t.Errorf("OrderMerchantReference = %q", q.Get("OrderMerchantReference"))
	}
}

func TestSimulatorSubmitOrderCancelled(t *testing.T) {
	s := NewSimulator("http://localhost:8084/payments/callback", time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.SubmitOrder(ctx, OrderRequest{Reference: "DEP_u1_1"}); err == nil {
		t.Fatal("esperava erro de contexto cancelado")
	}
}

func TestSimulatorQueryStatus(t *testing.T) {
	s := NewSimulator("http://localhost:8084/payments/callback", 0)

	got, err := s.QueryStatus(context.Background(), "SIM_DEP_u1_1")
	if err != nil {
		t.Fatalf("QueryStatus: %v", err)
	}
	if got != StatusCompleted {
		t.Fatalf("status = %q", got)
	}
}
