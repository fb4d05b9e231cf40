package gateway

import (
	"context"
	"net/url"
	"time"
)

// Simulator é a variante de desenvolvimento: não fala com provedor nenhum,
// gera ids determinísticos e devolve um checkout que volta direto pro
// callback do payment-service.
type Simulator struct {
	callbackURL string
	delay       time.Duration
}

func NewSimulator(callbackURL string, delay time.Duration) *Simulator {
	return &Simulator{callbackURL: callbackURL, delay: delay}
}

func (s *Simulator) SubmitOrder(ctx context.Context, o OrderRequest) (Order, error) {
	// Latência artificial pra exercitar o estado "processando" da UI
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return Order{}, ctx.Err()
	}

	trackingID := "SIM_" + o.Reference

	q := url.Values{}
	q.Set("OrderTrackingId", trackingID)
	q.Set("OrderMerchantReference", o.Reference)
	checkout := s.callbackURL + "?" + q.Encode()

	return Order{OrderTrackingID: trackingID, CheckoutURL: checkout}, nil
}

// QueryStatus do simulador considera todo pedido submetido como pago.
func (s *Simulator) QueryStatus(ctx context.Context, orderTrackingID string) (Status, error) {
	return StatusCompleted, nil
}
