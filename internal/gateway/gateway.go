package gateway

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/radieske/betwise-platform/internal/shared/config"
)

// Status é o estado de um pedido visto pelo gateway, já normalizado.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// OrderRequest descreve a intenção de pagamento enviada ao provedor.
type OrderRequest struct {
	Reference   string // id local da payment_transaction, único globalmente
	AmountCents int64
	Currency    string // "KES"
	PhoneNumber string
	Description string
	CallbackURL string
}

// Order é a resposta do provedor a um pedido aceito.
type Order struct {
	OrderTrackingID string
	CheckoutURL     string
}

// Client abstrai um provedor de pagamento externo.
// Stateless: nenhum estado local é criado por estas chamadas.
type Client interface {
	SubmitOrder(ctx context.Context, req OrderRequest) (Order, error)
	QueryStatus(ctx context.Context, orderTrackingID string) (Status, error)
}

// AuthError indica credenciais rejeitadas ou resposta de token inválida.
// O provedor já devolveu HTML/texto onde se esperava JSON; não assumir formato.
type AuthError struct {
	Detail string
}

func (e *AuthError) Error() string { return "gateway auth: " + e.Detail }

// GatewayError carrega o payload bruto do provedor para diagnóstico.
type GatewayError struct {
	HTTPStatus int
	RawBody    string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway http %d: %s", e.HTTPStatus, e.RawBody)
}

// New seleciona a implementação de gateway conforme a configuração.
func New(cfg config.Config) (Client, error) {
	switch cfg.PaymentProvider {
	case "pesapal":
		return NewPesapal(PesapalConfig{
			BaseURL:        cfg.PesapalBaseURL,
			ConsumerKey:    cfg.PesapalConsumerKey,
			ConsumerSecret: cfg.PesapalConsumerSecret,
		}), nil
	case "paypal":
		return NewPaypal(PaypalConfig{
			BaseURL:  cfg.PaypalBaseURL,
			ClientID: cfg.PaypalClientID,
			Secret:   cfg.PaypalSecret,
		}), nil
	case "simulator":
		return NewSimulator(cfg.CallbackBaseURL+"/payments/callback", cfg.SimulatorDelay), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.PaymentProvider)
	}
}

// amountValue converte centavos para o valor decimal esperado pelos provedores.
func amountValue(cents int64) float64 {
	f, _ := decimal.New(cents, -2).Float64()
	return f
}

// amountString formata centavos como "500.00" para provedores que exigem string.
func amountString(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
