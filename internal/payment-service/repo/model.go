package repo

import "time"

// Tipos de pagamento suportados. Liquidação decide o efeito por este campo.
const (
	TypeDeposit      = "deposit"
	TypeSubscription = "subscription"
)

// Status locais de uma payment_transaction. Transições são monótonas:
// pending -> completed | failed, e terminal nunca volta.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// PaymentTransaction é o registro local de uma tentativa de pagamento,
// correlacionado com o pedido no gateway.
type PaymentTransaction struct {
	ID             string // referência gerada na iniciação (DEP_.../SUB_...)
	UserID         string
	Type           string
	AmountCents    int64
	Status         string
	GatewayOrderID string
	PhoneNumber    string
	Description    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Terminal informa se o registro já chegou num estado final.
func (t *PaymentTransaction) Terminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}
