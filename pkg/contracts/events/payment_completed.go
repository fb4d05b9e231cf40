package events

import "time"

// Evento emitido após a liquidação de uma transação de pagamento.
type PaymentCompleted struct {
	Reference   string    `json:"reference"` // id local da payment_transaction
	UserID      string    `json:"userId"`
	Type        string    `json:"type"` // "deposit" | "subscription"
	AmountCents int64     `json:"amountCents"`
	Ts          time.Time `json:"ts"`
}
