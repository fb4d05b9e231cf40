package topics

const (
	// Pagamentos
	PaymentCompleted = "payment_completed"

	// Apostas
	BetPlaced  = "bet_placed"
	BetSettled = "bet_settled"
)
