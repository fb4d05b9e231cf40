package dto

type InitiateDepositRequest struct {
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amountCents"`
	PhoneNumber string `json:"phone"`
}

type InitiateSubscriptionRequest struct {
	UserID      string `json:"userId"`
	PhoneNumber string `json:"phone"`
}

// Corpo de IPN do PesaPal; campos alternativos cobrem variações entre
// versões do provedor.
type IPNNotification struct {
	OrderTrackingID        string `json:"OrderTrackingId"`
	OrderMerchantReference string `json:"OrderMerchantReference"`
	TransactionID          string `json:"transaction_id"`
	Reference              string `json:"reference"`
	Status                 string `json:"status"`
}

// OrderID devolve o id de gateway presente, qualquer que seja o campo.
func (n *IPNNotification) OrderID() string {
	if n.OrderTrackingID != "" {
		return n.OrderTrackingID
	}
	return n.TransactionID
}

// LocalReference devolve a referência local presente, qualquer que seja o campo.
func (n *IPNNotification) LocalReference() string {
	if n.OrderMerchantReference != "" {
		return n.OrderMerchantReference
	}
	return n.Reference
}
