package dto

import "time"

type InitiateResponse struct {
	Success     bool   `json:"success"`
	Reference   string `json:"reference,omitempty"`
	CheckoutURL string `json:"checkoutUrl,omitempty"`
	Error       string `json:"error,omitempty"`
}

type IPNAck struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome,omitempty"`
}

type TransactionView struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Type        string    `json:"type"`
	AmountCents int64     `json:"amountCents"`
	Status      string    `json:"status"`
	PhoneNumber string    `json:"phoneNumber"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}
