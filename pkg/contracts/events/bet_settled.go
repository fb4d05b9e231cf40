package events

import "time"

// Evento emitido para cada aposta resolvida pelo fluxo de resultado.
type BetSettled struct {
	BetID       string    `json:"betId"`
	UserID      string    `json:"userId"`
	GameID      string    `json:"gameId"`
	Status      string    `json:"status"` // "won" | "lost"
	PayoutCents int64     `json:"payoutCents,omitempty"`
	Ts          time.Time `json:"ts"`
}
