package repo

import "time"

// Bet é o modelo persistido no Postgres. Odds e ganho potencial são
// congelados na criação e nunca recalculados.
type Bet struct {
	ID                     string
	UserID                 string
	GameID                 string
	Selection              string // home_win | draw | away_win
	StakeCents             int64
	Odds                   float64
	PotentialWinningsCents int64
	Status                 string // active | won | lost
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Game é a visão de um jogo com odds fixas 1x2.
type Game struct {
	ID        string
	LeagueID  string
	HomeTeam  string
	AwayTeam  string
	KickoffAt time.Time
	OddsHome  float64
	OddsDraw  float64
	OddsAway  float64
	Status    string // upcoming | live | finished
	Result    string // pending | home_win | draw | away_win
	IsPremium bool
}

// Profile é a visão de perfil usada por saldo e acesso diário.
type Profile struct {
	ID                      string     `json:"id"`
	WalletBalanceCents      int64      `json:"walletBalanceCents"`
	DailyAccessGrantedUntil *time.Time `json:"dailyAccessGrantedUntil,omitempty"`
}

// HasDailyAccess informa se o acesso premium está vigente no instante dado.
func (p *Profile) HasDailyAccess(now time.Time) bool {
	return p.DailyAccessGrantedUntil != nil && now.Before(*p.DailyAccessGrantedUntil)
}
