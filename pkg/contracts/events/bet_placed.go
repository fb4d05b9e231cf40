package events

type BetPlaced struct {
	BetID                  string  `json:"bet_id"`
	UserID                 string  `json:"user_id"`
	GameID                 string  `json:"game_id"`
	Selection              string  `json:"selection"`
	StakeCents             int64   `json:"stake_cents"`
	Odds                   float64 `json:"odds"`
	PotentialWinningsCents int64   `json:"potential_winnings_cents"`
	TsUnixMs               int64   `json:"ts_unix_ms"`
}
