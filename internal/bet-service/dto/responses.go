package dto

import "time"

type PlaceBetResponse struct {
	BetID                  string  `json:"betId"`
	Status                 string  `json:"status"`
	Odds                   float64 `json:"odds"`
	PotentialWinningsCents int64   `json:"potentialWinningsCents"`
	NewBalanceCents        int64   `json:"newBalanceCents,omitempty"`
}

type BetView struct {
	BetID                  string    `json:"betId"`
	GameID                 string    `json:"gameId"`
	Selection              string    `json:"selection"`
	StakeCents             int64     `json:"stakeCents"`
	Odds                   float64   `json:"odds"`
	PotentialWinningsCents int64     `json:"potentialWinningsCents"`
	Status                 string    `json:"status"`
	CreatedAt              time.Time `json:"createdAt"`
}

type GameView struct {
	GameID    string    `json:"gameId"`
	LeagueID  string    `json:"leagueId"`
	HomeTeam  string    `json:"homeTeam"`
	AwayTeam  string    `json:"awayTeam"`
	KickoffAt time.Time `json:"kickoffAt"`
	OddsHome  float64   `json:"oddsHome"`
	OddsDraw  float64   `json:"oddsDraw"`
	OddsAway  float64   `json:"oddsAway"`
	IsPremium bool      `json:"isPremium"`
}
