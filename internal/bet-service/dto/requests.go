package dto

type PlaceBetRequest struct {
	UserID     string `json:"userId"`
	GameID     string `json:"gameId"`
	Selection  string `json:"selection"` // home_win | draw | away_win
	StakeCents int64  `json:"stakeCents"`
}
