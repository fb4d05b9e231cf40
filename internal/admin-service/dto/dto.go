package dto

import "time"

type SubmitResultRequest struct {
	Result    string `json:"result"` // home_win | draw | away_win
	HomeScore int    `json:"homeScore"`
	AwayScore int    `json:"awayScore"`
}

type CreateGameRequest struct {
	LeagueID   string    `json:"leagueId"`
	HomeTeamID string    `json:"homeTeamId"`
	AwayTeamID string    `json:"awayTeamId"`
	KickoffAt  time.Time `json:"kickoffAt"`
	OddsHome   float64   `json:"oddsHome"`
	OddsDraw   float64   `json:"oddsDraw"`
	OddsAway   float64   `json:"oddsAway"`
	IsPremium  bool      `json:"isPremium"`
}

type CreateTeamRequest struct {
	Name     string `json:"name"`
	LeagueID string `json:"leagueId"`
}

type CreateLeagueRequest struct {
	Name    string `json:"name"`
	Country string `json:"country"`
}

type CreatedResponse struct {
	ID string `json:"id"`
}

type GameStatusResponse struct {
	GameID string `json:"gameId"`
	Status string `json:"status"`
}

type GameView struct {
	GameID    string    `json:"gameId"`
	LeagueID  string    `json:"leagueId"`
	HomeTeam  string    `json:"homeTeam"`
	AwayTeam  string    `json:"awayTeam"`
	KickoffAt time.Time `json:"kickoffAt"`
	Status    string    `json:"status"`
	Result    string    `json:"result"`
	HomeScore *int      `json:"homeScore,omitempty"`
	AwayScore *int      `json:"awayScore,omitempty"`
	IsPremium bool      `json:"isPremium"`
}
