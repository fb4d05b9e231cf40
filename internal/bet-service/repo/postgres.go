package repo

import (
	"context"
	"database/sql"
	"errors"
	"math"

	"github.com/google/uuid"
)

// Postgres implementa operações de persistência de apostas e perfil.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
	ErrGameUnavailable   = errors.New("game not open for betting")
)

// PlaceBet cria a aposta e debita o stake da carteira na mesma transação.
// As odds vêm do jogo no banco, nunca do cliente, e ficam congeladas na
// linha da aposta junto com o ganho potencial.
func (p *Postgres) PlaceBet(ctx context.Context, userID, gameID, selection string, stakeCents int64) (*Bet, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Lock pessimista na carteira: débito concorrente não pode ler o mesmo
	// saldo pré-mutação
	var balance int64
	err = tx.QueryRowContext(ctx, `
		SELECT wallet_balance_cents FROM profiles WHERE id=$1 FOR UPDATE`, userID).Scan(&balance)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if balance < stakeCents {
		return nil, ErrInsufficientFunds
	}

	var status string
	var oddsHome, oddsDraw, oddsAway float64
	err = tx.QueryRowContext(ctx, `
		SELECT status, odds_home, odds_draw, odds_away FROM games WHERE id=$1`, gameID).
		Scan(&status, &oddsHome, &oddsDraw, &oddsAway)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if status != "upcoming" {
		return nil, ErrGameUnavailable
	}

	var odds float64
	switch selection {
	case "home_win":
		odds = oddsHome
	case "draw":
		odds = oddsDraw
	case "away_win":
		odds = oddsAway
	}

	b := &Bet{
		ID:                     uuid.NewString(),
		UserID:                 userID,
		GameID:                 gameID,
		Selection:              selection,
		StakeCents:             stakeCents,
		Odds:                   odds,
		PotentialWinningsCents: int64(math.Round(float64(stakeCents) * odds)),
		Status:                 "active",
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE profiles SET wallet_balance_cents = wallet_balance_cents - $1, updated_at=NOW()
		WHERE id=$2`, stakeCents, userID); err != nil {
		return nil, err
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO bets (id, user_id, game_id, selection, stake_cents, odds, potential_winnings_cents, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,'active')`,
		b.ID, b.UserID, b.GameID, b.Selection, b.StakeCents, b.Odds, b.PotentialWinningsCents); err != nil {
		return nil, err
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO transactions(id, user_id, type, amount_cents, description)
		VALUES($1,$2,'bet',$3,$4)`,
		uuid.NewString(), userID, stakeCents, "Stake on bet "+b.ID); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return b, nil
}

// GetBet retorna uma aposta pelo id.
func (p *Postgres) GetBet(ctx context.Context, betID string) (*Bet, error) {
	var b Bet
	err := p.db.QueryRowContext(ctx, `
		SELECT id, user_id, game_id, selection, stake_cents, odds, potential_winnings_cents, status, created_at, updated_at
		FROM bets WHERE id=$1`, betID).
		Scan(&b.ID, &b.UserID, &b.GameID, &b.Selection, &b.StakeCents, &b.Odds, &b.PotentialWinningsCents, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListByUser retorna as apostas do usuário, mais recentes primeiro.
func (p *Postgres) ListByUser(ctx context.Context, userID string, limit int) ([]Bet, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, game_id, selection, stake_cents, odds, potential_winnings_cents, status, created_at, updated_at
		FROM bets WHERE user_id=$1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Bet
	for rows.Next() {
		var b Bet
		if err := rows.Scan(&b.ID, &b.UserID, &b.GameID, &b.Selection, &b.StakeCents, &b.Odds, &b.PotentialWinningsCents, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetProfile retorna saldo e vigência do acesso diário do usuário.
func (p *Postgres) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	var prof Profile
	var until sql.NullTime
	err := p.db.QueryRowContext(ctx, `
		SELECT id, wallet_balance_cents, daily_access_granted_until
		FROM profiles WHERE id=$1`, userID).Scan(&prof.ID, &prof.WalletBalanceCents, &until)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if until.Valid {
		prof.DailyAccessGrantedUntil = &until.Time
	}
	return &prof, nil
}

// ListUpcomingGames retorna os jogos abertos pra aposta. includePremium
// controla se os jogos "sure odds" entram na listagem.
func (p *Postgres) ListUpcomingGames(ctx context.Context, includePremium bool) ([]Game, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT g.id, g.league_id, ht.name, at.name, g.kickoff_at,
		       g.odds_home, g.odds_draw, g.odds_away, g.status, g.result, g.is_premium
		FROM games g
		JOIN teams ht ON ht.id = g.home_team_id
		JOIN teams at ON at.id = g.away_team_id
		WHERE g.status = 'upcoming' AND (g.is_premium = FALSE OR $1)
		ORDER BY g.kickoff_at`, includePremium)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Game
	for rows.Next() {
		var g Game
		if err := rows.Scan(&g.ID, &g.LeagueID, &g.HomeTeam, &g.AwayTeam, &g.KickoffAt,
			&g.OddsHome, &g.OddsDraw, &g.OddsAway, &g.Status, &g.Result, &g.IsPremium); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
