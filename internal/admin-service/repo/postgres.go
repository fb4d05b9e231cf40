package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Postgres implementa operações administrativas sobre jogos/times/ligas.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

var (
	ErrNotFound     = errors.New("not found")
	ErrGameFinished = errors.New("game already finished")
	// Jogo finalizado não aceita resultado diferente do gravado: não existe
	// fluxo de correção
	ErrResultMismatch = errors.New("game finished with a different result")
)

// Game é a visão administrativa de um jogo.
type Game struct {
	ID        string
	LeagueID  string
	HomeTeam  string
	AwayTeam  string
	KickoffAt time.Time
	Status    string
	Result    string
	HomeScore *int
	AwayScore *int
	IsPremium bool
}

// FinishGame grava resultado e placar e fecha o jogo. Condicional ao status
// não ser finished: chegadas simultâneas disputam esta única transição.
// Reenvio com o mesmo resultado devolve alreadyFinished=true sem alterar
// nada: a resolução de apostas é idempotente e pode ser reprocessada pra
// pegar apostas que ficaram active numa falha parcial. Resultado diferente
// é ErrResultMismatch.
func (p *Postgres) FinishGame(ctx context.Context, gameID, result string, homeScore, awayScore int) (alreadyFinished bool, err error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE games SET status='finished', result=$2, home_score=$3, away_score=$4, updated_at=NOW()
		WHERE id=$1 AND status <> 'finished'`, gameID, result, homeScore, awayScore)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 1 {
		return false, nil
	}

	var stored string
	err = p.db.QueryRowContext(ctx, `
		SELECT result FROM games WHERE id=$1`, gameID).Scan(&stored)
	if err == sql.ErrNoRows {
		return false, ErrNotFound
	}
	if err != nil {
		return false, err
	}
	if stored != result {
		return false, ErrResultMismatch
	}
	return true, nil
}

// MarkLive transiciona o jogo de upcoming pra live; apostas fecham junto,
// o placement só aceita jogos upcoming. Idempotente pra jogo já live; jogo
// finalizado não volta.
func (p *Postgres) MarkLive(ctx context.Context, gameID string) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE games SET status='live', updated_at=NOW()
		WHERE id=$1 AND status='upcoming'`, gameID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var status string
	err = p.db.QueryRowContext(ctx, `
		SELECT status FROM games WHERE id=$1`, gameID).Scan(&status)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if status == "live" {
		return nil
	}
	return ErrGameFinished
}

// CreateGame insere um jogo com odds fixas, status upcoming.
func (p *Postgres) CreateGame(ctx context.Context, leagueID, homeTeamID, awayTeamID string, kickoffAt time.Time, oddsHome, oddsDraw, oddsAway float64, isPremium bool) (string, error) {
	id := uuid.NewString()
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO games (id, league_id, home_team_id, away_team_id, kickoff_at, odds_home, odds_draw, odds_away, status, result, is_premium)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,'upcoming','pending',$9)`,
		id, leagueID, homeTeamID, awayTeamID, kickoffAt, oddsHome, oddsDraw, oddsAway, isPremium)
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListGames retorna todos os jogos com nomes dos times.
func (p *Postgres) ListGames(ctx context.Context) ([]Game, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT g.id, g.league_id, ht.name, at.name, g.kickoff_at, g.status, g.result,
		       g.home_score, g.away_score, g.is_premium
		FROM games g
		JOIN teams ht ON ht.id = g.home_team_id
		JOIN teams at ON at.id = g.away_team_id
		ORDER BY g.kickoff_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Game
	for rows.Next() {
		var g Game
		var hs, as sql.NullInt64
		if err := rows.Scan(&g.ID, &g.LeagueID, &g.HomeTeam, &g.AwayTeam, &g.KickoffAt, &g.Status, &g.Result, &hs, &as, &g.IsPremium); err != nil {
			return nil, err
		}
		if hs.Valid {
			v := int(hs.Int64)
			g.HomeScore = &v
		}
		if as.Valid {
			v := int(as.Int64)
			g.AwayScore = &v
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// CreateTeam insere um time numa liga.
func (p *Postgres) CreateTeam(ctx context.Context, name, leagueID string) (string, error) {
	id := uuid.NewString()
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO teams (id, name, league_id) VALUES ($1,$2,$3)`, id, name, leagueID)
	if err != nil {
		return "", err
	}
	return id, nil
}

// CreateLeague insere uma liga.
func (p *Postgres) CreateLeague(ctx context.Context, name, country string) (string, error) {
	id := uuid.NewString()
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO leagues (id, name, country) VALUES ($1,$2,$3)`, id, name, country)
	if err != nil {
		return "", err
	}
	return id, nil
}
