package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/radieske/betwise-platform/internal/settlement"
)

// Postgres implementa settlement.Store.
// Cada método roda numa transação única com lock pessimista na linha
// reclamada, pra duas entregas simultâneas não liquidarem duas vezes.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// claimPayment trava a payment_transaction e valida que ainda está pending.
func claimPayment(ctx context.Context, tx *sql.Tx, reference string) (userID, ptype string, amountCents int64, description string, err error) {
	var status string
	err = tx.QueryRowContext(ctx, `
		SELECT user_id, type, amount_cents, status, description
		FROM payment_transactions
		WHERE id=$1
		FOR UPDATE`, reference).Scan(&userID, &ptype, &amountCents, &status, &description)
	if err == sql.ErrNoRows {
		return "", "", 0, "", settlement.ErrNotFound
	}
	if err != nil {
		return "", "", 0, "", err
	}
	if status != "pending" {
		return "", "", 0, "", settlement.ErrAlreadySettled
	}
	return userID, ptype, amountCents, description, nil
}

// markCompleted fecha a transição pending -> completed sob o mesmo lock.
func markCompleted(ctx context.Context, tx *sql.Tx, reference string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE payment_transactions SET status='completed', updated_at=NOW()
		WHERE id=$1 AND status='pending'`, reference)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return settlement.ErrAlreadySettled
	}
	return nil
}

func (p *Postgres) SettleDeposit(ctx context.Context, reference string) (string, int64, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", 0, err
	}
	defer tx.Rollback()

	userID, ptype, amount, description, err := claimPayment(ctx, tx, reference)
	if err != nil {
		return "", 0, err
	}
	if ptype != "deposit" {
		return "", 0, fmt.Errorf("transaction %s is %s, not deposit", reference, ptype)
	}

	// Crédito in-place sob o lock da payment_transaction; nada de ler saldo
	// no aplicativo e escrever de volta
	res, err := tx.ExecContext(ctx, `
		UPDATE profiles SET wallet_balance_cents = wallet_balance_cents + $1, updated_at=NOW()
		WHERE id=$2`, amount, userID)
	if err != nil {
		return "", 0, err
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return "", 0, fmt.Errorf("profile %s not found for deposit %s", userID, reference)
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO transactions(id, user_id, type, amount_cents, description)
		VALUES($1,$2,'deposit',$3,$4)`,
		uuid.NewString(), userID, amount, description); err != nil {
		return "", 0, err
	}

	if err = markCompleted(ctx, tx, reference); err != nil {
		return "", 0, err
	}

	if err = tx.Commit(); err != nil {
		return "", 0, err
	}
	return userID, amount, nil
}

func (p *Postgres) SettleSubscription(ctx context.Context, reference string, grantedUntil time.Time) (string, int64, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", 0, err
	}
	defer tx.Rollback()

	userID, ptype, amount, description, err := claimPayment(ctx, tx, reference)
	if err != nil {
		return "", 0, err
	}
	if ptype != "subscription" {
		return "", 0, fmt.Errorf("transaction %s is %s, not subscription", reference, ptype)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE profiles SET daily_access_granted_until=$1, updated_at=NOW()
		WHERE id=$2`, grantedUntil, userID)
	if err != nil {
		return "", 0, err
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return "", 0, fmt.Errorf("profile %s not found for subscription %s", userID, reference)
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO transactions(id, user_id, type, amount_cents, description)
		VALUES($1,$2,'subscription',$3,$4)`,
		uuid.NewString(), userID, amount, description); err != nil {
		return "", 0, err
	}

	if err = markCompleted(ctx, tx, reference); err != nil {
		return "", 0, err
	}

	if err = tx.Commit(); err != nil {
		return "", 0, err
	}
	return userID, amount, nil
}

func (p *Postgres) MarkFailed(ctx context.Context, reference string) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE payment_transactions SET status='failed', updated_at=NOW()
		WHERE id=$1 AND status='pending'`, reference)
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

	// 0 linhas: ou já terminal (idempotente, ok) ou referência inexistente
	var exists bool
	if err := p.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM payment_transactions WHERE id=$1)`, reference).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return settlement.ErrNotFound
	}
	return nil
}

func (p *Postgres) ActiveBets(ctx context.Context, gameID string) ([]settlement.Bet, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, game_id, selection, stake_cents, odds, potential_winnings_cents
		FROM bets
		WHERE game_id=$1 AND status='active'
		ORDER BY created_at`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bets []settlement.Bet
	for rows.Next() {
		var b settlement.Bet
		if err := rows.Scan(&b.ID, &b.UserID, &b.GameID, &b.Selection, &b.StakeCents, &b.Odds, &b.PotentialWinningsCents); err != nil {
			return nil, err
		}
		bets = append(bets, b)
	}
	return bets, rows.Err()
}

func (p *Postgres) SettleBetWon(ctx context.Context, betID string) (int64, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var userID, status, home, away string
	var payout int64
	err = tx.QueryRowContext(ctx, `
		SELECT b.user_id, b.status, b.potential_winnings_cents, ht.name, at.name
		FROM bets b
		JOIN games g ON g.id = b.game_id
		JOIN teams ht ON ht.id = g.home_team_id
		JOIN teams at ON at.id = g.away_team_id
		WHERE b.id=$1
		FOR UPDATE OF b`, betID).Scan(&userID, &status, &payout, &home, &away)
	if err == sql.ErrNoRows {
		return 0, settlement.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	if status != "active" {
		return 0, settlement.ErrBetAlreadySettled
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE bets SET status='won', updated_at=NOW() WHERE id=$1`, betID); err != nil {
		return 0, err
	}

	// Credita o ganho congelado na criação da aposta
	res, err := tx.ExecContext(ctx, `
		UPDATE profiles SET wallet_balance_cents = wallet_balance_cents + $1, updated_at=NOW()
		WHERE id=$2`, payout, userID)
	if err != nil {
		return 0, err
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return 0, fmt.Errorf("profile %s not found for bet %s", userID, betID)
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO transactions(id, user_id, type, amount_cents, description)
		VALUES($1,$2,'bet_won',$3,$4)`,
		uuid.NewString(), userID, payout,
		fmt.Sprintf("Winnings from bet on %s vs %s", home, away)); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return payout, nil
}

func (p *Postgres) SettleBetLost(ctx context.Context, betID string) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE bets SET status='lost', updated_at=NOW()
		WHERE id=$1 AND status='active'`, betID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return settlement.ErrBetAlreadySettled
	}
	return nil
}
