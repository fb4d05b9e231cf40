package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Postgres implementa a persistência de payment_transactions.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

var ErrNotFound = errors.New("not found")

// CreatePending insere o registro local com status pending.
// Tem que acontecer antes de devolver o checkout ao caller: o fluxo de
// callback/IPN depende desta linha existir.
func (p *Postgres) CreatePending(ctx context.Context, t *PaymentTransaction) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO payment_transactions (id, user_id, type, amount_cents, status, gateway_order_id, phone_number, description)
		VALUES ($1,$2,$3,$4,'pending',$5,$6,$7)`,
		t.ID, t.UserID, t.Type, t.AmountCents, t.GatewayOrderID, t.PhoneNumber, t.Description,
	)
	return err
}

func (p *Postgres) scanOne(row *sql.Row) (*PaymentTransaction, error) {
	var t PaymentTransaction
	var gatewayID sql.NullString
	err := row.Scan(&t.ID, &t.UserID, &t.Type, &t.AmountCents, &t.Status, &gatewayID, &t.PhoneNumber, &t.Description, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.GatewayOrderID = gatewayID.String
	return &t, nil
}

const selectColumns = `id, user_id, type, amount_cents, status, gateway_order_id, phone_number, description, created_at, updated_at`

// FindByReference resolve pelo id local (caminho do navegador).
func (p *Postgres) FindByReference(ctx context.Context, reference string) (*PaymentTransaction, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT `+selectColumns+` FROM payment_transactions WHERE id=$1`, reference)
	return p.scanOne(row)
}

// FindByGatewayOrderID resolve pelo id do gateway (caminho do IPN).
func (p *Postgres) FindByGatewayOrderID(ctx context.Context, orderID string) (*PaymentTransaction, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT `+selectColumns+` FROM payment_transactions WHERE gateway_order_id=$1`, orderID)
	return p.scanOne(row)
}

// ListByUser devolve o histórico de tentativas de pagamento do usuário.
func (p *Postgres) ListByUser(ctx context.Context, userID string, limit int) ([]PaymentTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+selectColumns+` FROM payment_transactions
		WHERE user_id=$1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PaymentTransaction
	for rows.Next() {
		var t PaymentTransaction
		var gatewayID sql.NullString
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.AmountCents, &t.Status, &gatewayID, &t.PhoneNumber, &t.Description, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.GatewayOrderID = gatewayID.String
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListStalePending devolve pendências antigas o bastante pra reconciliar
// contra o gateway (o usuário pode nunca ter voltado do checkout).
func (p *Postgres) ListStalePending(ctx context.Context, minAge time.Duration, limit int) ([]PaymentTransaction, error) {
	if limit <= 0 {
		limit = 100
	}
	cutoff := time.Now().Add(-minAge)

	rows, err := p.db.QueryContext(ctx, `
		SELECT `+selectColumns+` FROM payment_transactions
		WHERE status='pending' AND created_at < $1
		ORDER BY created_at
		LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PaymentTransaction
	for rows.Next() {
		var t PaymentTransaction
		var gatewayID sql.NullString
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.AmountCents, &t.Status, &gatewayID, &t.PhoneNumber, &t.Description, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.GatewayOrderID = gatewayID.String
		out = append(out, t)
	}
	return out, rows.Err()
}
