package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/betwise-platform/pkg/contracts/events"
)

// Resultados possíveis de um jogo e seleções possíveis de uma aposta.
const (
	OutcomeHomeWin = "home_win"
	OutcomeDraw    = "draw"
	OutcomeAwayWin = "away_win"
)

// ValidOutcome valida uma seleção/resultado 1x2.
func ValidOutcome(s string) bool {
	return s == OutcomeHomeWin || s == OutcomeDraw || s == OutcomeAwayWin
}

var (
	ErrNotFound = errors.New("not found")
	// Transação já saiu de pending; quem chegou depois não liquida de novo
	ErrAlreadySettled = errors.New("transaction already settled")
	// Aposta já saiu de active
	ErrBetAlreadySettled = errors.New("bet already settled")
)

// Bet é a visão de uma aposta usada na resolução de resultado.
// Odd e ganho potencial foram congelados na criação; nunca recalcular aqui.
type Bet struct {
	ID                     string
	UserID                 string
	GameID                 string
	Selection              string // home_win | draw | away_win
	StakeCents             int64
	Odds                   float64
	PotentialWinningsCents int64
}

// Store são as operações atômicas de liquidação sobre o armazenamento.
// Cada método é uma transação única: ou aplica o efeito financeiro inteiro
// e marca o registro, ou não muda nada.
type Store interface {
	// SettleDeposit credita a carteira, grava o lançamento no extrato e marca
	// a payment_transaction como completed. ErrAlreadySettled se não estava
	// pending.
	SettleDeposit(ctx context.Context, reference string) (userID string, amountCents int64, err error)

	// SettleSubscription grava o acesso diário até grantedUntil e marca a
	// payment_transaction como completed. Não toca no saldo da carteira.
	SettleSubscription(ctx context.Context, reference string, grantedUntil time.Time) (userID string, amountCents int64, err error)

	// MarkFailed transiciona pending -> failed; no-op se já terminal.
	MarkFailed(ctx context.Context, reference string) error

	// ActiveBets lista as apostas ainda não resolvidas de um jogo.
	ActiveBets(ctx context.Context, gameID string) ([]Bet, error)

	// SettleBetWon marca a aposta como won e credita o ganho congelado,
	// tudo na mesma transação. ErrBetAlreadySettled se não estava active.
	SettleBetWon(ctx context.Context, betID string) (payoutCents int64, err error)

	// SettleBetLost marca a aposta como lost; sem mutação de carteira.
	SettleBetLost(ctx context.Context, betID string) error
}

// Publisher emite eventos de liquidação; falha de publicação não desfaz a
// liquidação, só é logada.
type Publisher interface {
	PublishPaymentCompleted(ctx context.Context, ev events.PaymentCompleted) error
	PublishBetSettled(ctx context.Context, ev events.BetSettled) error
}

// Invalidator descarta a visão cacheada do perfil após mutação de carteira.
type Invalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// Summary é o resumo devolvido ao operador após a resolução de um jogo.
type Summary struct {
	SettledBets         int   `json:"settledBets"`
	WinningBets         int   `json:"winningBetCount"`
	TotalDisbursedCents int64 `json:"totalDisbursedCents"`
}

// Engine aplica o efeito financeiro de transações completadas exatamente
// uma vez. pub e cache podem ser nil (ex: testes, worker sem Kafka).
type Engine struct {
	log   *zap.Logger
	store Store
	pub   Publisher
	cache Invalidator
}

func NewEngine(log *zap.Logger, store Store, pub Publisher, cache Invalidator) *Engine {
	return &Engine{log: log, store: store, pub: pub, cache: cache}
}

// CompleteDeposit credita o valor da transação na carteira do usuário.
func (e *Engine) CompleteDeposit(ctx context.Context, reference string) error {
	userID, amount, err := e.store.SettleDeposit(ctx, reference)
	if err != nil {
		return err
	}

	e.invalidateProfile(ctx, userID)
	e.publishPayment(ctx, reference, userID, "deposit", amount)

	e.log.Info("deposit settled",
		zap.String("reference", reference),
		zap.String("user_id", userID),
		zap.Int64("amount_cents", amount),
	)
	return nil
}

// CompleteSubscription libera o acesso diário até a próxima meia-noite local.
func (e *Engine) CompleteSubscription(ctx context.Context, reference string) error {
	grantedUntil := NextDailyGrant(time.Now())

	userID, amount, err := e.store.SettleSubscription(ctx, reference, grantedUntil)
	if err != nil {
		return err
	}

	e.invalidateProfile(ctx, userID)
	e.publishPayment(ctx, reference, userID, "subscription", amount)

	e.log.Info("subscription settled",
		zap.String("reference", reference),
		zap.String("user_id", userID),
		zap.Time("granted_until", grantedUntil),
	)
	return nil
}

// MarkFailed registra o desfecho negativo reportado pelo gateway.
func (e *Engine) MarkFailed(ctx context.Context, reference string) error {
	return e.store.MarkFailed(ctx, reference)
}

// ResolveGame resolve toda aposta ainda active de um jogo contra o resultado
// final. Cada aposta é uma transação própria: falha no meio do lote não
// desfaz nem re-credita as já resolvidas, e um retry só encontra as que
// continuam active.
func (e *Engine) ResolveGame(ctx context.Context, gameID, result string) (Summary, error) {
	if !ValidOutcome(result) {
		return Summary{}, fmt.Errorf("invalid game result %q", result)
	}

	bets, err := e.store.ActiveBets(ctx, gameID)
	if err != nil {
		return Summary{}, err
	}

	var sum Summary
	var errs []error

	for _, b := range bets {
		if b.Selection == result {
			payout, err := e.store.SettleBetWon(ctx, b.ID)
			if errors.Is(err, ErrBetAlreadySettled) {
				continue
			}
			if err != nil {
				// Dinheiro em jogo: loga alto e segue pras demais apostas
				e.log.Error("bet payout failed",
					zap.String("bet_id", b.ID),
					zap.String("user_id", b.UserID),
					zap.Error(err),
				)
				errs = append(errs, fmt.Errorf("bet %s: %w", b.ID, err))
				continue
			}

			sum.SettledBets++
			sum.WinningBets++
			sum.TotalDisbursedCents += payout

			e.invalidateProfile(ctx, b.UserID)
			e.publishBet(ctx, b, "won", payout)
		} else {
			err := e.store.SettleBetLost(ctx, b.ID)
			if errors.Is(err, ErrBetAlreadySettled) {
				continue
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("bet %s: %w", b.ID, err))
				continue
			}

			sum.SettledBets++
			e.publishBet(ctx, b, "lost", 0)
		}
	}

	return sum, errors.Join(errs...)
}

func (e *Engine) invalidateProfile(ctx context.Context, userID string) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Invalidate(ctx, userID); err != nil {
		e.log.Warn("profile cache invalidate", zap.String("user_id", userID), zap.Error(err))
	}
}

func (e *Engine) publishPayment(ctx context.Context, reference, userID, kind string, amount int64) {
	if e.pub == nil {
		return
	}
	ev := events.PaymentCompleted{
		Reference:   reference,
		UserID:      userID,
		Type:        kind,
		AmountCents: amount,
		Ts:          time.Now(),
	}
	if err := e.pub.PublishPaymentCompleted(ctx, ev); err != nil {
		e.log.Warn("publish payment_completed", zap.String("reference", reference), zap.Error(err))
	}
}

func (e *Engine) publishBet(ctx context.Context, b Bet, status string, payout int64) {
	if e.pub == nil {
		return
	}
	ev := events.BetSettled{
		BetID:       b.ID,
		UserID:      b.UserID,
		GameID:      b.GameID,
		Status:      status,
		PayoutCents: payout,
		Ts:          time.Now(),
	}
	if err := e.pub.PublishBetSettled(ctx, ev); err != nil {
		e.log.Warn("publish bet_settled", zap.String("bet_id", b.ID), zap.Error(err))
	}
}

// NextDailyGrant devolve a meia-noite local seguinte ao instante dado:
// o acesso diário vale até o fim do dia corrente.
func NextDailyGrant(now time.Time) time.Time {
	t := now.AddDate(0, 0, 1)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location())
}
