package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

// fakeStore simula o armazenamento em memória com a mesma semântica de
// transição de estado das implementações Postgres.
type fakeStore struct {
	payments map[string]*fakePayment
	bets     map[string]*fakeBet
	balances map[string]int64

	// injeção de falha por id de aposta
	failBets map[string]error
}

type fakePayment struct {
	userID      string
	kind        string
	amountCents int64
	status      string
}

type fakeBet struct {
	bet    Bet
	status string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		payments: map[string]*fakePayment{},
		bets:     map[string]*fakeBet{},
		balances: map[string]int64{},
		failBets: map[string]error{},
	}
}

func (s *fakeStore) SettleDeposit(ctx context.Context, reference string) (string, int64, error) {
	p, ok := s.payments[reference]
	if !ok {
		return "", 0, ErrNotFound
	}
	if p.status != "pending" {
		return "", 0, ErrAlreadySettled
	}
	p.status = "completed"
	s.balances[p.userID] += p.amountCents
	return p.userID, p.amountCents, nil
}

func (s *fakeStore) SettleSubscription(ctx context.Context, reference string, grantedUntil time.Time) (string, int64, error) {
	p, ok := s.payments[reference]
	if !ok {
		return "", 0, ErrNotFound
	}
	if p.status != "pending" {
		return "", 0, ErrAlreadySettled
	}
	p.status = "completed"
	return p.userID, p.amountCents, nil
}

func (s *fakeStore) MarkFailed(ctx context.Context, reference string) error {
	p, ok := s.payments[reference]
	if !ok {
		return ErrNotFound
	}
	if p.status == "pending" {
		p.status = "failed"
	}
	return nil
}

func (s *fakeStore) ActiveBets(ctx context.Context, gameID string) ([]Bet, error) {
	var out []Bet
	for _, b := range s.bets {
		if b.bet.GameID == gameID && b.status == "active" {
			out = append(out, b.bet)
		}
	}
	return out, nil
}

func (s *fakeStore) SettleBetWon(ctx context.Context, betID string) (int64, error) {
	if err := s.failBets[betID]; err != nil {
		return 0, err
	}
	b, ok := s.bets[betID]
	if !ok {
		return 0, ErrNotFound
	}
	if b.status != "active" {
		return 0, ErrBetAlreadySettled
	}
	b.status = "won"
	s.balances[b.bet.UserID] += b.bet.PotentialWinningsCents
	return b.bet.PotentialWinningsCents, nil
}

func (s *fakeStore) SettleBetLost(ctx context.Context, betID string) error {
	if err := s.failBets[betID]; err != nil {
		return err
	}
	b, ok := s.bets[betID]
	if !ok {
		return ErrNotFound
	}
	if b.status != "active" {
		return ErrBetAlreadySettled
	}
	b.status = "lost"
	return nil
}

func newTestEngine(store Store) *Engine {
	return NewEngine(zap.NewNop(), store, nil, nil)
}

func TestCompleteDepositCreditsOnce(t *testing.T) {
	store := newFakeStore()
	store.payments["DEP_u1_1"] = &fakePayment{userID: "u1", kind: "deposit", amountCents: 50000, status: "pending"}

	e := newTestEngine(store)
	ctx := context.Background()

	if err := e.CompleteDeposit(ctx, "DEP_u1_1"); err != nil {
		t.Fatalf("CompleteDeposit: %v", err)
	}
	if got := store.balances["u1"]; got != 50000 {
		t.Fatalf("saldo = %d, esperava 50000", got)
	}

	// entrega duplicada do gateway: nada de crédito dobrado
	err := e.CompleteDeposit(ctx, "DEP_u1_1")
	if !errors.Is(err, ErrAlreadySettled) {
		t.Fatalf("segunda entrega: esperava ErrAlreadySettled, veio %v", err)
	}
	if got := store.balances["u1"]; got != 50000 {
		t.Fatalf("saldo após duplicata = %d, esperava 50000", got)
	}
}

func TestCompleteDepositUnknownReference(t *testing.T) {
	e := newTestEngine(newFakeStore())
	if err := e.CompleteDeposit(context.Background(), "DEP_nope_1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("esperava ErrNotFound, veio %v", err)
	}
}

func TestCompleteSubscriptionDoesNotTouchWallet(t *testing.T) {
	store := newFakeStore()
	store.payments["SUB_u1_1"] = &fakePayment{userID: "u1", kind: "subscription", amountCents: 50000, status: "pending"}

	e := newTestEngine(store)
	if err := e.CompleteSubscription(context.Background(), "SUB_u1_1"); err != nil {
		t.Fatalf("CompleteSubscription: %v", err)
	}
	if got := store.balances["u1"]; got != 0 {
		t.Fatalf("assinatura mexeu no saldo: %d", got)
	}
	if store.payments["SUB_u1_1"].status != "completed" {
		t.Fatalf("status = %q", store.payments["SUB_u1_1"].status)
	}
}

func TestMarkFailedIsIdempotent(t *testing.T) {
	store := newFakeStore()
	store.payments["DEP_u1_1"] = &fakePayment{userID: "u1", status: "pending"}

	e := newTestEngine(store)
	ctx := context.Background()

	if err := e.MarkFailed(ctx, "DEP_u1_1"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if err := e.MarkFailed(ctx, "DEP_u1_1"); err != nil {
		t.Fatalf("MarkFailed repetido: %v", err)
	}
	if store.payments["DEP_u1_1"].status != "failed" {
		t.Fatalf("status = %q", store.payments["DEP_u1_1"].status)
	}
}

func TestResolveGameSettlesEveryActiveBet(t *testing.T) {
	store := newFakeStore()
	store.bets["b1"] = &fakeBet{status: "active", bet: Bet{ID: "b1", UserID: "u1", GameID: "g1", Selection: OutcomeHomeWin, StakeCents: 1000, PotentialWinningsCents: 2100}}
	store.bets["b2"] = &fakeBet{status: "active", bet: Bet{ID: "b2", UserID: "u2", GameID: "g1", Selection: OutcomeDraw, StakeCents: 1000, PotentialWinningsCents: 3300}}
	store.bets["b3"] = &fakeBet{status: "active", bet: Bet{ID: "b3", UserID: "u3", GameID: "g1", Selection: OutcomeHomeWin, StakeCents: 2000, PotentialWinningsCents: 4200}}
	// aposta de outro jogo não entra
	store.bets["x1"] = &fakeBet{status: "active", bet: Bet{ID: "x1", UserID: "u1", GameID: "g2", Selection: OutcomeHomeWin, PotentialWinningsCents: 9999}}

	e := newTestEngine(store)
	sum, err := e.ResolveGame(context.Background(), "g1", OutcomeHomeWin)
	if err != nil {
		t.Fatalf("ResolveGame: %v", err)
	}

	if sum.SettledBets != 3 || sum.WinningBets != 2 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.TotalDisbursedCents != 2100+4200 {
		t.Fatalf("TotalDisbursedCents = %d", sum.TotalDisbursedCents)
	}

	// só os vencedores recebem, exatamente o ganho congelado
	if store.balances["u1"] != 2100 || store.balances["u3"] != 4200 {
		t.Fatalf("saldos = %v", store.balances)
	}
	if store.balances["u2"] != 0 {
		t.Fatalf("perdedor creditado: %d", store.balances["u2"])
	}
	if store.bets["b2"].status != "lost" {
		t.Fatalf("b2 status = %q", store.bets["b2"].status)
	}
	if store.bets["x1"].status != "active" {
		t.Fatalf("aposta de outro jogo mudou: %q", store.bets["x1"].status)
	}
}

func TestResolveGameInvalidResult(t *testing.T) {
	e := newTestEngine(newFakeStore())
	if _, err := e.ResolveGame(context.Background(), "g1", "home"); err == nil {
		t.Fatal("esperava erro de resultado inválido")
	}
}

func TestResolveGamePartialFailureAndRetry(t *testing.T) {
	store := newFakeStore()
	store.bets["b1"] = &fakeBet{status: "active", bet: Bet{ID: "b1", UserID: "u1", GameID: "g1", Selection: OutcomeHomeWin, PotentialWinningsCents: 2000}}
	store.bets["b2"] = &fakeBet{status: "active", bet: Bet{ID: "b2", UserID: "u2", GameID: "g1", Selection: OutcomeHomeWin, PotentialWinningsCents: 3000}}
	store.failBets["b2"] = errors.New("db down")

	e := newTestEngine(store)
	ctx := context.Background()

	sum, err := e.ResolveGame(ctx, "g1", OutcomeHomeWin)
	if err == nil {
		t.Fatal("esperava erro agregado da aposta que falhou")
	}
	// a falha numa aposta não impede as demais
	if sum.SettledBets != 1 || sum.TotalDisbursedCents != 2000 {
		t.Fatalf("summary = %+v", sum)
	}

	// retry: só a aposta ainda active é tocada, sem pagamento dobrado
	delete(store.failBets, "b2")
	sum2, err := e.ResolveGame(ctx, "g1", OutcomeHomeWin)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if sum2.SettledBets != 1 || sum2.TotalDisbursedCents != 3000 {
		t.Fatalf("retry summary = %+v", sum2)
	}
	if store.balances["u1"] != 2000 {
		t.Fatalf("u1 creditado de novo no retry: %d", store.balances["u1"])
	}
}

func TestNextDailyGrant(t *testing.T) {
	loc := time.FixedZone("EAT", 3*3600)

	now := time.Date(2024, 5, 10, 15, 30, 0, 0, loc)
	got := NextDailyGrant(now)
	want := time.Date(2024, 5, 11, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("NextDailyGrant = %v, esperava %v", got, want)
	}

	// compra um segundo antes da meia-noite vale quase nada, mas é o contrato
	now = time.Date(2024, 5, 10, 23, 59, 59, 0, loc)
	got = NextDailyGrant(now)
	if !got.Equal(want) {
		t.Fatalf("NextDailyGrant véspera = %v, esperava %v", got, want)
	}
}
