package http

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/betwise-platform/internal/bet-service/dto"
	"github.com/radieske/betwise-platform/internal/bet-service/repo"
	"github.com/radieske/betwise-platform/pkg/contracts/events"
)

type fakeRepo struct {
	placeErr error
	profile  *repo.Profile
	games    []repo.Game

	// captura dos argumentos de PlaceBet
	placed *repo.Bet
}

func (f *fakeRepo) PlaceBet(ctx context.Context, userID, gameID, selection string, stakeCents int64) (*repo.Bet, error) {
	if f.placeErr != nil {
		return nil, f.placeErr
	}
	// odds sempre do servidor, nunca da requisição
	odds := 2.10
	f.placed = &repo.Bet{
		ID:                     "bet-1",
		UserID:                 userID,
		GameID:                 gameID,
		Selection:              selection,
		StakeCents:             stakeCents,
		Odds:                   odds,
		PotentialWinningsCents: int64(math.Round(float64(stakeCents) * odds)),
		Status:                 "active",
	}
	return f.placed, nil
}

func (f *fakeRepo) GetBet(ctx context.Context, betID string) (*repo.Bet, error) {
	if f.placed != nil && f.placed.ID == betID {
		return f.placed, nil
	}
	return nil, repo.ErrNotFound
}

func (f *fakeRepo) ListByUser(ctx context.Context, userID string, limit int) ([]repo.Bet, error) {
	if f.placed != nil {
		return []repo.Bet{*f.placed}, nil
	}
	return nil, nil
}

func (f *fakeRepo) GetProfile(ctx context.Context, userID string) (*repo.Profile, error) {
	if f.profile == nil {
		return nil, repo.ErrNotFound
	}
	return f.profile, nil
}

func (f *fakeRepo) ListUpcomingGames(ctx context.Context, includePremium bool) ([]repo.Game, error) {
	var out []repo.Game
	for _, g := range f.games {
		if g.IsPremium && !includePremium {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

// fakeCache sem Redis, com contagem de invalidação
type fakeCache struct {
	data        map[string]*repo.Profile
	invalidated []string
}

func newFakeCache() *fakeCache { return &fakeCache{data: map[string]*repo.Profile{}} }

func (c *fakeCache) Get(ctx context.Context, userID string) (*repo.Profile, bool, error) {
	p, ok := c.data[userID]
	return p, ok, nil
}

func (c *fakeCache) Set(ctx context.Context, p *repo.Profile) error {
	c.data[p.ID] = p
	return nil
}

func (c *fakeCache) Invalidate(ctx context.Context, userID string) error {
	delete(c.data, userID)
	c.invalidated = append(c.invalidated, userID)
	return nil
}

type fakePublisher struct {
	events []events.BetPlaced
}

func (p *fakePublisher) PublishBetPlaced(ctx context.Context, ev events.BetPlaced) error {
	p.events = append(p.events, ev)
	return nil
}

func newTestServer(r *fakeRepo, c *fakeCache) (*Server, *fakePublisher) {
	pub := &fakePublisher{}
	return NewServer(zap.NewNop(), r, c, 1000, pub), pub
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPlaceBetSuccess(t *testing.T) {
	fr := &fakeRepo{}
	cache := newFakeCache()
	s, pub := newTestServer(fr, cache)

	rec := postJSON(t, s.Router(), "/bets",
		`{"userId":"u1","gameId":"g1","selection":"home_win","stakeCents":5000}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, corpo %s", rec.Code, rec.Body.String())
	}

	var resp dto.PlaceBetResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// odds e ganho potencial congelados vêm na resposta
	if resp.Odds != 2.10 || resp.PotentialWinningsCents != 10500 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Status != "active" {
		t.Fatalf("status = %q", resp.Status)
	}

	// saldo mudou: cache do perfil invalidado
	if len(cache.invalidated) != 1 || cache.invalidated[0] != "u1" {
		t.Fatalf("invalidated = %v", cache.invalidated)
	}
	if len(pub.events) != 1 || pub.events[0].BetID != "bet-1" {
		t.Fatalf("events = %+v", pub.events)
	}
}

func TestPlaceBetBelowMinimumStake(t *testing.T) {
	fr := &fakeRepo{}
	s, _ := newTestServer(fr, newFakeCache())

	rec := postJSON(t, s.Router(), "/bets",
		`{"userId":"u1","gameId":"g1","selection":"home_win","stakeCents":500}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if fr.placed != nil {
		t.Fatal("aposta criada abaixo do mínimo")
	}
}

func TestPlaceBetInvalidSelection(t *testing.T) {
	s, _ := newTestServer(&fakeRepo{}, newFakeCache())

	rec := postJSON(t, s.Router(), "/bets",
		`{"userId":"u1","gameId":"g1","selection":"home","stakeCents":5000}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestPlaceBetInsufficientFunds(t *testing.T) {
	fr := &fakeRepo{placeErr: repo.ErrInsufficientFunds}
	cache := newFakeCache()
	s, pub := newTestServer(fr, cache)

	rec := postJSON(t, s.Router(), "/bets",
		`{"userId":"u1","gameId":"g1","selection":"home_win","stakeCents":5000}`)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(cache.invalidated) != 0 || len(pub.events) != 0 {
		t.Fatal("efeito colateral em aposta recusada")
	}
}

func TestPlaceBetGameNotOpen(t *testing.T) {
	fr := &fakeRepo{placeErr: repo.ErrGameUnavailable}
	s, _ := newTestServer(fr, newFakeCache())

	rec := postJSON(t, s.Router(), "/bets",
		`{"userId":"u1","gameId":"g1","selection":"home_win","stakeCents":5000}`)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestGetGamesPremiumVisibility(t *testing.T) {
	grantedUntil := time.Now().Add(6 * time.Hour)
	expired := time.Now().Add(-time.Hour)

	games := []repo.Game{
		{ID: "g1", Status: "upcoming", IsPremium: false},
		{ID: "g2", Status: "upcoming", IsPremium: true},
	}

	cases := []struct {
		name    string
		profile *repo.Profile
		userID  string
		want    int
	}{
		{"sem usuário", nil, "", 1},
		{"sem assinatura", &repo.Profile{ID: "u1"}, "u1", 1},
		{"assinatura vigente", &repo.Profile{ID: "u1", DailyAccessGrantedUntil: &grantedUntil}, "u1", 2},
		{"assinatura vencida", &repo.Profile{ID: "u1", DailyAccessGrantedUntil: &expired}, "u1", 1},
	}

	for _, c := range cases {
		fr := &fakeRepo{games: games, profile: c.profile}
		s, _ := newTestServer(fr, newFakeCache())

		url := "/games"
		if c.userID != "" {
			url += "?userId=" + c.userID
		}
		req := httptest.NewRequest(http.MethodGet, url, nil)
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", c.name, rec.Code)
		}
		var out []dto.GameView
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s: decode: %v", c.name, err)
		}
		if len(out) != c.want {
			t.Errorf("%s: %d jogos, esperava %d", c.name, len(out), c.want)
		}
	}
}

func TestGetGamesPopulatesProfileCache(t *testing.T) {
	grantedUntil := time.Now().Add(6 * time.Hour)
	fr := &fakeRepo{profile: &repo.Profile{ID: "u1", DailyAccessGrantedUntil: &grantedUntil}}
	cache := newFakeCache()
	s, _ := newTestServer(fr, cache)

	req := httptest.NewRequest(http.MethodGet, "/games?userId=u1", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if _, ok := cache.data["u1"]; !ok {
		t.Fatal("perfil não repovoado no cache após miss")
	}
}

func TestGetBetNotFound(t *testing.T) {
	s, _ := newTestServer(&fakeRepo{}, newFakeCache())

	req := httptest.NewRequest(http.MethodGet, "/bets/nope", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestListBetsRequiresUserID(t *testing.T) {
	s, _ := newTestServer(&fakeRepo{}, newFakeCache())

	req := httptest.NewRequest(http.MethodGet, "/bets", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}
