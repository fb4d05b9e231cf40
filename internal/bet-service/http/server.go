package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/betwise-platform/internal/bet-service/dto"
	"github.com/radieske/betwise-platform/internal/bet-service/repo"
	"github.com/radieske/betwise-platform/internal/settlement"
	"github.com/radieske/betwise-platform/pkg/contracts/events"
)

// Repo define a persistência de apostas/perfil usada pelo handler.
type Repo interface {
	PlaceBet(ctx context.Context, userID, gameID, selection string, stakeCents int64) (*repo.Bet, error)
	GetBet(ctx context.Context, betID string) (*repo.Bet, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]repo.Bet, error)
	GetProfile(ctx context.Context, userID string) (*repo.Profile, error)
	ListUpcomingGames(ctx context.Context, includePremium bool) ([]repo.Game, error)
}

// ProfileCache é a visão cacheada de perfil com invalidação explícita.
type ProfileCache interface {
	Get(ctx context.Context, userID string) (*repo.Profile, bool, error)
	Set(ctx context.Context, p *repo.Profile) error
	Invalidate(ctx context.Context, userID string) error
}

// Server expõe endpoints HTTP de apostas e listagem de jogos.
type Server struct {
	log           *zap.Logger
	repo          Repo
	cache         ProfileCache
	minStakeCents int64
	publ          interface {
		PublishBetPlaced(context.Context, events.BetPlaced) error
	}
}

func NewServer(log *zap.Logger, r Repo, cache ProfileCache, minStakeCents int64, p interface {
	PublishBetPlaced(context.Context, events.BetPlaced) error
}) *Server {
	return &Server{log: log, repo: r, cache: cache, minStakeCents: minStakeCents, publ: p}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/bets", s.bets)      // POST; GET ?userId=...
	mux.HandleFunc("/bets/", s.getBet)   // GET /bets/{id}
	mux.HandleFunc("/games", s.getGames) // GET ?userId=...
	return mux
}

func (s *Server) bets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.placeBet(w, r)
	case http.MethodGet:
		s.listBets(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.GameID == "" || !settlement.ValidOutcome(req.Selection) {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.StakeCents < s.minStakeCents {
		http.Error(w, fmt.Sprintf("minimum stake is KES %d", s.minStakeCents/100), http.StatusBadRequest)
		return
	}

	b, err := s.repo.PlaceBet(r.Context(), req.UserID, req.GameID, req.Selection, req.StakeCents)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrInsufficientFunds):
			http.Error(w, "insufficient funds", http.StatusConflict)
		case errors.Is(err, repo.ErrGameUnavailable):
			http.Error(w, "game not open for betting", http.StatusConflict)
		case errors.Is(err, repo.ErrNotFound):
			http.Error(w, "not found", http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	// Saldo mudou: a visão cacheada do perfil está velha
	if err := s.cache.Invalidate(r.Context(), req.UserID); err != nil {
		s.log.Warn("profile cache invalidate", zap.String("user_id", req.UserID), zap.Error(err))
	}

	_ = s.publ.PublishBetPlaced(r.Context(), events.BetPlaced{
		BetID:                  b.ID,
		UserID:                 b.UserID,
		GameID:                 b.GameID,
		Selection:              b.Selection,
		StakeCents:             b.StakeCents,
		Odds:                   b.Odds,
		PotentialWinningsCents: b.PotentialWinningsCents,
	})

	writeJSON(w, dto.PlaceBetResponse{
		BetID:                  b.ID,
		Status:                 b.Status,
		Odds:                   b.Odds,
		PotentialWinningsCents: b.PotentialWinningsCents,
	})
}

func (s *Server) listBets(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}
	bets, err := s.repo.ListByUser(r.Context(), userID, 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]dto.BetView, 0, len(bets))
	for _, b := range bets {
		out = append(out, betView(&b))
	}
	writeJSON(w, out)
}

func (s *Server) getBet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// path: /bets/{id}
	id := r.URL.Path[len("/bets/"):]
	if id == "" {
		http.Error(w, "betId required", http.StatusBadRequest)
		return
	}

	b, err := s.repo.GetBet(r.Context(), id)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, betView(b))
}

// getGames lista jogos abertos; jogos premium só com acesso diário vigente.
func (s *Server) getGames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	includePremium := false
	if userID := r.URL.Query().Get("userId"); userID != "" {
		prof, err := s.profile(r.Context(), userID)
		if err == nil && prof.HasDailyAccess(time.Now()) {
			includePremium = true
		}
	}

	games, err := s.repo.ListUpcomingGames(r.Context(), includePremium)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]dto.GameView, 0, len(games))
	for _, g := range games {
		out = append(out, dto.GameView{
			GameID:    g.ID,
			LeagueID:  g.LeagueID,
			HomeTeam:  g.HomeTeam,
			AwayTeam:  g.AwayTeam,
			KickoffAt: g.KickoffAt,
			OddsHome:  g.OddsHome,
			OddsDraw:  g.OddsDraw,
			OddsAway:  g.OddsAway,
			IsPremium: g.IsPremium,
		})
	}
	writeJSON(w, out)
}

// profile resolve a visão do perfil via cache, repovoando em miss.
func (s *Server) profile(ctx context.Context, userID string) (*repo.Profile, error) {
	if p, ok, err := s.cache.Get(ctx, userID); err == nil && ok {
		return p, nil
	}
	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, p); err != nil {
		s.log.Warn("profile cache set", zap.String("user_id", userID), zap.Error(err))
	}
	return p, nil
}

func betView(b *repo.Bet) dto.BetView {
	return dto.BetView{
		BetID:                  b.ID,
		GameID:                 b.GameID,
		Selection:              b.Selection,
		StakeCents:             b.StakeCents,
		Odds:                   b.Odds,
		PotentialWinningsCents: b.PotentialWinningsCents,
		Status:                 b.Status,
		CreatedAt:              b.CreatedAt,
	}
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
