package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/betwise-platform/internal/admin-service/dto"
	"github.com/radieske/betwise-platform/internal/admin-service/repo"
	"github.com/radieske/betwise-platform/internal/settlement"
)

// Repo define a persistência administrativa usada pelo handler.
type Repo interface {
	FinishGame(ctx context.Context, gameID, result string, homeScore, awayScore int) (alreadyFinished bool, err error)
	MarkLive(ctx context.Context, gameID string) error
	CreateGame(ctx context.Context, leagueID, homeTeamID, awayTeamID string, kickoffAt time.Time, oddsHome, oddsDraw, oddsAway float64, isPremium bool) (string, error)
	ListGames(ctx context.Context) ([]repo.Game, error)
	CreateTeam(ctx context.Context, name, leagueID string) (string, error)
	CreateLeague(ctx context.Context, name, country string) (string, error)
}

// Resolver é a fatia do settlement.Engine que o fluxo de resultado usa.
type Resolver interface {
	ResolveGame(ctx context.Context, gameID, result string) (settlement.Summary, error)
}

// Server expõe a API administrativa: resultado de jogos e CRUD fino de
// jogos/times/ligas.
type Server struct {
	log      *zap.Logger
	repo     Repo
	resolver Resolver
}

func NewServer(log *zap.Logger, r Repo, resolver Resolver) *Server {
	return &Server{log: log, repo: r, resolver: resolver}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/games", s.games)    // POST; GET
	mux.HandleFunc("/admin/games/", s.gameOps) // POST /admin/games/{id}/result
	mux.HandleFunc("/admin/teams", s.createTeam)
	mux.HandleFunc("/admin/leagues", s.createLeague)
	return mux
}

func (s *Server) games(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createGame(w, r)
	case http.MethodGet:
		s.listGames(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// gameOps trata subrotas de um jogo: /result e /live.
func (s *Server) gameOps(w http.ResponseWriter, r *http.Request) {
	// path: /admin/games/{id}/{op}
	rest := r.URL.Path[len("/admin/games/"):]
	gameID, op, ok := strings.Cut(rest, "/")
	if !ok || gameID == "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	switch op {
	case "result":
		s.submitResult(w, r, gameID)
	case "live":
		s.markLive(w, r, gameID)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// submitResult fecha o jogo e resolve as apostas ativas contra o resultado.
// Reenvio com o mesmo resultado reprocessa a resolução: as apostas já
// resolvidas são puladas pelo guard de active, só as que ficaram pra trás
// numa falha parcial são tocadas.
func (s *Server) submitResult(w http.ResponseWriter, r *http.Request, gameID string) {
	var req dto.SubmitResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if !settlement.ValidOutcome(req.Result) {
		http.Error(w, "invalid result", http.StatusBadRequest)
		return
	}

	alreadyFinished, err := s.repo.FinishGame(r.Context(), gameID, req.Result, req.HomeScore, req.AwayScore)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrResultMismatch):
			http.Error(w, "game finished with a different result", http.StatusConflict)
		case errors.Is(err, repo.ErrNotFound):
			http.Error(w, "game not found", http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	if alreadyFinished {
		s.log.Info("reprocessing game result", zap.String("game_id", gameID), zap.String("result", req.Result))
	}

	sum, err := s.resolver.ResolveGame(r.Context(), gameID, req.Result)
	if err != nil {
		// Apostas que falharam continuam active; o operador reenvia o mesmo
		// resultado e só elas são reprocessadas. O erro precisa aparecer.
		s.log.Error("bet resolution incomplete",
			zap.String("game_id", gameID),
			zap.String("result", req.Result),
			zap.Error(err),
		)
		writeJSONStatus(w, http.StatusInternalServerError, sum)
		return
	}

	s.log.Info("game result processed",
		zap.String("game_id", gameID),
		zap.String("result", req.Result),
		zap.Int("winning_bets", sum.WinningBets),
		zap.Int64("total_disbursed_cents", sum.TotalDisbursedCents),
	)
	writeJSON(w, sum)
}

// markLive fecha a janela de apostas do jogo: placement só aceita upcoming.
func (s *Server) markLive(w http.ResponseWriter, r *http.Request, gameID string) {
	if err := s.repo.MarkLive(r.Context(), gameID); err != nil {
		switch {
		case errors.Is(err, repo.ErrGameFinished):
			http.Error(w, "game already finished", http.StatusConflict)
		case errors.Is(err, repo.ErrNotFound):
			http.Error(w, "game not found", http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	s.log.Info("game marked live", zap.String("game_id", gameID))
	writeJSON(w, dto.GameStatusResponse{GameID: gameID, Status: "live"})
}

func (s *Server) createGame(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.LeagueID == "" || req.HomeTeamID == "" || req.AwayTeamID == "" ||
		req.OddsHome <= 1 || req.OddsDraw <= 1 || req.OddsAway <= 1 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	id, err := s.repo.CreateGame(r.Context(), req.LeagueID, req.HomeTeamID, req.AwayTeamID,
		req.KickoffAt, req.OddsHome, req.OddsDraw, req.OddsAway, req.IsPremium)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.CreatedResponse{ID: id})
}

func (s *Server) listGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.repo.ListGames(r.Context())
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
			Status:    g.Status,
			Result:    g.Result,
			HomeScore: g.HomeScore,
			AwayScore: g.AwayScore,
			IsPremium: g.IsPremium,
		})
	}
	writeJSON(w, out)
}

func (s *Server) createTeam(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.CreateTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.LeagueID == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	id, err := s.repo.CreateTeam(r.Context(), req.Name, req.LeagueID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.CreatedResponse{ID: id})
}

func (s *Server) createLeague(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.CreateLeagueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	id, err := s.repo.CreateLeague(r.Context(), req.Name, req.Country)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.CreatedResponse{ID: id})
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
