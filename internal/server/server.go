package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"texas-tradem/internal/api"
	"texas-tradem/internal/domain"
	"texas-tradem/internal/game"
	"texas-tradem/internal/service"
	"texas-tradem/internal/session"

	"github.com/rs/zerolog"
)

// Server exposes the game engine, session gate and weekly series over JSON.
// Anything outside the API paths falls through to the static bundle.
type Server struct {
	engine *game.Engine
	gate   *session.Gate
	weekly *service.WeeklyCache
	logger zerolog.Logger
}

func NewServer(engine *game.Engine, gate *session.Gate, weekly *service.WeeklyCache, logger zerolog.Logger) *Server {
	return &Server{engine: engine, gate: gate, weekly: weekly, logger: logger}
}

func (s *Server) Handler(staticDir string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /weekly", s.handleWeekly)
	mux.HandleFunc("GET /deck", s.handleDeck)

	mux.HandleFunc("GET /game/state", s.handleGameState)
	mux.HandleFunc("POST /game/deal", s.handleDeal)
	mux.HandleFunc("POST /game/hit", s.handleHit)
	mux.HandleFunc("POST /game/advance", s.handleAdvance)
	mux.HandleFunc("POST /game/mode", s.handleMode)

	mux.HandleFunc("GET /session", s.handleSessionStatus)
	mux.HandleFunc("POST /session/restart", s.handleSessionRestart)
	mux.HandleFunc("POST /session/subscribe", s.handleSessionSubscribe)

	mux.Handle("/", http.FileServer(http.Dir(staticDir)))

	return mux
}

type errorResponse struct {
	Error string `json:"error"`
}

// weeklyResponse pins the wire contract: changes and weeks only, oldest to
// newest, parallel, at most ten entries.
type weeklyResponse struct {
	Changes []float64 `json:"changes"`
	Weeks   []int     `json:"weeks"`
}

func (s *Server) handleWeekly(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Missing symbol"})
		return
	}

	series, err := s.weekly.Get(r.Context(), symbol)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("symbol", symbol).Msg("weekly request failed")
		writeJSON(w, weeklyErrorStatus(err), errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, weeklyResponse{Changes: series.Changes, Weeks: series.Weeks})
}

// weeklyErrorStatus maps the error taxonomy: missing credential is a
// configuration error, anything upstream-shaped (HTTP failure, unusable
// series, too few points) is a bad gateway, the rest is unexpected.
func weeklyErrorStatus(err error) int {
	var upstream *api.UpstreamError
	switch {
	case errors.Is(err, api.ErrMissingAPIKey):
		return http.StatusInternalServerError
	case errors.As(err, &upstream), errors.Is(err, service.ErrInsufficientData):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleDeck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Cards())
}

func (s *Server) handleGameState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleDeal(w http.ResponseWriter, r *http.Request) {
	s.finishGameAction(w, r, s.engine.Deal(r.Context()))
}

func (s *Server) handleHit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Player string `json:"player"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	err := s.engine.Hit(r.Context(), domain.PlayerID(body.Player))
	if errors.Is(err, game.ErrUnknownPlayer) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.finishGameAction(w, r, err)
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	s.finishGameAction(w, r, s.engine.AdvanceRound(r.Context()))
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	mode, ok := domain.ParseMode(body.Mode)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown mode"})
		return
	}

	s.engine.SetMode(mode)
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

// finishGameAction maps a gate block to the paywall status; every other
// outcome returns the fresh table snapshot (engine semantics degrade
// internally rather than erroring).
func (s *Server) finishGameAction(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, session.ErrLocked) {
		writeJSON(w, http.StatusPaymentRequired, errorResponse{Error: "session locked"})
		return
	}
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("game action failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.gate.Status())
}

func (s *Server) handleSessionRestart(w http.ResponseWriter, r *http.Request) {
	s.gate.Restart()
	writeJSON(w, http.StatusOK, s.gate.Status())
}

func (s *Server) handleSessionSubscribe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.gate.Subscribe(r.Context()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
