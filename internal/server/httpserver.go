// Package server exposes the match service over HTTP and websockets.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"battleship-ai/internal/ai"
	"battleship-ai/internal/app"
	"battleship-ai/internal/engine"
	"battleship-ai/internal/game"
	"battleship-ai/internal/store"
)

type Server struct {
	svc     *app.Service
	hub     *Hub
	log     zerolog.Logger
	started time.Time
	proofs  bool
}

func New(svc *app.Service, hub *Hub, log zerolog.Logger, proofs bool) *Server {
	return &Server{svc: svc, hub: hub, log: log, started: time.Now(), proofs: proofs}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(WithCORS)

	r.Get("/v1/status", s.handleStatus)
	r.Route("/v1/games", func(r chi.Router) {
		r.Post("/", s.handleNewGame)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleState)
			r.Delete("/", s.handleDelete)
			r.Post("/ships", s.handleShips)
			r.Post("/attack", s.handleAttack)
			r.Post("/ai-turn", s.handleAITurn)
			r.Put("/difficulty", s.handleDifficulty)
			r.Post("/restart", s.handleRestart)
			r.Get("/reveal", s.handleReveal)
		})
	})
	r.Get("/v1/history", s.handleHistory)
	r.Get("/v1/history/summary", s.handleSummary)
	r.Get("/v1/history/{matchID}", s.handleMatch)
	r.Get("/v1/zk/vk", s.handleVK)
	r.Get("/ws", s.handleWS)
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("req", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("http")
	})
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	body := errorBody{Error: err.Error()}
	if kind, ok := engine.KindOf(err); ok {
		body.Kind = string(kind)
	}
	writeJSON(w, statusFor(err), body)
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, app.ErrNotFound), errors.Is(err, store.ErrNotFound),
		errors.Is(err, app.ErrNoHistory), errors.Is(err, app.ErrProofsDisabled):
		return http.StatusNotFound
	case errors.Is(err, app.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, app.ErrTooManySessions):
		return http.StatusServiceUnavailable
	}
	kind, ok := engine.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case engine.KindValidation:
		return http.StatusBadRequest
	case engine.KindSequencing, engine.KindRedundant:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad json: " + err.Error()})
		return false
	}
	return true
}

type newGameReq struct {
	Difficulty string `json:"difficulty"`
}

type newGameResp struct {
	ID    string           `json:"id"`
	State engine.GameState `json:"state"`
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	id, st, err := s.svc.NewGame(r.Context(), req.Difficulty)
	if err != nil {
		if errors.Is(err, app.ErrTooManySessions) {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, newGameResp{ID: id, State: st})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.State(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type shipsReq struct {
	Ships []game.Ship `json:"ships"`
}

func (s *Server) handleShips(w http.ResponseWriter, r *http.Request) {
	var req shipsReq
	if !decode(w, r, &req) {
		return
	}
	res, err := s.svc.PlaceShips(r.Context(), chi.URLParam(r, "id"), req.Ships)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, statusFor(res.Err), res)
}

type attackReq struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (s *Server) handleAttack(w http.ResponseWriter, r *http.Request) {
	var req attackReq
	if !decode(w, r, &req) {
		return
	}
	rep, err := s.svc.Attack(r.Context(), chi.URLParam(r, "id"), req.Row, req.Col)
	if err != nil && rep.Human == nil {
		writeError(w, err)
		return
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("ai replies interrupted")
	}
	writeJSON(w, statusFor(rep.Human.Err), rep)
}

func (s *Server) handleAITurn(w http.ResponseWriter, r *http.Request) {
	rep, err := s.svc.AITurn(r.Context(), chi.URLParam(r, "id"))
	if err != nil && len(rep.AI) == 0 {
		writeError(w, err)
		return
	}
	code := http.StatusOK
	if n := len(rep.AI); n > 0 {
		code = statusFor(rep.AI[n-1].Err)
	}
	writeJSON(w, code, rep)
}

type difficultyReq struct {
	Difficulty string `json:"difficulty"`
}

func (s *Server) handleDifficulty(w http.ResponseWriter, r *http.Request) {
	var req difficultyReq
	if !decode(w, r, &req) {
		return
	}
	d, err := ai.ParseDifficulty(req.Difficulty)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Kind: string(engine.KindValidation)})
		return
	}
	out, err := s.svc.SetDifficulty(chi.URLParam(r, "id"), d)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, statusFor(out.Err), out)
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Restart(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	rev, err := s.svc.Reveal(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, 500)
	}
	matches, err := s.svc.History(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	m, err := s.svc.Match(r.Context(), chi.URLParam(r, "matchID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.svc.Summary(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleVK(w http.ResponseWriter, r *http.Request) {
	if !s.proofs {
		writeError(w, app.ErrProofsDisabled)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	if err := s.svc.WriteVerifyingKey(w); err != nil {
		s.log.Error().Err(err).Msg("write verifying key")
	}
}

type statusResp struct {
	Active    int   `json:"activeGames"`
	Clients   int   `json:"wsClients"`
	Proofs    bool  `json:"proofs"`
	StartedAt int64 `json:"startedAt"`
	UptimeSec int64 `json:"uptimeSec"`
}

func (s *Server) status() statusResp {
	return statusResp{
		Active:    s.svc.Active(),
		Clients:   s.hub.Clients(),
		Proofs:    s.proofs,
		StartedAt: s.started.Unix(),
		UptimeSec: int64(time.Since(s.started).Seconds()),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
