package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/betslip-service/internal/betslip"
	"github.com/radieske/betslip-service/internal/betslip-service/session"
)

// Server expõe o slip de cada usuário via REST
type Server struct {
	log      *zap.Logger
	sessions *session.Manager
	fetcher  betslip.EventFetcher

	FetchTimeout  time.Duration // consulta do evento ao adicionar aposta
	SubmitTimeout time.Duration
}

func NewServer(log *zap.Logger, sessions *session.Manager, fetcher betslip.EventFetcher) *Server {
	return &Server{
		log:           log.With(zap.String("component", "http")),
		sessions:      sessions,
		fetcher:       fetcher,
		FetchTimeout:  betslip.DefaultFetchTimeout,
		SubmitTimeout: 10 * time.Second,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })

	r.Route("/v1/slips/{userID}", func(r chi.Router) {
		r.Get("/", s.getSlip)
		r.Delete("/", s.closeSlip)
		r.Post("/bets", s.addBet)
		r.Patch("/bets/{eventID}/{outcome}", s.updateAmount)
		r.Delete("/bets/{eventID}/{outcome}", s.removeBet)
		r.Post("/accept", s.acceptOdds)
		r.Post("/submit", s.submit)
		r.Post("/clear", s.clear)
		r.Delete("/notification", s.dismiss)
	})
	return r
}

// SlipResponse é o estado derivado do slip mais a notificação visível
type SlipResponse struct {
	betslip.View
	Notification *betslip.Notification `json:"notification,omitempty"`
}

type addBetRequest struct {
	EventID string `json:"eventId"`
	Outcome string `json:"outcome"`
}

type updateAmountRequest struct {
	AmountCents int64 `json:"amount_cents"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Blocker string `json:"blocker,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusFor mapeia os erros do slip para HTTP
func statusFor(err error) int {
	switch {
	case errors.Is(err, betslip.ErrUnknownOutcome),
		errors.Is(err, betslip.ErrInvalidOdds),
		errors.Is(err, betslip.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, betslip.ErrBetNotFound),
		errors.Is(err, betslip.ErrEventNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

func (s *Server) render(w http.ResponseWriter, status int, sess *session.Session) {
	resp := SlipResponse{View: sess.Engine.View()}
	if n, ok := sess.Snackbar.Latest(); ok {
		resp.Notification = &n
	}
	writeJSON(w, status, resp)
}

// session retorna a sessão do path, criando se necessário
func (s *Server) session(r *http.Request) *session.Session {
	return s.sessions.GetOrCreate(chi.URLParam(r, "userID"))
}

// existing retorna a sessão sem criar; responde 404 se não houver
func (s *Server) existing(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, ok := s.sessions.Get(chi.URLParam(r, "userID"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "slip not found"})
	}
	return sess, ok
}

func (s *Server) getSlip(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, s.session(r))
}

func (s *Server) closeSlip(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Close(chi.URLParam(r, "userID")) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "slip not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addBet(w http.ResponseWriter, r *http.Request) {
	var req addBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad json"})
		return
	}
	if req.EventID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "eventId required"})
		return
	}
	outcome, err := betslip.ParseOutcome(req.Outcome)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.FetchTimeout)
	defer cancel()
	ev, err := s.fetcher.FetchEvent(ctx, req.EventID)
	if err != nil {
		s.log.Warn("event fetch failed", zap.String("event_id", req.EventID), zap.Error(err))
		writeError(w, statusFor(err), err)
		return
	}

	sess := s.session(r)
	if _, err := sess.Engine.Store.Add(ev, outcome); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	s.render(w, http.StatusCreated, sess)
}

func (s *Server) pathBet(w http.ResponseWriter, r *http.Request) (string, betslip.Outcome, bool) {
	outcome, err := betslip.ParseOutcome(chi.URLParam(r, "outcome"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return "", "", false
	}
	return chi.URLParam(r, "eventID"), outcome, true
}

func (s *Server) updateAmount(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.existing(w, r)
	if !ok {
		return
	}
	eventID, outcome, ok := s.pathBet(w, r)
	if !ok {
		return
	}
	var req updateAmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad json"})
		return
	}
	if _, err := sess.Engine.Store.UpdateAmount(eventID, outcome, req.AmountCents); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	s.render(w, http.StatusOK, sess)
}

func (s *Server) removeBet(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.existing(w, r)
	if !ok {
		return
	}
	eventID, outcome, ok := s.pathBet(w, r)
	if !ok {
		return
	}
	sess.Engine.Store.Remove(eventID, outcome)
	s.render(w, http.StatusOK, sess)
}

func (s *Server) acceptOdds(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.existing(w, r)
	if !ok {
		return
	}
	sess.Engine.Gate.AcceptCurrentOdds()
	s.render(w, http.StatusOK, sess)
}

func (s *Server) clear(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.existing(w, r)
	if !ok {
		return
	}
	sess.Engine.Store.Clear()
	s.render(w, http.StatusOK, sess)
}

func (s *Server) dismiss(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.existing(w, r)
	if !ok {
		return
	}
	sess.Snackbar.Dismiss()
	s.render(w, http.StatusOK, sess)
}

// submit é síncrono: responde com o resultado do envio
func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.existing(w, r)
	if !ok {
		return
	}
	// o envio não é cancelado se o cliente desconectar
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.SubmitTimeout)
	defer cancel()
	st, err := sess.Engine.Gate.TrySubmit(ctx)
	if err != nil {
		// bloqueado ou já em andamento: nada foi enviado
		writeJSON(w, http.StatusConflict, errorResponse{Error: "bet slip cannot be submitted", Blocker: err.Error()})
		return
	}

	status := http.StatusOK
	switch {
	case st.Phase == betslip.PhaseFailed && st.Category == betslip.FailureInsufficientFunds:
		status = http.StatusPaymentRequired
	case st.Phase == betslip.PhaseFailed:
		status = http.StatusBadGateway
	}
	s.render(w, status, sess)
}
