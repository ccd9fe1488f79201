package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/abhisek/selfassess/internal/action"
	"github.com/abhisek/selfassess/internal/attempt"
	"github.com/abhisek/selfassess/internal/behaviour"
	"github.com/abhisek/selfassess/internal/question"
	"github.com/abhisek/selfassess/internal/store"
)

// UserHeader carries the identity of the caller.
const UserHeader = "X-User-ID"

// Server exposes the attempt service over HTTP.
type Server struct {
	svc    *attempt.Service
	logger *zap.Logger
}

// NewServer creates a Server.
func NewServer(svc *attempt.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{svc: svc, logger: logger.Named("http")}
}

// Routes returns the router for all endpoints.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, RequestLogger(s.logger), middleware.Recoverer)

	r.Route("/questions", func(r chi.Router) {
		r.Post("/", s.createQuestion)
		r.Get("/", s.listQuestions)
	})
	r.Route("/attempts", func(r chi.Router) {
		r.Post("/", s.startAttempt)
		r.Get("/", s.listAttempts)
		r.Route("/{attemptID}", func(r chi.Router) {
			r.Get("/", s.getAttempt)
			r.Post("/actions", s.act)
			r.Get("/steps", s.steps)
			r.Get("/expected", s.expected)
		})
	})
	return r
}

// RequestLogger logs one line per request with zap.
func RequestLogger(l *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				l.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("latency", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// badRequest marks input errors that have no typed error of their own.
type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

func statusFor(err error) int {
	var (
		br *badRequest
		ve *action.ValidationError
		fe *question.FieldError
		pe *behaviour.VarError
		ce *attempt.CapabilityError
	)
	switch {
	case errors.As(err, &br), errors.As(err, &ve), errors.As(err, &fe), errors.As(err, &pe), errors.As(err, &ce):
		return http.StatusBadRequest
	case errors.Is(err, attempt.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
