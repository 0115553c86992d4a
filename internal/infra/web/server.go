package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"qualitative-interview/internal/infra/logging"
	"qualitative-interview/internal/usecase"
)

type Server struct {
	iv           usecase.InterviewUseCase
	sessions     *usecase.SessionRegistry
	auth         *AuthManager // nil when logins are disabled
	limiter      LoginLimiter
	testIdentity string
	quitMessage  string
	log          *zerolog.Logger
}

func NewServer(
	iv usecase.InterviewUseCase,
	sessions *usecase.SessionRegistry,
	auth *AuthManager,
	testIdentity string,
	quitMessage string,
	logger *zerolog.Logger,
) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Server{
		iv:           iv,
		sessions:     sessions,
		auth:         auth,
		testIdentity: testIdentity,
		quitMessage:  quitMessage,
		log:          logger,
	}
}

// WithLoginLimiter enables per-username throttling of password attempts.
func (s *Server) WithLoginLimiter(l LoginLimiter) *Server {
	s.limiter = l
	return s
}

// Router builds the HTTP surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(s.traceMiddleware)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.identityMiddleware)
			r.Get("/interview", s.handleGetInterview)
			r.Post("/interview/start", s.handleStart)
			r.Post("/interview/turns", s.handleTurn)
			r.Post("/interview/retry", s.handleRetry)
			r.Post("/interview/quit", s.handleQuit)
		})
	})
	return r
}

func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := chiMiddleware.GetReqID(ctx); id != "" {
			ctx = logging.WithTraceID(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type ctxKey string

const ctxIdentity ctxKey = "identity"

// identityMiddleware resolves the respondent. Without logins every request
// acts as the test identity.
func (s *Server) identityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username := s.testIdentity
		if s.auth != nil {
			claims, err := s.auth.ParseFromRequest(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Please log in.")
				return
			}
			username = claims.Subject
		}
		ctx := context.WithValue(r.Context(), ctxIdentity, username)
		ctx = logging.WithUsername(ctx, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identity(ctx context.Context) string {
	v, _ := ctx.Value(ctxIdentity).(string)
	return v
}
