package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"karsaazai/internal/app"
	"karsaazai/internal/ratelimit"
	"karsaazai/internal/usertoken"
	"karsaazai/internal/util"
	"karsaazai/pkg/ai"
	"karsaazai/pkg/domain"
	"karsaazai/pkg/kyc"
	"karsaazai/pkg/store"
)

const (
	maxJSONBody  = 1 << 20
	maxMediaBody = 20 << 20
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App           *app.App
	Store         store.Store
	TokenVerifier *usertoken.Verifier

	RedisAddr            string
	RedisPassword        string
	AIRateLimitPerMinute int

	TrustedProxies []string
}

// Server exposes the AI gateway HTTP endpoints.
type Server struct {
	app           *app.App
	store         store.Store
	tokenVerifier *usertoken.Verifier
	mux           *http.ServeMux
	aiLimiter     *ratelimit.FixedWindowLimiter
	trusted       *util.TrustedProxies
}

// New constructs the server with routes configured. Rate limiting on
// model-backed routes is enabled only when a Redis address is supplied.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, fmt.Errorf("app required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if cfg.TokenVerifier == nil {
		return nil, fmt.Errorf("token verifier required")
	}
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("parse trusted proxies: %w", err)
	}
	var aiLimiter *ratelimit.FixedWindowLimiter
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		limit := cfg.AIRateLimitPerMinute
		if limit <= 0 {
			limit = 30
		}
		aiLimiter, err = ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "karsaaz:gateway:ratelimit:ai", limit, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init ai limiter: %w", err)
		}
	}
	s := &Server{
		app:           cfg.App,
		store:         cfg.Store,
		tokenVerifier: cfg.TokenVerifier,
		mux:           http.NewServeMux(),
		aiLimiter:     aiLimiter,
		trusted:       trusted,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler with the middleware chain applied.
func (s *Server) Router() http.Handler {
	var h http.Handler = s.withRecovery(s.mux)
	h = s.withRequestLogger(h)
	h = util.WithRequestLog("gateway", h)
	h = util.WithRequestID(h)
	h = util.WithCORS(h)
	h = util.WithSecurityHeaders(h)
	return h
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleRoot)
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// support chat
	s.mux.Handle("/ai/support/ask", s.authenticated(s.handleSupportAsk))
	s.mux.Handle("/ai/support/threads", s.authenticated(s.handleThreads))
	s.mux.Handle("/ai/support/threads/", s.authenticated(s.handleThreadMessages))

	// text
	s.mux.Handle("/ai/text/translate", s.authenticated(s.handleTranslate))
	s.mux.Handle("/ai/text/summarize", s.authenticated(s.handleSummarize))
	s.mux.Handle("/ai/text/sentiment", s.authenticated(s.handleSentiment))
	s.mux.Handle("/ai/text/analyze", s.authenticated(s.handleAnalyze))

	// media
	s.mux.Handle("/ai/image/caption", s.authenticated(s.handleCaption))
	s.mux.Handle("/api/speech-to-text", s.authenticated(s.handleSpeechToText))
	s.mux.Handle("/api/vision/verify-cnic", s.authenticated(s.handleVerifyCNIC))
	s.mux.Handle("/api/kyc/face", s.authenticated(s.handleKYCFace))
	s.mux.Handle("/api/kyc/shop", s.authenticated(s.handleKYCShop))

	// admin
	s.mux.Handle("/admin/analytics/metrics", s.adminOnly(s.handleMetrics))
	s.mux.Handle("/ai/analytics/explain", s.adminOnly(s.handleExplainMetrics))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("karsaaz ai gateway is running"))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

type authHandler func(http.ResponseWriter, *http.Request, usertoken.Identity)

// authenticated rejects the request before any external call when the bearer
// token is missing, malformed, or fails verification.
func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, ok := s.authorize(w, r)
		if !ok {
			return
		}
		next(w, r, ident)
	})
}

// adminOnly additionally loads the stored profile and requires the admin
// role. A profile lookup failure is a 500; a missing profile or any other
// role is a 403.
func (s *Server) adminOnly(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, ok := s.authorize(w, r)
		if !ok {
			return
		}
		user, found, err := s.store.GetUserByID(ident.UID)
		if err != nil {
			util.LoggerFromContext(r.Context()).Error("role lookup failed", "user_id", ident.UID, "err", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if !found || user.Role != domain.RoleAdmin {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next(w, r, ident)
	})
}

func (s *Server) authorize(w http.ResponseWriter, r *http.Request) (usertoken.Identity, bool) {
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return usertoken.Identity{}, false
	}
	ident, err := s.tokenVerifier.Verify(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return usertoken.Identity{}, false
	}
	return ident, true
}

// withRequestLogger attaches a child logger carrying the request id so
// downstream log lines correlate with the access log.
func (s *Server) withRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := slog.Default().With("request_id", util.RequestIDFromRequest(r))
		next.ServeHTTP(w, r.WithContext(util.ContextWithLogger(r.Context(), logger)))
	})
}

func (s *Server) withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				util.LoggerFromContext(r.Context()).Error("handler panic", "path", r.URL.Path, "panic", rec)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// allowRate gates a model-backed route. No limiter configured means no limit.
func (s *Server) allowRate(w http.ResponseWriter, r *http.Request) bool {
	if s.aiLimiter == nil {
		return true
	}
	key := r.URL.Path + "|" + util.ClientIP(r, s.trusted)
	if s.aiLimiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, "too many requests")
	return false
}

func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// writeAppError maps application failures to the response taxonomy. Upstream
// failures are classified first so their captured bodies can never match a
// client-error branch; bodies and internal detail go to the log, not the
// client, except for CNIC parse diagnostics when debug is on.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	logger := util.LoggerFromContext(r.Context())
	var upstreamAI *ai.UpstreamError
	var upstreamKYC *kyc.UpstreamError
	var parseErr *app.CNICParseError
	switch {
	case errors.As(err, &upstreamAI), errors.As(err, &upstreamKYC):
		logger.Error("upstream failure", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "upstream service error")
	case errors.Is(err, app.ErrThreadForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, app.ErrInvalidEncoding), errors.Is(err, app.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ai.ErrModelNotConfigured), errors.Is(err, kyc.ErrNotConfigured):
		logger.Error("feature not configured", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "feature not configured")
	case errors.Is(err, ai.ErrEmptyModelOutput):
		logger.Error("empty model output", "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "empty model output")
	case errors.As(err, &parseErr):
		logger.Error("cnic extraction parse failed", "err", parseErr.Err, "raw", parseErr.Raw)
		if s.app.Debug() {
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "cnic extraction parse failed",
				"raw":   parseErr.Raw,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "cnic extraction parse failed")
	default:
		logger.Error("request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}
