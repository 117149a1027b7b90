package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/khanhnv2901/seca-suite/internal/api/middleware"
	scanapp "github.com/khanhnv2901/seca-suite/internal/application/scan"
	"github.com/khanhnv2901/seca-suite/internal/domain/cve"
	"github.com/khanhnv2901/seca-suite/internal/domain/finding"
	"github.com/khanhnv2901/seca-suite/internal/domain/panel"
	"github.com/khanhnv2901/seca-suite/internal/domain/post"
	"github.com/khanhnv2901/seca-suite/internal/domain/session"
	"github.com/khanhnv2901/seca-suite/internal/scanner"
	sharedErrors "github.com/khanhnv2901/seca-suite/internal/shared/errors"
)

const maxBodyBytes = 1 << 20

// GateService authenticates API callers
type GateService interface {
	IssueToken(ctx context.Context, username, password string) (string, *session.Session, error)
	Authenticate(ctx context.Context, token string) (*session.Session, error)
	Revoke(ctx context.Context, sess *session.Session, token string) error
	RemainingLockout(ctx context.Context) (time.Duration, error)
}

// ScanService runs scans and serves report history
type ScanService interface {
	Tools() []*scanner.Tool
	Run(ctx context.Context, req scanapp.Request) (*finding.Report, error)
	Cancel(tool string) error
	Panel(tool string) (panel.Snapshot, error)
	Panels() []panel.Snapshot
	ListReports(ctx context.Context, tool string) ([]*finding.Report, error)
	GetReport(ctx context.Context, id string) (*finding.Report, error)
	CVEFeed(filter cve.Filter) []cve.Record
}

// BlogService manages posts
type BlogService interface {
	List(ctx context.Context) ([]*post.Post, error)
	Get(ctx context.Context, id string) (*post.Post, error)
	Create(ctx context.Context, actor *session.Session, content post.Content) (*post.Post, error)
	Update(ctx context.Context, actor *session.Session, id string, content post.Content) (*post.Post, error)
	Delete(ctx context.Context, actor *session.Session, id string) error
}

type Config struct {
	Gate        GateService
	Scans       ScanService
	Blog        BlogService
	Jobs        *JobManager
	Logger      *zap.Logger
	CORSOrigins []string // Allowed CORS origins (empty = allow all)
	RateLimit   int      // Requests per second per IP (0 = disabled)
	RateBurst   int      // Burst size for rate limiter
}

type Server struct {
	cfg      Config
	router   *mux.Router
	handler  http.Handler
	limiters *rateLimiterMap

	// scans started through the API outlive their request
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Jobs == nil {
		cfg.Jobs = NewJobManager()
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv := &Server{
		cfg:      cfg,
		router:   mux.NewRouter(),
		limiters: newRateLimiterMap(),
		baseCtx:  ctx,
		cancel:   cancel,
	}
	srv.routes()
	// RequestID -> Logging -> RateLimit -> CORS -> router
	srv.handler = middleware.RequestID(srv.withLogging(srv.withRateLimit(srv.withCORS(srv.router))))
	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close cancels running scan jobs and waits for them to finish
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
	s.limiters.stop()
}

func (s *Server) routes() {
	s.router.NotFoundHandler = http.HandlerFunc(s.notFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.methodNotAllowed)

	v1 := s.router.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	// Session gate
	v1.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	v1.HandleFunc("/auth/lockout", s.handleLockout).Methods(http.MethodGet)
	v1.Handle("/auth/logout", s.requireSession(s.handleLogout)).Methods(http.MethodPost)
	v1.Handle("/auth/session", s.requireSession(s.handleSession)).Methods(http.MethodGet)

	// Scans
	v1.HandleFunc("/tools", s.handleTools).Methods(http.MethodGet)
	v1.Handle("/scans", s.requireSession(s.handleStartScan)).Methods(http.MethodPost)
	v1.Handle("/jobs", s.requireSession(s.handleJobs)).Methods(http.MethodGet)
	v1.Handle("/jobs/{id}", s.requireSession(s.handleJobByID)).Methods(http.MethodGet)
	v1.Handle("/jobs-stream", s.requireSession(s.handleJobStream)).Methods(http.MethodGet)
	v1.Handle("/panels", s.requireSession(s.handlePanels)).Methods(http.MethodGet)
	v1.Handle("/panels/{tool}", s.requireSession(s.handlePanel)).Methods(http.MethodGet)
	v1.Handle("/panels/{tool}", s.requireSession(s.handleCancelPanel)).Methods(http.MethodDelete)

	// Reports
	v1.Handle("/reports", s.requireSession(s.handleReports)).Methods(http.MethodGet)
	v1.Handle("/reports/{id}", s.requireSession(s.handleReportByID)).Methods(http.MethodGet)
	v1.Handle("/reports/{id}/export", s.requireSession(s.handleReportExport)).Methods(http.MethodGet)
	v1.Handle("/cves", s.requireSession(s.handleCVEs)).Methods(http.MethodGet)

	// Blog
	v1.HandleFunc("/posts", s.handleListPosts).Methods(http.MethodGet)
	v1.HandleFunc("/posts/{id}", s.handleGetPost).Methods(http.MethodGet)
	v1.Handle("/posts", s.requireSession(s.handleCreatePost)).Methods(http.MethodPost)
	v1.Handle("/posts/{id}", s.requireSession(s.handleUpdatePost)).Methods(http.MethodPut)
	v1.Handle("/posts/{id}", s.requireSession(s.handleDeletePost)).Methods(http.MethodDelete)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.RateLimit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		clientIP := clientAddress(r)
		limiter := s.limiters.getLimiter(clientIP, s.cfg.RateLimit, s.cfg.RateBurst)
		if !limiter.Allow() {
			s.requestLogger(r).Warn("rate_limit_exceeded", zap.String("client_ip", clientIP))
			s.writeError(w, r, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		allowOrigin := "*"
		if len(s.cfg.CORSOrigins) > 0 {
			allowOrigin = ""
			for _, allowed := range s.cfg.CORSOrigins {
				if allowed == origin {
					allowOrigin = origin
					break
				}
			}
		}

		if allowOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "3600")
			if allowOrigin != "*" {
				w.Header().Add("Vary", "Origin")
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(lrw, r)

		s.cfg.Logger.Info("http_request",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Int("status", lrw.statusCode),
			zap.Duration("duration", time.Since(start)),
			zap.Int64("bytes", lrw.bytesWritten),
		)
	})
}

// loggingResponseWriter wraps http.ResponseWriter to capture status code and bytes written
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	n, err := lrw.ResponseWriter.Write(b)
	lrw.bytesWritten += int64(n)
	return n, err
}

// Flush lets the job stream push events through the wrapper
func (lrw *loggingResponseWriter) Flush() {
	if f, ok := lrw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	msg := err.Error()

	// 5xx details stay in the server log
	if status >= 500 {
		s.requestLogger(r).Error("internal_server_error",
			zap.Error(err),
			zap.Int("status", status),
		)
		msg = "internal server error"
	}

	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps domain errors to HTTP statuses
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeError(w, r, statusFor(err), err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, sharedErrors.ErrUnauthorized),
		errors.Is(err, sharedErrors.ErrInvalidToken),
		errors.Is(err, sharedErrors.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, sharedErrors.ErrAccountLocked):
		return http.StatusLocked
	case errors.Is(err, sharedErrors.ErrUnknownTool),
		errors.Is(err, sharedErrors.ErrReportNotFound),
		errors.Is(err, sharedErrors.ErrPostNotFound):
		return http.StatusNotFound
	case errors.Is(err, sharedErrors.ErrScanInProgress):
		return http.StatusConflict
	case errors.Is(err, sharedErrors.ErrMissingCredentials),
		errors.Is(err, sharedErrors.ErrInvalidTarget),
		errors.Is(err, sharedErrors.ErrEmptyTarget),
		errors.Is(err, sharedErrors.ErrInvalidPost),
		errors.Is(err, sharedErrors.ErrMissingPostID),
		errors.Is(err, sharedErrors.ErrInvalidSeverity),
		errors.Is(err, sharedErrors.ErrInvalidInput),
		errors.Is(err, sharedErrors.ErrMissingRequired),
		errors.Is(err, sharedErrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, sharedErrors.ErrNoCredentialsConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// requestLogger creates a logger with request context (request ID, method, path)
func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	return s.cfg.Logger.With(
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusNotFound, errors.New("not found"))
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, r, http.StatusBadRequest, errors.New("invalid request body"))
		return false
	}
	return true
}

func (s *Server) writeStreamChunk(w http.ResponseWriter, data []byte) bool {
	if _, err := w.Write(data); err != nil {
		s.cfg.Logger.Error("failed to write stream chunk", zap.Error(err))
		return false
	}
	return true
}

// clientAddress prefers the first X-Forwarded-For hop
func clientAddress(r *http.Request) string {
	addr := r.RemoteAddr
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		addr = strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// rateLimiterMap manages per-IP rate limiters with automatic cleanup
type rateLimiterMap struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	done     chan struct{}
	once     sync.Once
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiterMap() *rateLimiterMap {
	m := &rateLimiterMap{
		limiters: make(map[string]*ipLimiter),
		done:     make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

func (m *rateLimiterMap) getLimiter(ip string, rps, burst int) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if burst <= 0 {
		burst = rps
	}
	entry, exists := m.limiters[ip]
	if !exists {
		entry = &ipLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
		m.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

func (m *rateLimiterMap) stop() {
	m.once.Do(func() { close(m.done) })
}

// cleanupLoop removes limiters that haven't been used in 5 minutes
func (m *rateLimiterMap) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.mu.Lock()
			for ip, entry := range m.limiters {
				if time.Since(entry.lastSeen) > 5*time.Minute {
					delete(m.limiters, ip)
				}
			}
			m.mu.Unlock()
		}
	}
}
