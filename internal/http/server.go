package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"registro/internal/core"
	applog "registro/internal/log"
	"registro/internal/services"
)

// BatchRunner is the surface of the scheduler the trigger endpoint drives.
type BatchRunner interface {
	ProcessDueRules(ctx context.Context, today core.Date) (services.RunReport, error)
}

type Server struct {
	http.Server
	gate        *TriggerGate
	runner      BatchRunner
	rateLimiter *rateLimiter
	logger      *applog.Logger

	shutdownOnce sync.Once
}

// Simple in-memory rate limiter. The trigger endpoint is machine-invoked a
// few times a day; anything chattier is either a misconfigured cron or
// someone probing the secret.
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

// startCleanup runs periodic cleanup to remove stale client entries
func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 10 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 10
}

// NewServer configures the trigger endpoint, returning a ready-to-run server.
func NewServer(addr string, gate *TriggerGate, runner BatchRunner, logger *applog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		gate:        gate,
		runner:      runner,
		rateLimiter: newRateLimiter(),
		logger:      logger.WithComponent(applog.ComponentHTTP),
	}

	mux.HandleFunc("POST /api/v1/run/{secret}", s.withMiddleware(s.handleRunBatch))
	mux.HandleFunc("POST /api/v1/run", s.withMiddleware(s.handleRunBatch))
	mux.HandleFunc("GET /healthz", s.withSecurityHeaders(s.handleHealth))
	mux.HandleFunc("GET /readyz", s.withSecurityHeaders(s.handleHealth))

	return s
}

func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	handler := applog.Middleware(s.logger)(
		applog.RequestIDMiddleware(func(*http.Request) string { return generateRequestID() })(
			s.logRequests(next)))
	return s.withSecurityHeaders(handler.ServeHTTP)
}

func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		next(w, r)
	}
}

func (s *Server) logRequests(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		applog.FromContext(r.Context()).InfoContext(r.Context(), "Trigger request",
			applog.FieldMethod, r.Method,
			applog.FieldPath, redactRunPath(r.URL.Path),
			applog.FieldClientIP, extractClientIP(r),
			applog.FieldStatusCode, rec.status,
			applog.FieldDuration, time.Since(start).Milliseconds())
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
