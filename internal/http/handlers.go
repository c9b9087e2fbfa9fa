package http

import (
	"net/http"
	"time"

	"registro/internal/core"
	applog "registro/internal/log"
)

// handleRunBatch is the trigger endpoint for one batch run. The secret may
// be embedded in the path or carried in the X-Trigger-Secret header; the
// gate rejects mismatches before any store I/O happens.
func (s *Server) handleRunBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	if !s.rateLimiter.allow(extractClientIP(r)) {
		logger.WarnContext(ctx, "Trigger request rate limited",
			applog.FieldClientIP, extractClientIP(r))
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	secret := r.PathValue("secret")
	if secret == "" {
		secret = r.Header.Get("X-Trigger-Secret")
	}

	if err := s.gate.Authorize(secret); err != nil {
		logger.WarnContext(ctx, "Unauthorized trigger request",
			applog.FieldClientIP, extractClientIP(r))
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	today := core.Truncated(time.Now())
	report, err := s.runner.ProcessDueRules(ctx, today)
	if err != nil {
		logger.ErrorContext(ctx, "Batch run failed",
			applog.FieldRunDate, today.String(),
			applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "batch run failed")
		return
	}

	writeJSON(w, http.StatusOK, runResponse{Count: report.Processed()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
