package cron

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gobill/billing-service/internal/services/plansync"
	"github.com/gobill/billing-service/pkg/resilience"
	"go.uber.org/zap"
)

// PlanSyncHandler handles the scheduler-invoked plan catalog sync endpoint.
type PlanSyncHandler struct {
	syncer     *plansync.Syncer
	timeouts   *resilience.TimeoutConfig
	logger     *zap.Logger
	cronSecret string
}

// NewPlanSyncHandler creates a plan sync cron handler.
func NewPlanSyncHandler(syncer *plansync.Syncer, timeouts *resilience.TimeoutConfig, logger *zap.Logger, cronSecret string) *PlanSyncHandler {
	return &PlanSyncHandler{
		syncer:     syncer,
		timeouts:   timeouts,
		logger:     logger,
		cronSecret: cronSecret,
	}
}

// SyncPlans handles the POST /cron/sync-plans endpoint.
func (h *PlanSyncHandler) SyncPlans(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "only POST method is allowed")
		return
	}

	if !h.authenticateRequest(r) {
		h.logger.Warn("Unauthorized cron request",
			zap.String("remote_addr", r.RemoteAddr),
		)
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	ctx, cancel := h.timeouts.PlanSyncContext(r.Context())
	defer cancel()

	startTime := time.Now()
	if err := h.syncer.Sync(ctx); err != nil {
		h.logger.Error("Plan sync failed", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "plan sync failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	resp := map[string]interface{}{
		"success":      true,
		"elapsed_ms":   time.Since(startTime).Milliseconds(),
		"processed_at": time.Now().UTC().Format(time.RFC3339),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// authenticateRequest verifies the shared scheduler secret.
func (h *PlanSyncHandler) authenticateRequest(r *http.Request) bool {
	if h.cronSecret == "" {
		return false
	}

	if secret := r.Header.Get("X-Cron-Secret"); secret == h.cronSecret {
		return true
	}

	return r.Header.Get("Authorization") == "Bearer "+h.cronSecret
}

func (h *PlanSyncHandler) respondError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := map[string]interface{}{
		"success": false,
		"error":   message,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode error response", zap.Error(err))
	}
}
