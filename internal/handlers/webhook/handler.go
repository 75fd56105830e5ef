package webhook

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gobill/billing-service/internal/domain/models"
	"github.com/gobill/billing-service/internal/services/webhook"
	apperrors "github.com/gobill/billing-service/pkg/errors"
	"github.com/gobill/billing-service/pkg/resilience"
	"go.uber.org/zap"
)

// maxEventBytes caps the webhook request body. Provider events are small;
// anything larger is not a legitimate delivery.
const maxEventBytes = 1 << 20

// Handler receives provider webhook deliveries over HTTP, enforces the
// source IP allow-list, and hands the event to the ingress pipeline.
//
// Status codes drive the provider's redelivery behavior: 2xx acknowledges
// the event, anything else schedules a retry. Non-retriable processing
// failures are therefore acknowledged with 200 so the provider does not
// redeliver an event that can never succeed.
type Handler struct {
	allowlist *webhook.Allowlist
	ingress   *webhook.Ingress
	timeouts  *resilience.TimeoutConfig
	logger    *zap.Logger
}

// NewHandler creates a webhook HTTP handler.
func NewHandler(allowlist *webhook.Allowlist, ingress *webhook.Ingress, timeouts *resilience.TimeoutConfig, logger *zap.Logger) *Handler {
	return &Handler{
		allowlist: allowlist,
		ingress:   ingress,
		timeouts:  timeouts,
		logger:    logger,
	}
}

// HandleEvent handles POST /webhooks/payment.
func (h *Handler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "only POST method is allowed")
		return
	}

	remoteIP := clientIP(r)
	if !h.allowlist.Allowed(remoteIP) {
		h.logger.Warn("Webhook from unlisted source rejected",
			zap.String("remote_ip", remoteIP),
		)
		h.respondError(w, http.StatusUnauthorized, "source address not allowed")
		return
	}

	var event models.Event
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBytes)).Decode(&event); err != nil {
		h.logger.Warn("Failed to parse webhook body",
			zap.String("remote_ip", remoteIP),
			zap.Error(err),
		)
		h.respondError(w, http.StatusBadRequest, "malformed event payload")
		return
	}
	if event.ID == "" || event.Type == "" {
		h.respondError(w, http.StatusBadRequest, "event id and type are required")
		return
	}

	ctx, cancel := h.timeouts.WebhookContext(r.Context())
	defer cancel()

	if err := h.ingress.Process(ctx, &event); err != nil {
		if apperrors.IsRetriable(err) {
			h.logger.Error("Webhook processing failed, requesting redelivery",
				zap.String("event_id", event.ID),
				zap.String("event_type", event.Type),
				zap.Error(err),
			)
			h.respondError(w, http.StatusInternalServerError, "event processing failed")
			return
		}

		// Permanent failure: acknowledge so the provider stops retrying.
		h.logger.Warn("Webhook permanently rejected",
			zap.String("event_id", event.ID),
			zap.String("event_type", event.Type),
			zap.Error(err),
		)
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"received": true,
		"id":       event.ID,
	})
}

// clientIP extracts the originating client address. Behind a load balancer
// the first X-Forwarded-For hop is the caller; otherwise fall back to the
// connection's remote address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx >= 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	return r.RemoteAddr
}

func (h *Handler) respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, statusCode int, message string) {
	h.respondJSON(w, statusCode, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
