package billing

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gobill/billing-service/internal/domain/models"
	"github.com/gobill/billing-service/internal/services/lifecycle"
	apperrors "github.com/gobill/billing-service/pkg/errors"
	"github.com/gobill/billing-service/pkg/observability"
	"github.com/gobill/billing-service/pkg/resilience"
)

// Handler exposes the subscription lifecycle over HTTP for the application's
// backend. Business-rule violations return 422 with the stable validation
// code; provider failures map to 502 so callers can distinguish them from
// local faults.
type Handler struct {
	service  *lifecycle.Service
	timeouts *resilience.TimeoutConfig
	logger   *zap.Logger
}

// NewHandler creates a billing HTTP handler.
func NewHandler(service *lifecycle.Service, timeouts *resilience.TimeoutConfig, logger *zap.Logger) *Handler {
	return &Handler{
		service:  service,
		timeouts: timeouts,
		logger:   logger,
	}
}

// SubscribeRequest is the request body for POST /api/v1/subscriptions.
type SubscribeRequest struct {
	AccountID string `json:"account_id"`
	PlanCode  string `json:"plan_code"`
	Quantity  int64  `json:"quantity"`
	Source    string `json:"source,omitempty"`
	Coupon    string `json:"coupon,omitempty"`
}

// Subscribe handles POST /api/v1/subscriptions.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "", "only POST method is allowed")
		return
	}

	var req SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "", "malformed request body")
		return
	}
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "", "account_id must be a UUID")
		return
	}

	ctx, cancel := h.timeouts.LifecycleContext(r.Context())
	defer cancel()

	sub, err := h.service.Subscribe(ctx, lifecycle.SubscribeRequest{
		AccountID: accountID,
		PlanCode:  req.PlanCode,
		Quantity:  req.Quantity,
		Source:    req.Source,
		Coupon:    req.Coupon,
	})
	if err != nil {
		observability.RecordSubscriptionOperation("subscribe", "error")
		h.respondServiceError(w, "subscribe", err)
		return
	}

	observability.RecordSubscriptionOperation("subscribe", "success")
	h.respondJSON(w, http.StatusOK, subscriptionResponse(sub))
}

// CancelRequest is the request body for POST /api/v1/subscriptions/cancel.
// A positive quantity below the current one reduces seats instead of
// cancelling.
type CancelRequest struct {
	AccountID string `json:"account_id"`
	Quantity  int64  `json:"quantity,omitempty"`
}

// Cancel handles POST /api/v1/subscriptions/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "", "only POST method is allowed")
		return
	}

	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "", "malformed request body")
		return
	}
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "", "account_id must be a UUID")
		return
	}

	ctx, cancel := h.timeouts.LifecycleContext(r.Context())
	defer cancel()

	sub, err := h.service.Cancel(ctx, lifecycle.CancelRequest{
		AccountID: accountID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		observability.RecordSubscriptionOperation("cancel", "error")
		h.respondServiceError(w, "cancel", err)
		return
	}

	observability.RecordSubscriptionOperation("cancel", "success")
	h.respondJSON(w, http.StatusOK, subscriptionResponse(sub))
}

// ChargeRequest is the request body for POST /api/v1/charges. Amount is in
// the currency's minor unit.
type ChargeRequest struct {
	AccountID    string `json:"account_id"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Description  string `json:"description,omitempty"`
	Source       string `json:"source,omitempty"`
	ReceiptEmail string `json:"receipt_email,omitempty"`
}

// CreateCharge handles POST /api/v1/charges.
func (h *Handler) CreateCharge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "", "only POST method is allowed")
		return
	}

	var req ChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "", "malformed request body")
		return
	}
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "", "account_id must be a UUID")
		return
	}

	ctx, cancel := h.timeouts.LifecycleContext(r.Context())
	defer cancel()

	charge, err := h.service.CreateCharge(ctx, lifecycle.ChargeRequest{
		AccountID:    accountID,
		Amount:       req.Amount,
		Currency:     req.Currency,
		Description:  req.Description,
		Source:       req.Source,
		ReceiptEmail: req.ReceiptEmail,
	})
	if err != nil {
		observability.RecordSubscriptionOperation("charge", "error")
		h.respondServiceError(w, "charge", err)
		return
	}

	observability.RecordSubscriptionOperation("charge", "success")
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"id":         charge.ID.String(),
		"charge_ref": charge.ChargeRef,
		"amount":     charge.Amount,
		"currency":   charge.Currency,
		"status":     string(charge.Status),
	})
}

// CreateChargeOrList routes /api/v1/charges by method: POST creates a
// charge, GET lists the account's remote charges.
func (h *Handler) CreateChargeOrList(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.CreateCharge(w, r)
	case http.MethodGet:
		h.ListCharges(w, r)
	default:
		h.respondError(w, http.StatusMethodNotAllowed, "", "only POST and GET methods are allowed")
	}
}

// ListCharges handles GET /api/v1/charges. It lists the account's charges
// from the provider; sync=true mirrors them into local rows.
func (h *Handler) ListCharges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, http.StatusMethodNotAllowed, "", "only GET method is allowed")
		return
	}

	q := r.URL.Query()
	accountID, err := uuid.Parse(q.Get("account_id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "", "account_id must be a UUID")
		return
	}

	req := lifecycle.ListChargesRequest{
		AccountID:     accountID,
		StartingAfter: q.Get("starting_after"),
		Sync:          q.Get("sync") == "true",
	}
	if from := q.Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "", "from must be RFC 3339")
			return
		}
		req.CreatedFrom = &t
	}
	if to := q.Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "", "to must be RFC 3339")
			return
		}
		req.CreatedTo = &t
	}

	ctx, cancel := h.timeouts.LifecycleContext(r.Context())
	defer cancel()

	charges, err := h.service.ListCharges(ctx, req)
	if err != nil {
		h.respondServiceError(w, "list_charges", err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"charges": charges})
}

// ChargeHistory handles GET /api/v1/charges/history: the local charge mirror,
// newest first, without a provider round trip.
func (h *Handler) ChargeHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, http.StatusMethodNotAllowed, "", "only GET method is allowed")
		return
	}

	accountID, err := uuid.Parse(r.URL.Query().Get("account_id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "", "account_id must be a UUID")
		return
	}

	ctx, cancel := h.timeouts.LifecycleContext(r.Context())
	defer cancel()

	history, err := h.service.ChargeHistory(ctx, accountID)
	if err != nil {
		h.respondServiceError(w, "charge_history", err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"charges": history})
}

// EnsureCustomerRequest is the request body for POST /api/v1/customers.
type EnsureCustomerRequest struct {
	AccountID string `json:"account_id"`
	Force     bool   `json:"force,omitempty"`
}

// EnsureCustomer handles POST /api/v1/customers.
func (h *Handler) EnsureCustomer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "", "only POST method is allowed")
		return
	}

	var req EnsureCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "", "malformed request body")
		return
	}
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "", "account_id must be a UUID")
		return
	}

	ctx, cancel := h.timeouts.LifecycleContext(r.Context())
	defer cancel()

	account, err := h.service.EnsureCustomer(ctx, accountID, req.Force)
	if err != nil {
		h.respondServiceError(w, "ensure_customer", err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"account_id":   account.ID.String(),
		"customer_ref": account.Customer(),
	})
}

func subscriptionResponse(sub *models.Subscription) map[string]interface{} {
	return map[string]interface{}{
		"id":               sub.ID.String(),
		"subscription_ref": sub.SubscriptionRef,
		"status":           sub.Status,
		"quantity":         sub.Quantity,
		"active":           sub.Active,
		"cancelled":        sub.Cancelled,
		"period_start":     sub.PeriodStart,
		"period_end":       sub.PeriodEnd,
	}
}

// respondServiceError translates service errors into HTTP status codes.
func (h *Handler) respondServiceError(w http.ResponseWriter, operation string, err error) {
	var ve *apperrors.ValidationError
	if errors.As(err, &ve) {
		h.respondError(w, http.StatusUnprocessableEntity, ve.Code, ve.Message)
		return
	}

	h.logger.Error("Billing operation failed",
		zap.String("operation", operation),
		zap.Error(err),
	)
	var be *apperrors.BillingError
	if errors.As(err, &be) && be.Category == apperrors.CategoryGateway {
		h.respondError(w, http.StatusBadGateway, be.Code, "payment provider request failed")
		return
	}
	h.respondError(w, http.StatusInternalServerError, "", "internal error")
}

func (h *Handler) respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, statusCode int, code, message string) {
	resp := map[string]interface{}{
		"success": false,
		"error":   message,
	}
	if code != "" {
		resp["code"] = code
	}
	h.respondJSON(w, statusCode, resp)
}
