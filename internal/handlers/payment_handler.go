package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"ticket-marketplace/internal/services"
	"ticket-marketplace/internal/services/gateway"
	"ticket-marketplace/internal/status"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

// callbackSignatureHeader carries the gateway's HMAC over the raw body.
const callbackSignatureHeader = "X-Webhook-Signature"

type PaymentHandler struct {
	paymentService *services.PaymentService
	gateway        gateway.Gateway
}

func NewPaymentHandler(paymentService *services.PaymentService, gw gateway.Gateway) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, gateway: gw}
}

// InitiatePayment - Open a payment for a pending purchase
func (h *PaymentHandler) InitiatePayment(e *core.RequestEvent) error {
	var req struct {
		PurchaseID string `json:"purchase_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	result, err := h.paymentService.Initiate(e.Request.Context(), req.PurchaseID)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusCreated, result)
}

// GetPayment - Get a payment by id
func (h *PaymentHandler) GetPayment(e *core.RequestEvent) error {
	paymentID := e.Request.PathValue("paymentId")

	payment, err := h.paymentService.GetByID(e.Request.Context(), paymentID)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, payment)
}

type callbackReq struct {
	Reference  string          `json:"merchant_reference"`
	TrackingID string          `json:"order_tracking_id"`
	Amount     decimal.Decimal `json:"amount"`
	Status     string          `json:"payment_status"`
	Reason     string          `json:"description"`
}

// GatewayCallback - Direct IPN endpoint for gateway payment notifications.
// The callback is authenticated by the gateway adapter before anything is
// applied; a callback that fails verification is rejected with 401. Unknown
// references and already finalized payments are acknowledged with 200 so the
// gateway stops retrying; an amount mismatch is a hard 400.
func (h *PaymentHandler) GatewayCallback(e *core.RequestEvent) error {
	body, err := io.ReadAll(e.Request.Body)
	if err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	var req callbackReq
	if err := json.Unmarshal(body, &req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	ctx := e.Request.Context()

	claim := &gateway.Notification{
		Reference:  req.Reference,
		TrackingID: req.TrackingID,
		Amount:     req.Amount,
		Outcome:    req.Status,
		Reason:     req.Reason,
	}
	if err := h.gateway.VerifyCallback(ctx, claim, body, e.Request.Header.Get(callbackSignatureHeader)); err != nil {
		slog.Error("gateway callback rejected", "reference", req.Reference, "error", err)
		return apis.NewUnauthorizedError("Callback verification failed", nil)
	}
	switch req.Status {
	case gateway.OutcomeCompleted:
		err = h.paymentService.Confirm(ctx, services.ConfirmInput{
			Reference:  req.Reference,
			TrackingID: req.TrackingID,
			Amount:     req.Amount,
		})
	case gateway.OutcomeFailed:
		err = h.paymentService.Fail(ctx, req.Reference, req.Reason)
	default:
		return apis.NewBadRequestError("Unknown payment status", nil)
	}

	switch {
	case err == nil:
	case errors.Is(err, status.ErrPaymentNotFound), errors.Is(err, status.ErrAlreadyFinalized):
		slog.Info("gateway callback acknowledged without effect", "reference", req.Reference, "reason", err.Error())
	default:
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"status": "OK"})
}

// RefundPayment - Refund a completed payment (admin)
func (h *PaymentHandler) RefundPayment(e *core.RequestEvent) error {
	if !e.HasSuperuserAuth() {
		return apis.NewUnauthorizedError("Admin access required", nil)
	}

	paymentID := e.Request.PathValue("paymentId")
	if err := h.paymentService.Refund(e.Request.Context(), paymentID); err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"message": "Payment refunded"})
}
