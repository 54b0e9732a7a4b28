package handlers

import (
	"net/http"
	"strconv"

	"ticket-marketplace/internal/services"
	"ticket-marketplace/internal/store"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type PurchaseHandler struct {
	purchaseService *services.PurchaseService
}

func NewPurchaseHandler(purchaseService *services.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{purchaseService: purchaseService}
}

// CreatePurchase - Reserve tickets and open a pending purchase
func (h *PurchaseHandler) CreatePurchase(e *core.RequestEvent) error {
	var req services.CreatePurchaseInput
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	purchase, err := h.purchaseService.Create(e.Request.Context(), req)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusCreated, purchase)
}

// GetPurchase - Get a purchase by id
func (h *PurchaseHandler) GetPurchase(e *core.RequestEvent) error {
	purchaseID := e.Request.PathValue("purchaseId")

	purchase, err := h.purchaseService.GetByID(e.Request.Context(), purchaseID)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, purchase)
}

// ListPurchasesByEmail - Anonymous buyers look up their orders by email
func (h *PurchaseHandler) ListPurchasesByEmail(e *core.RequestEvent) error {
	email := e.Request.URL.Query().Get("email")
	if email == "" {
		return apis.NewBadRequestError("Email required", nil)
	}

	purchases, total, err := h.purchaseService.List(e.Request.Context(), store.PurchaseFilter{
		Email: email,
		Page:  pageParam(e),
		Limit: limitParam(e),
	})
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"items": purchases, "total": total})
}

// CancelPurchase - Cancel a pending purchase and release its tickets
func (h *PurchaseHandler) CancelPurchase(e *core.RequestEvent) error {
	purchaseID := e.Request.PathValue("purchaseId")

	if err := h.purchaseService.Cancel(e.Request.Context(), purchaseID); err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"message": "Purchase cancelled"})
}

// GetTicketQR - Issue the entry code for a paid purchase
func (h *PurchaseHandler) GetTicketQR(e *core.RequestEvent) error {
	purchaseID := e.Request.PathValue("purchaseId")

	code, err := h.purchaseService.GenerateQRCode(e.Request.Context(), purchaseID)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"qr_code": code})
}

func pageParam(e *core.RequestEvent) int {
	if v, err := strconv.Atoi(e.Request.URL.Query().Get("page")); err == nil && v > 0 {
		return v
	}
	return 1
}

func limitParam(e *core.RequestEvent) int {
	if v, err := strconv.Atoi(e.Request.URL.Query().Get("limit")); err == nil && v > 0 && v <= 200 {
		return v
	}
	return 50
}
