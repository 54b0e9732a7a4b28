package handlers

import (
	"net/http"

	"ticket-marketplace/internal/services"
	"ticket-marketplace/internal/store"
	"ticket-marketplace/models"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type AdminHandler struct {
	store           store.Store
	purchaseService *services.PurchaseService
	sweeper         *services.Sweeper
}

func NewAdminHandler(st store.Store, purchaseService *services.PurchaseService, sweeper *services.Sweeper) *AdminHandler {
	return &AdminHandler{
		store:           st,
		purchaseService: purchaseService,
		sweeper:         sweeper,
	}
}

func (h *AdminHandler) requireSuperuser(e *core.RequestEvent) error {
	if !e.HasSuperuserAuth() {
		return apis.NewUnauthorizedError("Admin access required", nil)
	}
	return nil
}

// GetDashboard - Aggregate counts and settled revenue totals
func (h *AdminHandler) GetDashboard(e *core.RequestEvent) error {
	if err := h.requireSuperuser(e); err != nil {
		return err
	}

	stats, err := h.store.DashboardStats(e.Request.Context())
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, stats)
}

// ListPurchases - Filterable purchase listing
func (h *AdminHandler) ListPurchases(e *core.RequestEvent) error {
	if err := h.requireSuperuser(e); err != nil {
		return err
	}

	q := e.Request.URL.Query()
	purchases, total, err := h.purchaseService.List(e.Request.Context(), store.PurchaseFilter{
		Status:  models.PurchaseStatus(q.Get("status")),
		EventID: q.Get("event_id"),
		Email:   q.Get("email"),
		Page:    pageParam(e),
		Limit:   limitParam(e),
	})
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"items": purchases, "total": total})
}

// ListPayments - Filterable payment listing
func (h *AdminHandler) ListPayments(e *core.RequestEvent) error {
	if err := h.requireSuperuser(e); err != nil {
		return err
	}

	q := e.Request.URL.Query()
	payments, total, err := h.store.ListPayments(e.Request.Context(), store.PaymentFilter{
		Status:    models.PaymentStatus(q.Get("status")),
		Reference: q.Get("reference"),
		Page:      pageParam(e),
		Limit:     limitParam(e),
	})
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"items": payments, "total": total})
}

// UpdatePurchaseStatus - Administrative status override, no inventory change
func (h *AdminHandler) UpdatePurchaseStatus(e *core.RequestEvent) error {
	if err := h.requireSuperuser(e); err != nil {
		return err
	}

	var req struct {
		Status models.PurchaseStatus `json:"status"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	purchaseID := e.Request.PathValue("purchaseId")
	if err := h.purchaseService.UpdateStatus(e.Request.Context(), purchaseID, req.Status); err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"message": "Purchase updated"})
}

// DeletePurchase - Remove a purchase record
func (h *AdminHandler) DeletePurchase(e *core.RequestEvent) error {
	if err := h.requireSuperuser(e); err != nil {
		return err
	}

	purchaseID := e.Request.PathValue("purchaseId")
	if err := h.purchaseService.Delete(e.Request.Context(), purchaseID); err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"message": "Purchase deleted"})
}

// GetSweeperStatus - Sweeper state and last run result
func (h *AdminHandler) GetSweeperStatus(e *core.RequestEvent) error {
	if err := h.requireSuperuser(e); err != nil {
		return err
	}
	return e.JSON(http.StatusOK, h.sweeper.Status())
}

// TriggerSweep - Run one sweep now; 409 if one is already in flight
func (h *AdminHandler) TriggerSweep(e *core.RequestEvent) error {
	if err := h.requireSuperuser(e); err != nil {
		return err
	}

	result, err := h.sweeper.RunOnce(e.Request.Context())
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, result)
}

// StartSweeper - Start the periodic sweep loop
func (h *AdminHandler) StartSweeper(e *core.RequestEvent) error {
	if err := h.requireSuperuser(e); err != nil {
		return err
	}
	h.sweeper.Start()
	return e.JSON(http.StatusOK, map[string]any{"message": "Sweeper started"})
}

// StopSweeper - Stop the periodic sweep loop
func (h *AdminHandler) StopSweeper(e *core.RequestEvent) error {
	if err := h.requireSuperuser(e); err != nil {
		return err
	}
	h.sweeper.Stop()
	return e.JSON(http.StatusOK, map[string]any{"message": "Sweeper stopped"})
}
