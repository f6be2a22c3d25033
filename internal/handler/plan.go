package handler

import (
	"log/slog"
	"net/http"

	"github.com/linkcut/linkcut/internal/handler/dto"
	"github.com/linkcut/linkcut/internal/service"
)

// PlanHandler serves plan and subscription reads.
type PlanHandler struct {
	svc    *service.PlanService
	logger *slog.Logger
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(svc *service.PlanService, logger *slog.Logger) *PlanHandler {
	return &PlanHandler{
		svc:    svc,
		logger: logger,
	}
}

// List handles GET /plans.
func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	plans, err := h.svc.ListPlans(r.Context())
	if err != nil {
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	writeJSON(w, http.StatusOK, plans)
}

// Current handles GET /plans/current. Falls back to the free plan when
// the caller holds no subscription.
func (h *PlanHandler) Current(w http.ResponseWriter, r *http.Request) {
	identity := requireIdentity(w, r)
	if identity == nil {
		return
	}

	sub, plan, err := h.svc.CurrentPlan(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	writeJSON(w, http.StatusOK, dto.CurrentPlanResponse{
		Plan:         plan,
		Subscription: sub,
	})
}
