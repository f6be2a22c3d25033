package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linkcut/linkcut/internal/handler/dto"
	"github.com/linkcut/linkcut/internal/service"
)

// AdminHandler provides admin-only account and plan operations.
// All routes are mounted behind RequireAdmin.
type AdminHandler struct {
	svc    *service.AdminService
	logger *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(svc *service.AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		svc:    svc,
		logger: logger,
	}
}

// UserListResponse represents the admin user listing.
type UserListResponse struct {
	Users []dto.UserResponse `json:"users"`
	Total int                `json:"total"`
}

// ListUsers handles GET /admin/users.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	_, limit := paginationParams(r)

	users, err := h.svc.ListUsers(r.Context(), limit)
	if err != nil {
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	response := UserListResponse{
		Users: make([]dto.UserResponse, 0, len(users)),
		Total: len(users),
	}
	for _, user := range users {
		response.Users = append(response.Users, dto.ToUserResponse(user))
	}

	writeJSON(w, http.StatusOK, response)
}

// AssignPlan handles POST /admin/users/{id}/plan.
// Starts a fresh subscription and resets the user's quota period.
func (h *AdminHandler) AssignPlan(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_USER_ID", "User ID is required")
		return
	}

	var req dto.AssignPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if req.PlanID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_PLAN_ID", "plan_id is required")
		return
	}

	sub, err := h.svc.AssignPlan(r.Context(), userID, req.PlanID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
		case errors.Is(err, service.ErrPlanNotFound):
			writeError(w, http.StatusNotFound, "PLAN_NOT_FOUND", "Plan not found")
		default:
			h.logger.Error("internal_error", "error", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		}
		return
	}

	h.logger.Info("plan_assigned",
		"user_id", userID,
		"plan_id", req.PlanID,
		"subscription_id", sub.ID,
	)

	writeJSON(w, http.StatusCreated, sub)
}
