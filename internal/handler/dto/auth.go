package dto

import (
	"time"

	"github.com/linkcut/linkcut/internal/model"
)

// RegisterRequest represents the request body for account registration.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse represents an account in API responses.
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthResponse carries a fresh access token and the account it belongs to.
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// AssignPlanRequest represents the admin request to put a user on a plan.
type AssignPlanRequest struct {
	PlanID string `json:"plan_id"`
}

// CurrentPlanResponse describes the caller's active plan and subscription.
type CurrentPlanResponse struct {
	Plan         *model.Plan         `json:"plan"`
	Subscription *model.Subscription `json:"subscription,omitempty"`
}

// ToUserResponse converts a User model to UserResponse DTO.
func ToUserResponse(user *model.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}
