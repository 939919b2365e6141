package dto

import (
	"time"

	"github.com/procurekit/procurement-service/internal/domain"
)

// SwitchProfileRequest payload.
type SwitchProfileRequest struct {
	ProfileID string `json:"profile_id" validate:"required"`
}

// DevLoginRequest payload.
type DevLoginRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// AuthResponse standard response for token-issuing endpoints.
type AuthResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Profile   ProfileResponse `json:"profile"`
}

// ProfileResponse describes one authorization profile.
type ProfileResponse struct {
	ID          string           `json:"id"`
	Email       string           `json:"email"`
	Name        *string          `json:"name"`
	ProfileName string           `json:"profile_name"`
	Roles       []string         `json:"roles"`
	Team        *domain.TeamName `json:"team"`
}

// FlowAssigneesResponse names who acts at each stage of a team's route.
type FlowAssigneesResponse struct {
	Team           domain.TeamName       `json:"team"`
	Route          []domain.TicketStatus `json:"route"`
	FunctionalHead *ProfileResponse      `json:"functional_head"`
	L1Approver     *ProfileResponse      `json:"l1_approver"`
	CFO            *ProfileResponse      `json:"cfo"`
	CDO            *ProfileResponse      `json:"cdo"`
}
