package dto

import (
	"time"

	"github.com/triagehq/triage-service/internal/domain"
)

// InviteAgentRequest payload.
type InviteAgentRequest struct {
	Email string           `json:"email"`
	Role  domain.AgentRole `json:"role"`
}

// AcceptInvitationRequest payload.
type AcceptInvitationRequest struct {
	Token    string `json:"token"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// InvitationResponse one pending invitation.
type InvitationResponse struct {
	ID        string           `json:"id"`
	Email     string           `json:"email"`
	Role      domain.AgentRole `json:"role"`
	Token     string           `json:"token,omitempty"`
	ExpiresAt time.Time        `json:"expires_at"`
	CreatedAt time.Time        `json:"created_at"`
}

// InvitationFromDomain maps one invitation. The token is only included
// when the caller just created it.
func InvitationFromDomain(i *domain.Invitation, includeToken bool) InvitationResponse {
	resp := InvitationResponse{
		ID:        i.ID,
		Email:     i.Email,
		Role:      i.Role,
		ExpiresAt: i.ExpiresAt,
		CreatedAt: i.CreatedAt,
	}
	if includeToken {
		resp.Token = i.Token
	}
	return resp
}
