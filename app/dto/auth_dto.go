// Package dto contains Data Transfer Objects for API request and response structures
package dto

// LoginRequest represents the request payload for user login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255" example:"agent@casaflow.io"`
	Password string `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
}

// AuthUserDTO represents user information returned in login responses
type AuthUserDTO struct {
	ID        uint   `json:"id" example:"123"`
	UUID      string `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Email     string `json:"email" example:"agent@casaflow.io"`
	FullName  string `json:"full_name" example:"Laura Mendes"`
	IsActive  *bool  `json:"is_active" example:"true"`
	CreatedAt string `json:"created_at" example:"2026-01-15T10:30:00Z"`
}

// SessionDTO represents the token pair issued on login
type SessionDTO struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type" example:"Bearer"`
	ExpiresIn    int    `json:"expires_in" example:"86400"`
}

// TenantMembershipDTO represents one tenant the user belongs to
type TenantMembershipDTO struct {
	TenantID   uint   `json:"tenant_id" example:"7"`
	TenantUUID string `json:"tenant_uuid" example:"550e8400-e29b-41d4-a716-446655440001"`
	TenantName string `json:"tenant_name" example:"Horizonte Imóveis"`
	TenantSlug string `json:"tenant_slug" example:"horizonte-imoveis"`
	Role       string `json:"role" example:"admin"`
}

// LoginResponse represents the successful login response
type LoginResponse struct {
	User    AuthUserDTO           `json:"user"`
	Session SessionDTO            `json:"session"`
	Tenants []TenantMembershipDTO `json:"tenants"`
}

// RefreshTokenRequest represents the request to rotate a token pair
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}
