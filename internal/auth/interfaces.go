package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/hugh/go-warden/internal/database/models"
)

// Authenticator defines the account lifecycle operations exposed to handlers.
type Authenticator interface {
	StartRegistration(ctx context.Context, email string) error
	CompleteRegistration(ctx context.Context, token, name, password string) (*models.Account, error)
	VerifyEmail(ctx context.Context, token string) (*models.Account, error)
	Login(ctx context.Context, input LoginInput) (*AuthResponse, error)
	GoogleLogin(ctx context.Context, rawToken string) (*AuthResponse, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	GetAccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// TokenService defines the interface for JWT session operations.
type TokenService interface {
	GenerateToken(userID uuid.UUID, email, role string, admin bool) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Compile-time interface satisfaction checks
var (
	_ Authenticator = (*Service)(nil)
	_ TokenService  = (*JWTService)(nil)
)
