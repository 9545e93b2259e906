package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/dalgona/diary/internal/model"
	"github.com/dalgona/diary/pkg/jwt"
)

// RefreshToken represents a stored refresh token
type RefreshToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"` // account ID
	TokenHash string    `json:"token_hash"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	Revoked   bool      `json:"revoked"`
}

// TokenRepository defines the interface for refresh token storage
type TokenRepository interface {
	CreateRefreshToken(ctx context.Context, token *RefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, hash string) (*RefreshToken, error)
	// RevokeRefreshToken revokes the token only if it is still live and
	// reports whether this call did so.
	RevokeRefreshToken(ctx context.Context, hash string) (bool, error)
	RevokeAllUserTokens(ctx context.Context, userID string) error
	DeleteExpiredTokens(ctx context.Context) error
}

// TokenService issues access tokens and rotates opaque refresh tokens
type TokenService struct {
	jwtService      *jwt.Service
	tokenRepo       TokenRepository
	refreshDuration time.Duration
}

// TokenServiceConfig holds configuration for the token service
type TokenServiceConfig struct {
	JWTService      *jwt.Service
	TokenRepo       TokenRepository
	RefreshDuration time.Duration // Default: 30 days
}

// NewTokenService creates a new token service
func NewTokenService(cfg TokenServiceConfig) *TokenService {
	if cfg.RefreshDuration == 0 {
		cfg.RefreshDuration = 30 * 24 * time.Hour
	}

	return &TokenService{
		jwtService:      cfg.JWTService,
		tokenRepo:       cfg.TokenRepo,
		refreshDuration: cfg.RefreshDuration,
	}
}

// TokenPair represents an access token and refresh token pair
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"` // seconds
}

// GenerateTokenPair signs an access token for the account and stores a new
// refresh token. nickname may be empty when the profile row is missing.
func (s *TokenService) GenerateTokenPair(ctx context.Context, account *model.Account, nickname string) (*TokenPair, error) {
	claims := jwt.Claims{
		Subject:  account.ID,
		Email:    account.Email,
		Nickname: nickname,
	}

	accessToken, err := s.jwtService.Sign(claims)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	stored := &RefreshToken{
		UserID:    account.ID,
		TokenHash: hashToken(refreshToken),
		ExpiresAt: now.Add(s.refreshDuration),
		CreatedAt: now,
	}
	if err := s.tokenRepo.CreateRefreshToken(ctx, stored); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.jwtService.GetExpiration().Seconds()),
	}, nil
}

// ConsumeRefreshToken validates a refresh token and revokes it, returning
// the owning account ID. Presenting an already revoked token revokes every
// token of that account. Of two concurrent calls with the same token, only
// one succeeds; the other is treated as reuse.
func (s *TokenService) ConsumeRefreshToken(ctx context.Context, refreshToken string) (string, error) {
	tokenHash := hashToken(refreshToken)

	stored, err := s.tokenRepo.GetRefreshTokenByHash(ctx, tokenHash)
	if err != nil {
		return "", fmt.Errorf("lookup refresh token: %w", err)
	}
	if stored == nil {
		return "", ErrInvalidRefreshToken
	}

	if stored.Revoked {
		return "", s.reused(ctx, stored.UserID)
	}

	if time.Now().After(stored.ExpiresAt) {
		return "", ErrRefreshTokenExpired
	}

	claimed, err := s.tokenRepo.RevokeRefreshToken(ctx, tokenHash)
	if err != nil {
		return "", fmt.Errorf("revoke refresh token: %w", err)
	}
	if !claimed {
		return "", s.reused(ctx, stored.UserID)
	}

	return stored.UserID, nil
}

func (s *TokenService) reused(ctx context.Context, accountID string) error {
	if err := s.tokenRepo.RevokeAllUserTokens(ctx, accountID); err != nil {
		slog.ErrorContext(ctx, "revoke tokens after reuse failed",
			slog.String("account_id", accountID),
			slog.String("error", err.Error()))
	}
	return ErrRefreshTokenRevoked
}

// ValidateAccessToken validates an access token and returns the claims
func (s *TokenService) ValidateAccessToken(token string) (*jwt.Claims, error) {
	return s.jwtService.Validate(token)
}

// RevokeAllUserTokens revokes all refresh tokens for an account
func (s *TokenService) RevokeAllUserTokens(ctx context.Context, accountID string) error {
	return s.tokenRepo.RevokeAllUserTokens(ctx, accountID)
}

// generateRefreshToken creates a cryptographically secure random token
func generateRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// hashToken creates a SHA-256 hash of the token for storage
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
