package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Roles carried in access tokens.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// Claims represents JWT token claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
}

// Identity is the authenticated actor a token is issued for.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
	Issuer            string
}

// DefaultJWTConfig returns default JWT configuration.
func DefaultJWTConfig() *JWTConfig {
	return &JWTConfig{
		AccessTokenExpiry: 15 * time.Minute,
		Issuer:            "sportsclub",
	}
}

// JWTManager issues and validates HS256 access tokens.
type JWTManager struct {
	config *JWTConfig
}

// NewJWTManager creates a new JWT manager.
func NewJWTManager(config *JWTConfig) *JWTManager {
	if config == nil {
		config = DefaultJWTConfig()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 15 * time.Minute
	}
	return &JWTManager{config: config}
}

// GenerateAccessToken generates a new access token for id.
func (m *JWTManager) GenerateAccessToken(id Identity) (string, time.Time, error) {
	if m.config.Secret == "" {
		return "", time.Time{}, ErrMissingSecret
	}
	if id.Role == "" {
		id.Role = RoleMember
	}

	now := time.Now()
	expiresAt := now.Add(m.config.AccessTokenExpiry)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   id.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		UserID: id.UserID,
		Email:  id.Email,
		Role:   id.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.config.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken validates an access token and returns its claims.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	if m.config.Secret == "" {
		return nil, ErrMissingSecret
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if m.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(m.config.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == uuid.Nil {
		return nil, ErrInvalidTokenClaims
	}
	return claims, nil
}

// GetAccessTokenExpiry returns the access token lifetime.
func (m *JWTManager) GetAccessTokenExpiry() time.Duration {
	return m.config.AccessTokenExpiry
}
