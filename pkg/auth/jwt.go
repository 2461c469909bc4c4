package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a JWT token is malformed or has invalid signature
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when a JWT token has passed its expiration time
	ErrExpiredToken = errors.New("token has expired")
)

// Claims is the console gateway's JWT payload. SessionID binds the token to
// one registry entry; ActiveRole is informational (the registry entry is the
// authority) and lets the browser render without a round trip.
type Claims struct {
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	SessionID  string `json:"session_id"`
	ActiveRole string `json:"active_role,omitempty"`
	jwt.RegisteredClaims
}

// JWTManager handles JWT token generation and verification for the console
type JWTManager struct {
	secretKey     string
	tokenDuration time.Duration
}

// NewJWTManager creates a new JWT manager with the specified secret key and token duration
func NewJWTManager(secretKey string, tokenDuration time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:     secretKey,
		tokenDuration: tokenDuration,
	}
}

// TokenDuration returns the configured token lifetime.
func (manager *JWTManager) TokenDuration() time.Duration {
	return manager.tokenDuration
}

// Generate creates a new console token bound to a session and active role.
func (manager *JWTManager) Generate(userID, username, sessionID, activeRole string) (string, error) {
	claims := &Claims{
		UserID:     userID,
		Username:   username,
		SessionID:  sessionID,
		ActiveRole: activeRole,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(manager.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(manager.secretKey))
}

// Verify validates a JWT token and returns the parsed claims if valid
func (manager *JWTManager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return []byte(manager.secretKey), nil
		},
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}

	if time.Now().After(claims.ExpiresAt.Time) {
		return nil, ErrExpiredToken
	}

	return claims, nil
}
