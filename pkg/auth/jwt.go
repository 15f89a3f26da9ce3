package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin is the role required to trigger syncs and read stats.
const RoleAdmin = "admin"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSecret     = errors.New("jwt secret not configured")
)

var (
	mu        sync.RWMutex
	jwtSecret []byte
)

// Claims carries the identity issued by the access-control service
type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the caller may run admin operations
func (c *Claims) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}

// SetSecret installs the shared HMAC secret. Call once at startup.
func SetSecret(secret string) {
	mu.Lock()
	defer mu.Unlock()
	jwtSecret = []byte(secret)
}

func secret() ([]byte, error) {
	mu.RLock()
	defer mu.RUnlock()
	if len(jwtSecret) == 0 {
		return nil, ErrNoSecret
	}
	return jwtSecret, nil
}

// GenerateToken issues a signed HS256 token. The catalog service only
// validates tokens in production; this exists for the CLI and tests.
func GenerateToken(userID uint, username, role string, ttl time.Duration) (string, error) {
	key, err := secret()
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := &Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}

// ValidateToken parses and verifies a token string
func ValidateToken(tokenString string) (*Claims, error) {
	key, err := secret()
	if err != nil {
		return nil, err
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
