package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const defaultSecret = "recipebox-dev-secret-change-in-production"

var (
	signingMu  sync.RWMutex
	signingKey = []byte(defaultSecret)
	tokenTTL   = 24 * time.Hour
)

// Claims represents the JWT claims
type Claims struct {
	UserID  uint   `json:"user_id"`
	Email   string `json:"email"`
	IsStaff bool   `json:"is_staff"`
	jwt.RegisteredClaims
}

// SetSigningKey configures the HMAC secret and token lifetime.
// Called once at startup; a zero ttl keeps the current lifetime.
func SetSigningKey(secret string, ttl time.Duration) {
	signingMu.Lock()
	defer signingMu.Unlock()
	if secret != "" {
		signingKey = []byte(secret)
	}
	if ttl > 0 {
		tokenTTL = ttl
	}
}

func currentKey() ([]byte, time.Duration) {
	signingMu.RLock()
	defer signingMu.RUnlock()
	return signingKey, tokenTTL
}

// GenerateToken creates a new JWT token for a user
func GenerateToken(userID uint, email string, isStaff bool) (string, error) {
	key, ttl := currentKey()
	now := time.Now()
	claims := &Claims{
		UserID:  userID,
		Email:   email,
		IsStaff: isStaff,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "recipebox",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}

// ValidateToken validates a JWT token and returns the claims
func ValidateToken(tokenString string) (*Claims, error) {
	key, _ := currentKey()
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return key, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
