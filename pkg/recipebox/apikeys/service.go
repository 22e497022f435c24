// Package apikeys issues long-lived bearer tokens as an alternative to JWTs.
// Only a SHA-256 digest of each token is stored; the token itself is shown once.
package apikeys

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mikepea/recipebox/pkg/recipebox/apperr"
	"github.com/mikepea/recipebox/pkg/recipebox/models"
	"github.com/mikepea/recipebox/pkg/recipebox/ownership"
	"gorm.io/gorm"
)

const (
	// TokenPrefix marks recipebox keys so they are recognisable in configs and logs.
	TokenPrefix = "rbk_"
	secretBytes = 32
	// displayLength is how much of a token is kept in clear for listing.
	displayLength = len(TokenPrefix) + 8

	// MaxKeysPerUser bounds how many live keys one account may hold.
	MaxKeysPerUser = 20
	maxDescription = 255
)

// ErrInvalidKey is returned by Authenticate for unknown or revoked tokens.
var ErrInvalidKey = errors.New("invalid API key")

// IssuedKey is a freshly created key together with its one-time secret.
type IssuedKey struct {
	models.APIKey
	Token string
}

// Service manages the caller's API keys.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService creates an API key service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// IsKeyToken reports whether a bearer credential has the API key shape.
func IsKeyToken(token string) bool {
	return strings.HasPrefix(token, TokenPrefix)
}

func newToken() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return TokenPrefix + hex.EncodeToString(b), nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Create issues a key for owner.
func (s *Service) Create(ctx context.Context, owner uint, description string) (*IssuedKey, error) {
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > maxDescription {
		return nil, apperr.Validationf("description", "ensure this field has no more than %d characters", maxDescription)
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}
	key := models.APIKey{
		UserID:      owner,
		KeyHash:     digest(token),
		KeyPrefix:   token[:displayLength],
		Description: description,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var live int64
		if err := tx.Model(&models.APIKey{}).Scopes(ownership.Owned(owner)).Count(&live).Error; err != nil {
			return fmt.Errorf("count keys: %w", err)
		}
		if live >= MaxKeysPerUser {
			return apperr.Validationf("api_key", "no more than %d keys may be active at once", MaxKeysPerUser)
		}
		return tx.Create(&key).Error
	})
	if err != nil {
		return nil, err
	}
	return &IssuedKey{APIKey: key, Token: token}, nil
}

// List returns owner's live keys, newest first.
func (s *Service) List(ctx context.Context, owner uint) ([]models.APIKey, error) {
	var keys []models.APIKey
	err := s.db.WithContext(ctx).
		Scopes(ownership.Owned(owner)).
		Order("created_at DESC").Order("id DESC").
		Find(&keys).Error
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}

// Revoke deletes one of owner's keys. The token stops working immediately.
func (s *Service) Revoke(ctx context.Context, owner, id uint) error {
	key, err := ownership.First[models.APIKey](ctx, s.db, owner, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(key).Error; err != nil {
		return fmt.Errorf("revoke key: %w", err)
	}
	return nil
}

// Authenticate resolves a token to its key and records the use.
// The owning account is not checked here.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.APIKey, error) {
	if !IsKeyToken(token) {
		return nil, ErrInvalidKey
	}
	db := s.db.WithContext(ctx)

	var key models.APIKey
	if err := db.Where("key_hash = ?", digest(token)).Take(&key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidKey
		}
		return nil, fmt.Errorf("find key: %w", err)
	}

	now := s.now()
	if err := db.Model(&key).UpdateColumn("last_used_at", now).Error; err != nil {
		return nil, fmt.Errorf("record key use: %w", err)
	}
	key.LastUsedAt = &now
	return &key, nil
}
