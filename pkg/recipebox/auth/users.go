package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mikepea/recipebox/pkg/recipebox/apperr"
	"github.com/mikepea/recipebox/pkg/recipebox/models"
	"gorm.io/gorm"
)

// ErrInvalidCredentials is returned when an email/password pair does not
// match an active account.
var ErrInvalidCredentials = errors.New("unable to authenticate with provided credentials")

// DefaultMinPasswordLength applies when a UserService is built with a
// non-positive minimum.
const DefaultMinPasswordLength = 5

// NewUser holds the fields needed to create an account.
type NewUser struct {
	Email       string
	Password    string
	Name        string
	IsStaff     bool
	IsSuperuser bool
}

// UserUpdate holds self-service changes. Nil fields are left untouched.
type UserUpdate struct {
	Name     *string
	Password *string
}

// UserService creates, authenticates and updates accounts.
type UserService struct {
	db                *gorm.DB
	minPasswordLength int
}

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// NewUserService creates a user service
func NewUserService(db *gorm.DB, minPasswordLength int) *UserService {
	if minPasswordLength <= 0 {
		minPasswordLength = DefaultMinPasswordLength
	}
	return &UserService{db: db, minPasswordLength: minPasswordLength}
}

func (s *UserService) checkPassword(password string) error {
	if len(password) < s.minPasswordLength {
		return apperr.Validationf("password", "must be at least %d characters", s.minPasswordLength)
	}
	if len(password) > MaxPasswordBytes {
		return apperr.Validationf("password", "must be at most %d bytes", MaxPasswordBytes)
	}
	return nil
}

// Create stores a new account. The email domain is lower-cased and must not
// already be registered.
func (s *UserService) Create(ctx context.Context, in NewUser) (*models.User, error) {
	email := models.NormalizeEmail(in.Email)
	if email == "" {
		return nil, apperr.Validation("email", "this field is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperr.Validation("name", "this field is required")
	}
	if err := s.checkPassword(in.Password); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.User{}).Unscoped().Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		return nil, apperr.Validation("email", "user with this email already exists")
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(in.Name),
		IsActive:     true,
		IsStaff:      in.IsStaff || in.IsSuperuser,
		IsSuperuser:  in.IsSuperuser,
	}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Validation("email", "user with this email already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

// Authenticate returns the active account matching email and password.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive || !CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// Get loads an account by id.
func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Update applies self-service changes to the account with the given id.
// A new password is hashed before storage.
func (s *UserService) Update(ctx context.Context, id uint, in UserUpdate) (*models.User, error) {
	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.Validation("name", "may not be blank")
		}
		updates["name"] = name
	}
	if in.Password != nil {
		if err := s.checkPassword(*in.Password); err != nil {
			return nil, err
		}
		hash, err := HashPassword(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		updates["password_hash"] = hash
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return user, nil
	}
	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return s.Get(ctx, id)
}
