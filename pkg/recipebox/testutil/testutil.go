// Package testutil provides database and user fixtures for package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/mikepea/recipebox/pkg/recipebox/auth"
	"github.com/mikepea/recipebox/pkg/recipebox/config"
	"github.com/mikepea/recipebox/pkg/recipebox/database"
	"github.com/mikepea/recipebox/pkg/recipebox/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TestPassword is the password given to users made by CreateUser.
const TestPassword = "password123"

// NewDB opens a migrated SQLite database in a per-test temp directory.
// A file database is used rather than :memory: so that every pooled
// connection sees the same data.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "test.db"),
		LogLevel: "silent",
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// CreateUser stores an active user with TestPassword.
func CreateUser(t testing.TB, db *gorm.DB, email string) models.User {
	t.Helper()
	hash, err := auth.HashPassword(TestPassword)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	user := models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         "Test User",
		IsActive:     true,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

// CreateStaff stores an active staff user.
func CreateStaff(t testing.TB, db *gorm.DB, email string) models.User {
	t.Helper()
	user := CreateUser(t, db, email)
	if err := db.Model(&user).Update("is_staff", true).Error; err != nil {
		t.Fatalf("Failed to promote test user: %v", err)
	}
	user.IsStaff = true
	return user
}

// AuthHeader returns a bearer header carrying a JWT for user.
func AuthHeader(t testing.TB, user models.User) string {
	t.Helper()
	token, err := auth.GenerateToken(user.ID, user.Email, user.IsStaff)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	return "Bearer " + token
}
