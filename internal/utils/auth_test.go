package utils

import (
	"testing"
	"time"

	"github.com/xelth-com/geoattend/internal/models"
)

func TestPasswordHashing(t *testing.T) {
	password := "secret123"

	// Test Hashing
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	if hash == password {
		t.Error("Hash should not match plaintext password")
	}

	// Test Comparison (Success)
	if !CheckPasswordHash(password, hash) {
		t.Error("Password should match hash")
	}

	// Test Comparison (Failure)
	if CheckPasswordHash("wrongpassword", hash) {
		t.Error("Wrong password should not match hash")
	}
}

func TestAccessToken(t *testing.T) {
	secret := "test-secret-key-12345"
	user := &models.User{ID: "uuid-1234", Email: "ann@example.com", Role: models.RoleManager}

	token, err := GenerateAccessToken(user, secret, time.Now())
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	claims, err := ValidateToken(token, secret)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}
	if claims["id"] != user.ID || claims["role"] != models.RoleManager {
		t.Errorf("Unexpected claims %v", claims)
	}

	// Test Validation (Failure - Wrong Secret)
	if _, err := ValidateToken(token, "wrong-secret"); err == nil {
		t.Error("Token should not validate with wrong secret")
	}

	// Test Validation (Failure - Expired)
	expired, _ := GenerateAccessToken(user, secret, time.Now().Add(-2*AccessTokenTTL))
	if _, err := ValidateToken(expired, secret); err == nil {
		t.Error("Expired token should not validate")
	}
}
