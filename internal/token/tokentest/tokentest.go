// Package tokentest mints access and refresh tokens shaped like the college
// API's for use in tests.
package tokentest

import (
	"fmt"
	"testing"
	"time"

	"github.com/campusdesk/portal/internal/token"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Secret signs every minted token
const Secret = "test-secret-key-minimum-32-chars"

// Faculty mints a valid faculty access token
func Faculty(t testing.TB, userID, facultyID int) string {
	t.Helper()
	return Mint(t, token.Claims{UserID: userID, UserType: token.UserTypeFaculty, FacultyID: &facultyID}, time.Hour)
}

// Student mints a valid student access token
func Student(t testing.TB, userID, studentID int) string {
	t.Helper()
	return Mint(t, token.Claims{UserID: userID, UserType: token.UserTypeStudent, StudentID: &studentID}, time.Hour)
}

// Expired mints a faculty token that expired a minute ago
func Expired(t testing.TB, userID int) string {
	t.Helper()
	return Mint(t, token.Claims{UserID: userID, UserType: token.UserTypeFaculty}, -time.Minute)
}

// Refresh mints an opaque-looking refresh token
func Refresh(t testing.TB, userID int) string {
	t.Helper()
	now := time.Now()
	claims := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
		IssuedAt:  jwt.NewNumericDate(now),
		Subject:   fmt.Sprintf("%d", userID),
		ID:        uuid.New().String(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(Secret))
	if err != nil {
		t.Fatalf("failed to sign refresh token: %v", err)
	}
	return signed
}

// Mint signs claims with Secret; ttl may be negative to produce an expired token.
func Mint(t testing.TB, claims token.Claims, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Minute)),
		ID:        uuid.New().String(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(Secret))
	if err != nil {
		t.Fatalf("failed to sign access token: %v", err)
	}
	return signed
}
