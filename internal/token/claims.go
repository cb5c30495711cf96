package token

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// User types carried in the user_type claim
const (
	UserTypeFaculty = "faculty"
	UserTypeStudent = "student"
)

// Claims represents the access token payload issued by the college API
type Claims struct {
	UserID    int    `json:"user_id"`
	UserType  string `json:"user_type"`
	FacultyID *int   `json:"faculty_id,omitempty"`
	StudentID *int   `json:"student_id,omitempty"`
	jwt.RegisteredClaims
}

// Validate is invoked by the jwt validator after the registered claims pass.
func (c Claims) Validate() error {
	if c.UserType == "" {
		return errors.New("missing user_type claim")
	}
	return nil
}

// IsFaculty reports whether the token belongs to a faculty account
func (c *Claims) IsFaculty() bool {
	return c.UserType == UserTypeFaculty
}

// Pair is the access/refresh token pair returned by POST /api/token/
type Pair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Storage keys shared by the session and the HTTP client
const (
	KeyAccess  = "accessToken"
	KeyRefresh = "refreshToken"
	KeyUser    = "user"
)

// AllKeys lists every persisted key, in the order they are cleared.
var AllKeys = []string{KeyUser, KeyAccess, KeyRefresh}

// TokenType constants
const (
	TokenTypeBearer = "Bearer"
)
