package devserver

import (
	"fmt"
	"sync"
	"time"

	"github.com/campusdesk/portal/internal/token"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuerName = "campusdesk-devserver"

// Issuer mints and validates the token pairs handed out by the devserver.
// Refresh tokens rotate: each one may be exchanged once.
type Issuer struct {
	key        []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	decoder    *token.Decoder

	mu   sync.Mutex
	used map[string]time.Time // jti -> expiry of rotated refresh tokens
}

// NewIssuer creates a new token issuer
func NewIssuer(signingKey, refreshKey string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		key:        []byte(signingKey),
		refreshKey: []byte(refreshKey),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		decoder:    token.NewDecoder(token.WithVerifyKey(signingKey)),
		used:       make(map[string]time.Time),
	}
}

func (i *Issuer) sign(claims jwt.Claims, key []byte) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

// Generate generates a new token pair for acct
func (i *Issuer) Generate(acct *account) (*token.Pair, error) {
	now := time.Now()

	accessClaims := token.Claims{
		UserID:   acct.ID,
		UserType: acct.userType(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(i.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuerName,
			Subject:   fmt.Sprintf("%d", acct.ID),
			ID:        uuid.New().String(),
		},
	}
	if acct.FacultyID != 0 {
		id := acct.FacultyID
		accessClaims.FacultyID = &id
	}
	if acct.StudentID != 0 {
		id := acct.StudentID
		accessClaims.StudentID = &id
	}

	access, err := i.sign(accessClaims, i.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshClaims := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(i.refreshTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Issuer:    issuerName,
		Subject:   fmt.Sprintf("%d", acct.ID),
		ID:        uuid.New().String(),
	}

	refresh, err := i.sign(refreshClaims, i.refreshKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &token.Pair{Access: access, Refresh: refresh}, nil
}

// Validate validates an access token and returns the claims
func (i *Issuer) Validate(tokenString string) (*token.Claims, error) {
	return i.decoder.Decode(tokenString)
}

// Redeem validates a refresh token, marks it used and returns its claims.
// A token that was already redeemed is rejected.
func (i *Issuer) Redeem(tokenString string) (*jwt.RegisteredClaims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return i.refreshKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("failed to parse refresh token: %w", err)
	}

	claims, ok := tok.Claims.(*jwt.RegisteredClaims)
	if !ok || !tok.Valid || claims.ID == "" {
		return nil, fmt.Errorf("invalid refresh token claims")
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	now := time.Now()
	for jti, exp := range i.used {
		if now.After(exp) {
			delete(i.used, jti)
		}
	}
	if _, seen := i.used[claims.ID]; seen {
		return nil, fmt.Errorf("refresh token already used")
	}
	i.used[claims.ID] = claims.ExpiresAt.Time

	return claims, nil
}
