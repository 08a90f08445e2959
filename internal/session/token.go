package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pzaremba/sprintdesk/internal/domain"
)

// decodeIdentity extracts the subject and expiry claims from an access token.
// The client never verifies signatures; the backend does that on every call.
func decodeIdentity(access string) (*domain.Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenDecode, err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("%w: missing subject claim", ErrTokenDecode)
	}

	var expiresAt time.Time
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}

	return &domain.Identity{Subject: sub, ExpiresAt: expiresAt}, nil
}
