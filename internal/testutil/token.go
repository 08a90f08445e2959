package testutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SignedToken mints a decodable access or refresh token for tests. The
// client never verifies signatures, so the signing key is irrelevant. The
// jti claim keeps tokens minted within the same second distinct, so rotation
// tests can compare pairs by value.
func SignedToken(t *testing.T, subject string, expiresAt time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": expiresAt.Unix(),
		"jti": uuid.New().String(),
	})
	signed, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return signed
}
