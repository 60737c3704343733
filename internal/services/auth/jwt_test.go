package auth

import (
	"strconv"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

func signTestToken(t *testing.T, secret string, userID int64, email, role string, ttl time.Duration) string {
	t.Helper()

	now := time.Now().UTC()
	claims := tokenClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign test token: %v", err)
	}
	return signed
}

func TestParseAccessTokenRoundTrip(t *testing.T) {
	manager := NewJWTManager("secret")
	raw := signTestToken(t, "secret", 42, "seller@example.com", "seller", time.Hour)

	claims, err := manager.ParseAccessToken(raw)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}

	if claims.UserID != 42 {
		t.Fatalf("unexpected user id: %d", claims.UserID)
	}
	if claims.Email != "seller@example.com" {
		t.Fatalf("unexpected email: %s", claims.Email)
	}
	if claims.Role != "seller" {
		t.Fatalf("unexpected role: %s", claims.Role)
	}
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	manager := NewJWTManager("secret")
	raw := signTestToken(t, "other-secret", 42, "seller@example.com", "seller", time.Hour)

	if _, err := manager.ParseAccessToken(raw); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	manager := NewJWTManager("secret")
	raw := signTestToken(t, "secret", 42, "seller@example.com", "seller", -time.Minute)

	if _, err := manager.ParseAccessToken(raw); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
