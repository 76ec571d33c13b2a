package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueParse(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	token, err := issuer.Issue(42)
	if err != nil {
		t.Fatal(err)
	}
	id, err := issuer.Parse(token)
	if err != nil || id != 42 {
		t.Fatalf("Parse = %d, %v", id, err)
	}
}

func TestParseRejects(t *testing.T) {
	now := time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)
	issuer := NewTokenIssuer("secret", time.Hour)
	issuer.now = func() time.Time { return now }
	valid, _ := issuer.Issue(42)

	other := NewTokenIssuer("another", time.Hour)
	other.now = issuer.now
	foreign, _ := other.Issue(42)

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 42}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	later := NewTokenIssuer("secret", time.Hour)
	later.now = func() time.Time { return now.Add(2 * time.Hour) }

	tests := []struct {
		name   string
		issuer *TokenIssuer
		token  string
	}{
		{"garbage", issuer, "not-a-token"},
		{"wrong secret", issuer, foreign},
		{"unsigned", issuer, none},
		{"expired", later, valid},
	}
	for _, tt := range tests {
		if _, err := tt.issuer.Parse(tt.token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: err = %v, want ErrInvalidToken", tt.name, err)
		}
	}
}
