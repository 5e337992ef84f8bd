package token

import (
	"errors"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt"
)

var secret = []byte("secretstring")

func hs256(token *jwt.Token) (interface{}, error) {
	return secret, nil
}

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestProcessToken(t *testing.T) {
	signed := sign(t, jwt.MapClaims{"sub": "edge-agent", "exp": time.Now().Add(time.Minute).Unix()})

	tok, err := ProcessToken(signed, hs256)
	if err != nil {
		t.Fatalf("ProcessToken returned error: %v", err)
	}
	if Subject(tok) != "edge-agent" {
		t.Errorf("expected subject edge-agent, got %q", Subject(tok))
	}
}

func TestProcessTokenRejects(t *testing.T) {
	testCases := []struct {
		name  string
		token string
	}{
		{"expired", sign(t, jwt.MapClaims{"exp": time.Now().Add(-time.Minute).Unix()})},
		{"garbage", "not.a.jwt"},
		{"empty", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ProcessToken(tc.token, hs256); err == nil {
				t.Errorf("expected %s token to be rejected", tc.name)
			}
		})
	}

	if _, err := ProcessToken("", hs256); !errors.Is(err, ErrMissingToken) {
		t.Errorf("expected ErrMissingToken, got %v", err)
	}
}

func TestProcessTokenDisabled(t *testing.T) {
	tok, err := ProcessToken("", nil)
	if err != nil || tok != nil {
		t.Errorf("expected verification to be skipped, got %v %v", tok, err)
	}
	if Subject(tok) != "" {
		t.Errorf("expected empty subject")
	}
}
