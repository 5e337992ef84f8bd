package token

import (
	"errors"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt"
)

func parsed(t *testing.T, claims jwt.MapClaims) *jwt.Token {
	t.Helper()
	tok, err := ProcessToken(sign(t, claims), hs256)
	if err != nil {
		t.Fatalf("ProcessToken returned error: %v", err)
	}
	return tok
}

func TestSessionsExpiration(t *testing.T) {
	start := time.Unix(time.Now().Unix(), 0)
	now := start
	s := NewSessions(time.Minute)
	s.now = func() time.Time { return now }

	// exp later than the ttl: the ttl wins.
	exp, err := s.Grant("10.0.0.1", parsed(t, jwt.MapClaims{"exp": start.Add(time.Hour).Unix()}))
	if err != nil {
		t.Fatalf("Grant returned error: %v", err)
	}
	if !exp.Equal(start.Add(time.Minute)) {
		t.Errorf("expected expiration %v, got %v", start.Add(time.Minute), exp)
	}

	// exp earlier than the ttl: the token wins.
	exp, err = s.Grant("10.0.0.2", parsed(t, jwt.MapClaims{"exp": start.Add(30 * time.Second).Unix()}))
	if err != nil {
		t.Fatalf("Grant returned error: %v", err)
	}
	if !exp.Equal(start.Add(30 * time.Second)) {
		t.Errorf("expected expiration %v, got %v", start.Add(30*time.Second), exp)
	}

	if !s.Active("10.0.0.1") || !s.Active("10.0.0.2") || s.Active("10.0.0.3") {
		t.Fatalf("unexpected active sessions")
	}

	now = start.Add(45 * time.Second)
	if s.Active("10.0.0.2") {
		t.Errorf("expected 10.0.0.2 to have expired")
	}
	if !s.Active("10.0.0.1") {
		t.Errorf("expected 10.0.0.1 to still be active")
	}

	now = start.Add(2 * time.Minute)
	if s.Len() != 0 {
		t.Errorf("expected no sessions, got %d", s.Len())
	}
}

func TestSessionsExtend(t *testing.T) {
	start := time.Unix(time.Now().Unix(), 0)
	now := start
	s := NewSessions(time.Minute)
	s.now = func() time.Time { return now }
	claims := jwt.MapClaims{"exp": start.Add(time.Hour).Unix()}

	if _, err := s.Grant("10.0.0.1", parsed(t, claims)); err != nil {
		t.Fatalf("Grant returned error: %v", err)
	}
	now = start.Add(50 * time.Second)
	exp, err := s.Grant("10.0.0.1", parsed(t, claims))
	if err != nil {
		t.Fatalf("Grant returned error: %v", err)
	}
	if !exp.Equal(now.Add(time.Minute)) {
		t.Errorf("expected extended expiration %v, got %v", now.Add(time.Minute), exp)
	}
	if s.Len() != 1 {
		t.Errorf("expected one session, got %d", s.Len())
	}

	now = start.Add(90 * time.Second)
	if !s.Active("10.0.0.1") {
		t.Errorf("expected extended session to be active")
	}
}

func TestSessionsRequireExp(t *testing.T) {
	s := NewSessions(time.Minute)
	_, err := s.Grant("10.0.0.1", parsed(t, jwt.MapClaims{"sub": "edge-agent"}))
	if !errors.Is(err, ErrNoExpiration) {
		t.Errorf("expected ErrNoExpiration, got %v", err)
	}
	if _, err := s.Grant("10.0.0.1", nil); err == nil {
		t.Errorf("expected nil token to be rejected")
	}
}
