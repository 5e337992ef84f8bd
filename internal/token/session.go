package token

import (
	"errors"
	"sort"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt"
)

var ErrNoExpiration = errors.New("token has no exp claim")

type session struct {
	remote     string
	expiration time.Time
}

// Sessions remembers remote addresses that presented a valid token. A
// session lasts until the earlier of the token's exp and now+ttl.
type Sessions struct {
	mu  sync.Mutex
	ttl time.Duration
	now func() time.Time
	// active is sorted by expiration.
	active []session
}

func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{ttl: ttl, now: time.Now}
}

// Grant opens or extends the session of remote and returns its expiration.
func (s *Sessions) Grant(remote string, token *jwt.Token) (time.Time, error) {
	if token == nil || !token.Valid {
		return time.Time{}, errors.New("token is not valid")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return time.Time{}, errors.New("failed to get token claims")
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return time.Time{}, ErrNoExpiration
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	expiration := now.Add(s.ttl)
	if tokenExp := time.Unix(int64(exp), 0); tokenExp.Before(expiration) {
		expiration = tokenExp
	}

	s.expire(now)
	for i, sess := range s.active {
		if sess.remote == remote {
			if !sess.expiration.Before(expiration) {
				return sess.expiration, nil
			}
			s.active = append(s.active[:i], s.active[i+1:]...)
			break
		}
	}

	// New sessions usually expire last, so search from the end.
	idx := len(s.active)
	for idx > 0 && s.active[idx-1].expiration.After(expiration) {
		idx--
	}
	s.active = append(s.active, session{})
	copy(s.active[idx+1:], s.active[idx:])
	s.active[idx] = session{remote: remote, expiration: expiration}
	return expiration, nil
}

// Active reports whether remote holds an unexpired session.
func (s *Sessions) Active(remote string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expire(s.now())
	for _, sess := range s.active {
		if sess.remote == remote {
			return true
		}
	}
	return false
}

// Len returns the number of unexpired sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expire(s.now())
	return len(s.active)
}

func (s *Sessions) expire(now time.Time) {
	n := sort.Search(len(s.active), func(i int) bool {
		return s.active[i].expiration.After(now)
	})
	s.active = s.active[n:]
}
