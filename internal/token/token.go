package token

import (
	"errors"
	"fmt"

	jwt "github.com/golang-jwt/jwt"
)

var ErrMissingToken = errors.New("query token required")

// ProcessToken parses and validates token with keyfunc. A nil keyfunc
// disables verification and any token, including none, is accepted.
func ProcessToken(token string, keyfunc jwt.Keyfunc) (*jwt.Token, error) {
	if keyfunc == nil {
		return nil, nil
	}
	if token == "" {
		return nil, ErrMissingToken
	}

	resultToken, err := jwt.Parse(token, keyfunc)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	if !resultToken.Valid {
		return nil, errors.New("token is not valid")
	}
	return resultToken, nil
}

// Subject returns the sub claim, or "" when absent.
func Subject(token *jwt.Token) string {
	if token == nil {
		return ""
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	sub, _ := claims["sub"].(string)
	return sub
}
