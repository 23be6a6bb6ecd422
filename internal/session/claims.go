package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"docflow/internal/model"
)

// User is the identity carried by an access token.
type User struct {
	ID    string
	Name  string
	Email string
	Role  model.Role
}

// DecodeToken reads the claims of an access token without verifying its
// signature. The store verifies tokens; the front-end only needs the claims.
func DecodeToken(token string) (User, time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return User{}, time.Time{}, fmt.Errorf("decode access token: %w", err)
	}

	u := User{
		ID:    firstString(claims, "sub", "id"),
		Name:  firstString(claims, "name"),
		Email: firstString(claims, "email"),
	}
	if r, err := model.ParseRole(firstString(claims, "role")); err == nil {
		u.Role = r
	}

	var exp time.Time
	if t, err := claims.GetExpirationTime(); err == nil && t != nil {
		exp = t.Time
	}
	return u, exp, nil
}

func firstString(claims jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		if v, ok := claims[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
