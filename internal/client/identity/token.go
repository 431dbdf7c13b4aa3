package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoAuthTime = errors.New("id token carries no auth_time")

// AuthTime reads the auth_time claim of an ID token without verifying the
// signature.
func AuthTime(idToken string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return time.Time{}, fmt.Errorf("parse id token: %w", err)
	}

	switch v := claims["auth_time"].(type) {
	case float64:
		return time.Unix(int64(v), 0), nil
	case int64:
		return time.Unix(v, 0), nil
	default:
		return time.Time{}, ErrNoAuthTime
	}
}

// RecentlyAuthenticated reports whether the token's auth_time is within
// window of now. Unreadable tokens count as stale.
func RecentlyAuthenticated(idToken string, window time.Duration, now time.Time) bool {
	at, err := AuthTime(idToken)
	if err != nil {
		return false
	}
	return now.Sub(at) <= window
}
