package api

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenClaims holds the claims the backend places in the bearer token. The
// token is opaque as far as authority goes; claims are decoded unverified and
// used for display and local expiry checks only.
type tokenClaims struct {
	Email  string
	Expiry time.Time // zero when the token carries no expiry
}

func decodeToken(tokenStr string) (*tokenClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(tokenStr, &claims); err != nil {
		return nil, err
	}
	sub, _ := claims.GetSubject()
	tc := &tokenClaims{Email: sub}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		tc.Expiry = exp.Time
	}
	return tc, nil
}

// tokenExpired reports whether the token carries an expiry claim that has
// already passed. Tokens that do not decode, or carry no expiry, are left for
// the backend to judge.
func tokenExpired(tokenStr string) bool {
	claims, err := decodeToken(tokenStr)
	if err != nil {
		return false
	}
	return !claims.Expiry.IsZero() && time.Now().After(claims.Expiry)
}
