package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey int

const callerKey contextKey = iota

// Claims is the bearer token payload. Subject carries the caller account.
type Claims struct {
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token identifying account, valid for ttl.
func IssueToken(secret []byte, account string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("api: jwt secret not set")
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken verifies an HS256 token and returns the caller account.
func ParseToken(secret []byte, tokenStr string) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("api: jwt secret not set")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", errors.New("api: invalid or expired token")
	}
	if claims.Subject == "" {
		return "", errors.New("api: token has no subject")
	}
	return claims.Subject, nil
}

// Caller returns the authenticated account stored by the auth middleware.
func Caller(ctx context.Context) string {
	caller, _ := ctx.Value(callerKey).(string)
	return caller
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		caller, err := ParseToken(s.secret, tokenStr)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey, caller)))
	})
}
