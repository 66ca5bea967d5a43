package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/clearledger-systems/clearledger-stack/common/httputil"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carried by artifact API bearer tokens.
type Claims struct {
	Subject string   `json:"sub_id"`
	Scopes  []string `json:"scopes"`
	jwt.RegisteredClaims
}

type claimsContextKey struct{}

// Auth validates Bearer tokens signed with the shared HMAC secret and
// stashes the claims on the request context.
func Auth(secret string, next http.Handler) http.Handler {
	key := []byte(secret)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			httputil.WriteError(w, http.StatusUnauthorized, "Missing bearer token")
			return
		}

		claims, err := ValidateToken(strings.TrimPrefix(header, "Bearer "), key)
		if err != nil {
			httputil.WriteError(w, http.StatusUnauthorized, "Invalid bearer token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ValidateToken parses and validates a token string against the HMAC key.
func ValidateToken(tokenString string, key []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return key, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// GetClaims returns the validated claims from the request context, if any.
func GetClaims(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsContextKey{}).(*Claims)
	return claims
}
