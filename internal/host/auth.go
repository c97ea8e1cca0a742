package host

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// adminClaims is the bearer token the admin API accepts; tokens are
// provisioned out of band. There is no login endpoint — the bridge has
// no user model, only a single shared embedder secret.
type adminClaims struct {
	jwt.RegisteredClaims
}

// jwtMiddleware guards the admin API: Bearer header, ?token= query
// param, or cookie, validated against a single HMAC secret.
func jwtMiddleware(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerToken(r)
			if tokenStr == "" {
				writeErr(w, http.StatusUnauthorized, "missing token")
				return
			}
			var claims adminClaims
			tok, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return key, nil
			})
			if err != nil || !tok.Valid {
				writeErr(w, http.StatusUnauthorized, "invalid token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	if hdr := r.Header.Get("Authorization"); strings.HasPrefix(hdr, "Bearer ") {
		return strings.TrimPrefix(hdr, "Bearer ")
	}
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok
	}
	if c, err := r.Cookie("admin_token"); err == nil {
		return c.Value
	}
	return ""
}
