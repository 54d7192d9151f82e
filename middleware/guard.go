package middleware

import (
	"context"
	"net/http"

	"github.com/MrEthical07/shopAuth"
)

type emailContextKey struct{}

// EmailFromContext returns the email attached by [Guard].
func EmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(emailContextKey{}).(string)
	return email, ok && email != ""
}

// Guard rejects requests whose Authorization header does not resolve to a
// live auth token. The response status is the engine's status code.
func Guard(engine *shopAuth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			email, res, err := engine.VerifyAuthorizationHeader(r.Context(), r.Header.Get("Authorization"))
			if err != nil || !res.OK() {
				http.Error(w, http.StatusText(res.Code), res.Code)
				return
			}

			ctx := context.WithValue(r.Context(), emailContextKey{}, email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
