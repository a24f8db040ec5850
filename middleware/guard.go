package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/taskforge/authcore"
)

type accountContextKey struct{}

// AccountFromContext returns the account resolved by [Guard] for the
// current request.
func AccountFromContext(ctx context.Context) (authcore.Account, bool) {
	acct, ok := ctx.Value(accountContextKey{}).(authcore.Account)
	return acct, ok
}

// Guard authenticates the Authorization bearer token on every request and
// rejects failures with 401 before they reach the wrapped handler.
func Guard(svc *authcore.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if svc == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			acct, err := svc.Authenticate(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), accountContextKey{}, acct)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
