package middleware

import (
	"net/http"
	"strings"

	"github.com/frahmantamala/receipt-ledger/internal"
	"github.com/frahmantamala/receipt-ledger/pkg/logger"
)

const UsernameHeader = "X-Username"

// Username reads the caller's self-declared identity from the X-Username
// header, falling back to the username query parameter. Nothing is verified.
func Username(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username := strings.TrimSpace(r.Header.Get(UsernameHeader))
		if username == "" {
			username = strings.TrimSpace(r.URL.Query().Get("username"))
		}
		if username == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := internal.ContextWithUsername(r.Context(), username)
		ctx = logger.With(ctx, "username", username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
