package middleware

import (
	"context"
	"net/http"
	"strings"
)

type userContextKey struct{}

// UserHeader carries the caller identity set by the fronting gateway. The
// service does not authenticate; it only uses the id for path ownership.
const UserHeader = "X-User-ID"

// UserID stores the trimmed X-User-ID header in the request context.
func UserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := strings.TrimSpace(r.Header.Get(UserHeader)); id != "" {
			r = r.WithContext(ContextWithUserID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userContextKey{}).(string); ok {
		return v
	}
	return ""
}

func ContextWithUserID(ctx context.Context, userID string) context.Context {
	if strings.TrimSpace(userID) == "" {
		return ctx
	}
	return context.WithValue(ctx, userContextKey{}, userID)
}
