package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/propertyloyalty/points-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// RequestID adopts the caller's X-Request-Id when it looks sane, otherwise mints
// a uuid. The id is echoed back and attached to every log line for the request.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if !usableRequestID(id) {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)
			if logg != nil {
				r = r.WithContext(logg.WithRequestID(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// usableRequestID accepts up to 64 characters of [A-Za-z0-9._-], which keeps
// caller-supplied ids safe to log and to echo in a header.
func usableRequestID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	return strings.IndexFunc(id, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return false
		case r == '-' || r == '_' || r == '.':
			return false
		}
		return true
	}) < 0
}
