// Package requestid assigns each request a UUID for log and trace
// correlation.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"ringkv/pkg/requestcontext"
)

// Header carries the request ID on responses and may supply one on
// requests from trusted upstream proxies.
const Header = "X-Request-Id"

// RequestID injects a request ID into the context and echoes it on the
// response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(Header)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(Header, reqID)
		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
