package middleware

import (
	"io"
	"net/http"
)

// DrainAndCloseRequest drains and closes the request body after the
// handler runs, so that keep-alive connections can be reused even when
// a mutation handler bails out before reading its full JSON payload.
func DrainAndCloseRequest() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			if r.Body != nil {
				_, _ = io.Copy(io.Discard, r.Body)
				_ = r.Body.Close()
			}
		})
	}
}
