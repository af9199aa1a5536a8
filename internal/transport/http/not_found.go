package http

import "net/http"

// NotFoundHandler answers every unrouted path with the service's JSON
// error shape instead of the stdlib plain-text 404.
func NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "route not found: "+r.URL.Path)
	})
}
