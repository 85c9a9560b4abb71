package middleware

import (
	"net/http"
	"runtime/debug"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// NewRecoverMiddleware is chi's Recoverer with a JSON body: the panic goes to
// the request's log entry and the client sees only a generic 500.
func NewRecoverMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				if entry := chimw.GetLogEntry(r); entry != nil {
					entry.Panic(rec, debug.Stack())
				} else {
					chimw.PrintPrettyStack(rec)
				}
				writeErrorJSON(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
