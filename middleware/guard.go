package middleware

import (
	"context"
	"errors"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/gate"
)

type decisionContextKey struct{}

// Decider evaluates a navigation. *goSession.Client implements it.
type Decider interface {
	Decide(ctx context.Context, path string) (gate.Decision, error)
}

// DecisionFromContext returns the decision Guard attached to a rendered
// request.
func DecisionFromContext(ctx context.Context) (gate.Decision, bool) {
	d, ok := ctx.Value(decisionContextKey{}).(gate.Decision)
	return d, ok
}

// Guard runs the access decision for every request URI. Redirects are
// answered with 302 Found for GET and HEAD and 303 See Other otherwise; a
// rendered request reaches next with the decision in its context.
func Guard(decider Decider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if decider == nil {
				http.Error(w, "session unavailable", http.StatusServiceUnavailable)
				return
			}

			d, err := decider.Decide(r.Context(), r.URL.RequestURI())
			if err != nil {
				status := http.StatusInternalServerError
				if errors.Is(err, goSession.ErrNotInitialized) || errors.Is(err, goSession.ErrClosed) {
					status = http.StatusServiceUnavailable
				}
				http.Error(w, "session unavailable", status)
				return
			}

			if d.Redirect() {
				http.Redirect(w, r, d.Target, redirectStatus(r.Method))
				return
			}

			ctx := context.WithValue(r.Context(), decisionContextKey{}, d)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func redirectStatus(method string) int {
	if method == http.MethodGet || method == http.MethodHead {
		return http.StatusFound
	}
	return http.StatusSeeOther
}
