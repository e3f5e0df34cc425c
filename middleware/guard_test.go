package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/activity"
	"github.com/MrEthical07/goSession/gate"
	"github.com/stretchr/testify/require"
)

type stubDecider struct {
	decision gate.Decision
	err      error
	paths    []string
}

func (s *stubDecider) Decide(_ context.Context, path string) (gate.Decision, error) {
	s.paths = append(s.paths, path)
	return s.decision, s.err
}

func okHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d, ok := DecisionFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(d.Reason))
	})
}

func TestGuardRendersWithDecision(t *testing.T) {
	dec := &stubDecider{decision: gate.Decision{Action: gate.ActionRender, Reason: gate.ReasonAllowed}}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/feed?tab=new", nil)

	Guard(dec)(okHandler(t)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, gate.ReasonAllowed, rec.Body.String())
	require.Equal(t, []string{"/feed?tab=new"}, dec.paths)
}

func TestGuardRedirectStatusByMethod(t *testing.T) {
	tests := []struct {
		method string
		want   int
	}{
		{http.MethodGet, http.StatusFound},
		{http.MethodHead, http.StatusFound},
		{http.MethodPost, http.StatusSeeOther},
		{http.MethodDelete, http.StatusSeeOther},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			dec := &stubDecider{decision: gate.Decision{Action: gate.ActionRedirectLogin, Target: "/login"}}
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, "/member/jobs", nil)

			Guard(dec)(okHandler(t)).ServeHTTP(rec, req)

			require.Equal(t, tt.want, rec.Code)
			require.Equal(t, "/login", rec.Header().Get("Location"))
		})
	}
}

func TestGuardErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	Guard(&stubDecider{err: goSession.ErrNotInitialized})(okHandler(t)).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	Guard(&stubDecider{err: errors.New("boom")})(okHandler(t)).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = httptest.NewRecorder()
	Guard(nil)(okHandler(t)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTrackActivityEmitsClick(t *testing.T) {
	hub := activity.NewHub()
	var got []activity.Signal
	unsubscribe := hub.Subscribe(func(s activity.Signal) { got = append(got, s) })
	defer unsubscribe()

	h := TrackActivity(hubRecorder{hub})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/feed", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/feed", nil))

	require.Equal(t, []activity.Signal{activity.SignalClick, activity.SignalClick}, got)
}

type hubRecorder struct{ hub *activity.Hub }

func (h hubRecorder) RecordActivity(s activity.Signal) { h.hub.Emit(s) }
