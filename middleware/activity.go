package middleware

import (
	"net/http"

	"github.com/MrEthical07/goSession/activity"
)

// ActivityRecorder accepts activity signals. *goSession.Client implements it.
type ActivityRecorder interface {
	RecordActivity(s activity.Signal)
}

// TrackActivity records every request as a click before calling next.
func TrackActivity(rec ActivityRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rec != nil {
				rec.RecordActivity(activity.SignalClick)
			}
			next.ServeHTTP(w, r)
		})
	}
}
