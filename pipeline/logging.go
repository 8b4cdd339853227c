package pipeline

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// LoggingTripper logs every request that reaches the wrapped round tripper.
func LoggingTripper(next http.RoundTripper) http.RoundTripper {
	return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		start := time.Now()
		resp, err := next.RoundTrip(req)

		event := log.Debug()
		if err != nil {
			event = log.Warn().Err(err)
		}
		event = event.
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Str("kind", KindFrom(req.Context()).String()).
			Bool("retry", IsRetried(req.Context())).
			Dur("took", time.Since(start))
		if resp != nil {
			event = event.Int("status", resp.StatusCode)
		}
		event.Msg("http request")
		return resp, err
	})
}
