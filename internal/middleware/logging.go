package middleware

import (
	"net/http"
	"strings"

	"github.com/felixge/httpsnoop"
	"go.uber.org/zap"
)

// RequestLogger logs one line per request with method, path, status and
// duration. Requests under skipPrefixes (static files) are not logged.
func RequestLogger(log *zap.Logger, skipPrefixes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range skipPrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			m := httpsnoop.CaptureMetrics(next, w, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", m.Code),
				zap.Duration("duration", m.Duration),
				zap.Int64("bytes", m.Written),
				zap.String("remote", ClientIP(r)),
			}
			if id, ok := IdentityFromContext(r.Context()); ok {
				fields = append(fields, zap.Uint("userId", id.UserID))
			}
			switch {
			case m.Code >= 500:
				log.Error("http request", fields...)
			case m.Code >= 400:
				log.Warn("http request", fields...)
			default:
				log.Info("http request", fields...)
			}
		})
	}
}
