package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/magisurprise/backend/pkg/logger"
)

const (
	requestIDHeader = "X-Request-Id"
	// Cloud Run fronts the API and sets this as TRACE_ID/SPAN_ID;o=1.
	cloudTraceHeader = "X-Cloud-Trace-Context"
)

var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{8,64}$`)

// RequestID tags the request with an id echoed in X-Request-Id and the
// logs. A caller id is kept only when it is a plain token of sane length so
// storefront clients cannot inject arbitrary text into log lines.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := strings.TrimSpace(r.Header.Get(requestIDHeader))
			if !requestIDPattern.MatchString(reqID) {
				reqID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
				if trace := cloudTraceID(r.Header.Get(cloudTraceHeader)); trace != "" {
					ctx = logg.WithField(ctx, "trace_id", trace)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func cloudTraceID(header string) string {
	traceID, _, _ := strings.Cut(strings.TrimSpace(header), "/")
	if len(traceID) != 32 || strings.Trim(traceID, "0123456789abcdefABCDEF") != "" {
		return ""
	}
	return strings.ToLower(traceID)
}
