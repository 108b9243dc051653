package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracing starts a server span per request through otelgin. Requests for
// which a filter returns false are not traced.
func Tracing(serviceName string, filters ...otelgin.Filter) gin.HandlerFunc {
	var opts []otelgin.Option
	if len(filters) > 0 {
		opts = append(opts, otelgin.WithFilter(filters...))
	}
	return otelgin.Middleware(serviceName, opts...)
}

// TraceAttributes copies request and actor IDs onto the server span and marks
// it failed on 5xx. Register it after JWTAuth on authenticated groups.
func TraceAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if id := GetRequestID(c); id != "" {
				span.SetAttributes(attribute.String("request_id", id))
			}
			if user := GetJWTUserID(c); user != "" {
				span.SetAttributes(attribute.String("enduser.id", user))
			}
		}

		c.Next()

		if status := c.Writer.Status(); status >= http.StatusInternalServerError && span.IsRecording() {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

// SkipHealth keeps health probes out of traces
func SkipHealth(r *http.Request) bool {
	return r.URL.Path != "/health"
}
