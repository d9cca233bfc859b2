package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/opentracing/opentracing-go/log"

	"github.com/customeros/lexsync/internal/tracing"
)

// TracingMiddleware opens a server span per request, joined to any trace carried in the headers.
func TracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), c.Request.Method+" "+route, c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)
		ext.HTTPMethod.Set(span, c.Request.Method)
		ext.HTTPUrl.Set(span, c.Request.URL.String())

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		ext.HTTPStatusCode.Set(span, uint16(status))
		if status >= 400 {
			tracing.TraceErr(span, fmt.Errorf("http status %d", status), log.String("event", "error"))
		}
	}
}
