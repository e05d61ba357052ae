package apiutil

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/Aidin1998/foodhub/pkg/errors"
)

// ProblemMiddleware renders the last error attached with c.Error as an
// RFC 7807 response when the handler did not write one itself.
func ProblemMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		if ge, ok := err.(*gin.Error); ok && ge.IsType(gin.ErrorTypeBind) {
			err = errors.Invalid.Explain("request binding failed").Wrap(ge.Err)
		}
		WriteProblem(c, err)
	}
}

// Error records err on the context for logging and writes it as problem
// details.
func Error(c *gin.Context, err error) {
	_ = c.Error(err)
	WriteProblem(c, err)
}

// WriteProblem writes err as an RFC 7807 response and aborts the chain.
func WriteProblem(c *gin.Context, err error) {
	p := errors.FromError(err, c.Request.URL.Path)
	if traceID := GetTraceID(c); traceID != "" {
		p.WithTraceID(traceID)
	}
	c.Header("Content-Type", "application/problem+json")
	c.AbortWithStatusJSON(p.Status, p)
}

// GetTraceID returns the active span's trace id, falling back to the
// X-Trace-ID header.
func GetTraceID(c *gin.Context) string {
	if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return c.GetHeader("X-Trace-ID")
}
