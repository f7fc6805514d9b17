package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"gosurv/domain/core"
	"gosurv/internal"
)

const (
	// RequestIDHeader carries the caller's request identifier in and out
	RequestIDHeader = "X-Request-ID"

	requestIDKey = "request_id"
)

// RequestID is middleware that adopts the caller's X-Request-ID or generates one,
// stores it on the context and echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := core.RequestIDOrNew(c.GetHeader(RequestIDHeader))
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id.String())
		c.Next()
	}
}

// RequestIDFrom returns the request id stored by RequestID, generating one if the
// middleware did not run
func RequestIDFrom(c *gin.Context) core.RequestID {
	if v, ok := c.Get(requestIDKey); ok {
		if id, ok := v.(core.RequestID); ok {
			return id
		}
	}
	return core.NewRequestID()
}

// AccessLog is middleware that logs one line per request at debug level
func AccessLog(logger *internal.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s -> %d in %s (request %s)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start), RequestIDFrom(c))
	}
}
