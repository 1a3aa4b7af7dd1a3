package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dental-admin/internal/handler"
)

// multipartOverhead leaves room for part headers and boundaries around an
// upload that is exactly at the attachment limit.
const multipartOverhead = 64 << 10

// SizeLimit rejects request bodies larger than maxBytes. Bodies without a
// Content-Length are capped while being read. 0 disables the limit.
func SizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		limit := maxBytes + multipartOverhead
		if c.Request.ContentLength > limit {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, handler.NewErrorResponse(
				fmt.Sprintf("request body exceeds %d bytes", maxBytes)))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
