package middleware

import (
	"log/slog"
	"net/http"

	"kicks-exchange/internal/handler/httperr"
	"kicks-exchange/internal/pkg/errs"

	"github.com/gin-gonic/gin"
)

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		for _, e := range c.Errors {
			if resp, ok := e.Meta.(httperr.Response); ok {
				logServerError(c, resp.Status, e.Err)
			}
		}
		if c.Writer.Written() {
			return
		}
		// newest error wins
		for i := len(c.Errors) - 1; i >= 0; i-- {
			err := c.Errors[i]

			if err.IsType(gin.ErrorTypePublic) {
				if resp, ok := err.Meta.(httperr.Response); ok {
					c.JSON(resp.Status, resp)
					return
				}
			}
		}
		// Private errors that still carry an engine mark get the same body
		// the handlers would have produced.
		if last := c.Errors.Last(); last != nil && errs.Classify(last.Err) != errs.ClassInternal {
			resp := httperr.DomainResponse(last.Err)
			c.JSON(resp.Status, resp)
			return
		}
		if status := c.Writer.Status(); status != http.StatusOK {
			c.Status(status)
			c.Writer.WriteHeaderNow()
			return
		}
		if last := c.Errors.Last(); last != nil {
			logServerError(c, http.StatusInternalServerError, last.Err)
		}
		c.JSON(http.StatusInternalServerError, httperr.DomainResponse(errs.New("unhandled error")))
	}
}

func logServerError(c *gin.Context, status int, err error) {
	if status < http.StatusInternalServerError {
		return
	}
	slog.Error("request failed",
		"request_id", GetRequestID(c),
		"path", c.Request.URL.Path,
		"error", err.Error(),
		"stack", errs.ExtractStackLines(err, 8))
}

func CustomRecovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("recovered from panic", "error", err, "path", c.Request.URL.Path, "request_id", GetRequestID(c))

				resp := httperr.DomainResponse(errs.Newf("panic: %v", err))

				c.JSON(http.StatusInternalServerError, resp)
				c.Abort()
			}
		}()
		c.Next()
	}
}
