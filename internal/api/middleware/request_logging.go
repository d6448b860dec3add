package middleware

import (
	"bytes"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/luispater/CopilotBridge/internal/logging"
	log "github.com/sirupsen/logrus"
)

// RequestLoggingMiddleware creates a Gin middleware that records HTTP
// requests and responses through the provided RequestLogger. When logging
// is disabled the middleware is a passthrough with minimal overhead.
func RequestLoggingMiddleware(logger logging.RequestLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !logger.IsEnabled() {
			c.Next()
			return
		}

		requestInfo, err := captureRequestInfo(c)
		if err != nil {
			log.Warnf("request logging: failed to capture request: %v", err)
			c.Next()
			return
		}

		wrapper := NewResponseWriterWrapper(c.Writer, logger, requestInfo)
		c.Writer = wrapper

		c.Next()

		if err = wrapper.Finalize(); err != nil {
			log.Warnf("request logging: failed to finalize log: %v", err)
		}
	}
}

// captureRequestInfo extracts the URL, method, headers, and body from the
// incoming request. The body is read and then restored so downstream
// handlers can consume it normally.
func captureRequestInfo(c *gin.Context) (*RequestInfo, error) {
	url := c.Request.URL.String()
	if c.Request.URL.Path != "" {
		url = c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			url += "?" + c.Request.URL.RawQuery
		}
	}

	headers := make(map[string][]string)
	for key, values := range c.Request.Header {
		headers[key] = values
	}

	var body []byte
	if c.Request.Body != nil {
		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return nil, err
		}

		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		body = bodyBytes
	}

	return &RequestInfo{
		URL:     url,
		Method:  c.Request.Method,
		Headers: headers,
		Body:    body,
	}, nil
}
