package logging

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// GinLogrusLogger writes one access log line per handled request through
// logrus. The global formatter already carries a timestamp, so the line
// holds only status, latency, client, and route.
func GinLogrusLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		latency := time.Since(start)
		if latency > time.Minute {
			latency = latency.Truncate(time.Second)
		} else {
			latency = latency.Truncate(time.Millisecond)
		}

		status := c.Writer.Status()
		line := fmt.Sprintf("%3d | %13v | %15s | %-7s %s", status, latency, c.ClientIP(), c.Request.Method, path)
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			line = line + " | " + errs
		}

		switch {
		case status >= http.StatusInternalServerError:
			log.Error(line)
		case status >= http.StatusBadRequest:
			log.Warn(line)
		default:
			log.Info(line)
		}
	}
}

// GinLogrusRecovery recovers handler panics, logs the stack, and answers
// 500 so a panicking relay never takes the server down.
func GinLogrusRecovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.WithFields(log.Fields{
			"panic":  recovered,
			"stack":  string(debug.Stack()),
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Error("recovered from panic in request handler")

		c.AbortWithStatus(http.StatusInternalServerError)
	})
}
