package echoutil

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	glog "github.com/labstack/gommon/log"
)

// SetLevel sets the log level of an echo server by name.
//
// level is one of debug|info|warn|error|off. Unknown names fall back
// to info.
func SetLevel(e *echo.Echo, level string) {
	switch strings.ToLower(level) {
	case "debug":
		e.Logger.SetLevel(glog.DEBUG)
		e.Debug = true
	case "info":
		e.Logger.SetLevel(glog.INFO)
	case "warn":
		e.Logger.SetLevel(glog.WARN)
	case "error":
		e.Logger.SetLevel(glog.ERROR)
	case "off":
		e.Logger.SetLevel(glog.OFF)
	default:
		e.Logger.SetLevel(glog.INFO)
		e.Logger.Warnf(`unknown loglevel "%s". fall back to info`, level)
	}
}

// LogHandlerFunc is a middleware logging each request with its
// response status and latency.
func LogHandlerFunc(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		timestamp := time.Now()

		err := next(c)
		if err != nil {
			// let the error handler fix the status before logging.
			c.Error(err)
		}

		c.Logger().Infof(
			"%s %s -> %d (takes %s)",
			req.Method, req.RequestURI, c.Response().Status, time.Since(timestamp),
		)
		return err
	}
}
