package middleware

import (
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"
)

// Logger logs one line per request.  Responses with status >= 400 log at
// error level.
func Logger(log *logrus.Logger) echo.MiddlewareFunc {
    if log == nil {
        log = logrus.StandardLogger()
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                // let the error handler write the response so the status is final
                c.Error(err)
            }

            req := c.Request()
            status := c.Response().Status
            entry := log.WithFields(logrus.Fields{
                "method":     req.Method,
                "path":       req.URL.Path,
                "status":     status,
                "duration":   time.Since(start),
                "client_ip":  c.RealIP(),
                "user_agent": req.UserAgent(),
            })
            if a := Actor(c); a != "" {
                entry = entry.WithField("actor", a)
            }
            if status >= 400 {
                entry.Error("request failed")
            } else {
                entry.Info("request processed")
            }
            return nil
        }
    }
}
