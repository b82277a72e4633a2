package middleware

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/softliumin/Jprotobuf-rpc-socket/message"
)

// LoggingMiddleware logs one line per request with method, log id, and
// duration; failures log at warn with the handler's error.
func LoggingMiddleware() Middleware {
	log := logrus.WithField("component", "server")
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Message) *message.Message {
			start := time.Now()
			resp := next(ctx, req)

			entry := log.WithFields(logrus.Fields{
				"method":   req.ServiceMethod,
				"log_id":   req.LogID,
				"duration": time.Since(start),
			})
			if resp.Error != "" {
				entry.WithField("error", resp.Error).Warn("request failed")
			} else {
				entry.Debug("request handled")
			}
			return resp
		}
	}
}
