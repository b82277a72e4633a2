package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/softliumin/Jprotobuf-rpc-socket/message"
)

// RetryMiddleware re-runs the handler on transient failures (timeouts,
// refused connections) with exponential backoff. Non-retryable errors
// return immediately.
func RetryMiddleware(maxRetries int, baseDelay time.Duration) Middleware {
	log := logrus.WithField("component", "server")
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Message) *message.Message {
			resp := next(ctx, req)
			for i := 0; i < maxRetries; i++ {
				if resp.Error == "" {
					return resp
				}
				if !strings.Contains(resp.Error, "timeout") && !strings.Contains(resp.Error, "connection refused") {
					return resp
				}
				log.WithFields(logrus.Fields{
					"attempt": i + 1,
					"method":  req.ServiceMethod,
					"error":   resp.Error,
				}).Info("retrying request")
				time.Sleep(baseDelay * time.Duration(1<<i))
				resp = next(ctx, req)
			}
			return resp
		}
	}
}
