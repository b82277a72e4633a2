package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/softliumin/Jprotobuf-rpc-socket/message"
)

// RateLimitMiddleware rejects requests above the token-bucket rate r with
// burst capacity burst.
func RateLimitMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Message) *message.Message {
			if !limiter.Allow() {
				return &message.Message{
					ServiceMethod: req.ServiceMethod,
					LogID:         req.LogID,
					Error:         "rate limit exceeded",
				}
			}
			return next(ctx, req)
		}
	}
}
