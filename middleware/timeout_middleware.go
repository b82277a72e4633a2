package middleware

import (
	"context"
	"time"

	"github.com/softliumin/Jprotobuf-rpc-socket/message"
)

// TimeOutMiddleware fails requests that outlive the given timeout. The
// handler keeps running in its goroutine; only the response is abandoned.
func TimeOutMiddleware(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Message) *message.Message {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			done := make(chan *message.Message, 1)
			go func() {
				done <- next(ctx, req)
			}()

			select {
			case resp := <-done:
				return resp
			case <-ctx.Done():
				return &message.Message{
					ServiceMethod: req.ServiceMethod,
					LogID:         req.LogID,
					Error:         "request timed out",
				}
			}
		}
	}
}
