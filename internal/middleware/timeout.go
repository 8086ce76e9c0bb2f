package middleware

import (
	"net/http"
	"time"
)

// Timeout wraps non-streaming handlers with an http.TimeoutHandler.
// This protects against slow-read attacks on endpoints that don't use SSE.
// The chat websocket (/ws/chat/{conversationId}) and the notification
// stream (/api/v1/events/subscribe) are long-lived and must NOT be wrapped
// with this middleware.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, `{"success":false,"error":"request timeout"}`)
	}
}
