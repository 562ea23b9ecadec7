package middleware

import (
	"net/http"
	"time"
)

// Timeout bounds JSON endpoints. Download streams use StreamingTimeout since
// http.TimeoutHandler buffers the whole response.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	message := `{"success":false,"error":"リクエストがタイムアウトしました","code":"REQUEST_TIMEOUT"}`

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, message)
	}
}
