package resilience

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strconv"
	"strings"
	"syscall"
)

// statusPattern finds the HTTP status our clients embed in their errors
// ("<pkg>: unexpected status 503: ...").
var statusPattern = regexp.MustCompile(`unexpected status (\d{3})`)

// StatusCode extracts an HTTP status code from a client error, or 0.
func StatusCode(err error) int {
	if err == nil {
		return 0
	}
	m := statusPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	code, _ := strconv.Atoi(m[1])
	return code
}

// IsTransientStatus reports whether an HTTP status is worth retrying.
func IsTransientStatus(code int) bool {
	switch code {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// IsTransient reports whether err looks like a temporary failure: a
// retryable HTTP status, a network timeout, or a dropped connection.
// Breaker rejections and caller cancellation are never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, ErrBreakerOpen) || errors.Is(err, context.Canceled) {
		return false
	}

	if IsTransientStatus(StatusCode(err)) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{"connection reset by peer", "broken pipe", "i/o timeout", "tls handshake timeout"} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
