package serenity

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/serenitystar/serenity-go/pkg/core"
)

// Error is the canonical API error returned by Serenity endpoints.
type Error = core.Error

// Error types.
const (
	ErrInvalidRequest = core.ErrInvalidRequest
	ErrAuthentication = core.ErrAuthentication
	ErrPermission     = core.ErrPermission
	ErrNotFound       = core.ErrNotFound
	ErrRateLimit      = core.ErrRateLimit
	ErrAPI            = core.ErrAPI
)

const defaultRetryAfterSeconds = 60

// TransportError represents HTTP or websocket transport-level failures (DNS,
// timeouts, connection reset, TLS handshake) while talking to the API.
//
// Use errors.As(err, &TransportError{}) to distinguish transport failures
// from canonical API errors (*core.Error).
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Op != "" && e.URL != "":
		return fmt.Sprintf("transport error during %s %s: %v", e.Op, redactURLUserInfo(e.URL), e.Err)
	case e.Op != "":
		return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("transport error: %v", e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func redactURLUserInfo(raw string) string {
	if raw == "" {
		return raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed == nil {
		return raw
	}
	parsed.User = nil
	return parsed.String()
}

// decodeAPIError turns a non-200 response into a canonical error. 429 is
// distinguished: the Retry-After header (default 60 seconds when absent)
// is surfaced as the failure reason. Consumes and closes the body.
func decodeAPIError(resp *http.Response, fallback string) error {
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := parseRetryAfterHeader(resp.Header.Get("Retry-After"))
		return core.NewRateLimitError(
			fmt.Sprintf("rate limit exceeded, retry after %d seconds", retryAfter), retryAfter)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	message := ""
	if err == nil {
		var payload struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &payload) == nil {
			message = strings.TrimSpace(payload.Message)
		}
	}
	if message == "" {
		message = fallback
	}
	return &core.Error{
		Type:    inferErrorType(resp.StatusCode),
		Message: message,
	}
}

func inferErrorType(statusCode int) core.ErrorType {
	switch statusCode {
	case http.StatusBadRequest:
		return core.ErrInvalidRequest
	case http.StatusUnauthorized:
		return core.ErrAuthentication
	case http.StatusForbidden:
		return core.ErrPermission
	case http.StatusNotFound:
		return core.ErrNotFound
	case http.StatusTooManyRequests:
		return core.ErrRateLimit
	default:
		return core.ErrAPI
	}
}

func parseRetryAfterHeader(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultRetryAfterSeconds
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return defaultRetryAfterSeconds
	}
	return seconds
}
