package chatapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
)

// ErrorKind classifies a failed Send into one of the user-facing categories.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindServiceUnavailable
	KindServerError
	KindEndpointMisconfigured
)

func (k ErrorKind) String() string {
	switch k {
	case KindServiceUnavailable:
		return "service_unavailable"
	case KindServerError:
		return "server_error"
	case KindEndpointMisconfigured:
		return "endpoint_misconfigured"
	default:
		return "unknown"
	}
}

// Error is returned by Client.Send for every failure.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	URL        string
	Body       string
	Err        error

	devAddress string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("chatapi: %s: unexpected status %d from %s: %s", e.Kind, e.StatusCode, e.URL, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("chatapi: %s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("chatapi: %s", e.Kind)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// HTTPStatusCode is zero when no response was received.
func (e *Error) HTTPStatusCode() int {
	return e.StatusCode
}

// Message is the single-line text shown to the user.
func (e *Error) Message() string {
	switch e.Kind {
	case KindServiceUnavailable:
		addr := e.devAddress
		if addr == "" {
			addr = DefaultDevAddress
		}
		return "Unable to connect to chat service. Please ensure the backend server is running on " + addr
	case KindServerError:
		return "Server error occurred. Please try again."
	case KindEndpointMisconfigured:
		return "Chat endpoint not found. Please check the API configuration."
	default:
		return "Failed to send message. Please try again."
	}
}

// UserMessage renders any error returned by Send as user-facing text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	return (&Error{Kind: KindUnknown}).Message()
}

// KindOf reports the classification of err, KindUnknown for foreign errors.
func KindOf(err error) ErrorKind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusNotFound:
		return KindEndpointMisconfigured
	case status == http.StatusInternalServerError:
		return KindServerError
	default:
		return KindUnknown
	}
}

// classifyTransport maps an error from http.Client.Do. Caller cancellation
// stays KindUnknown so it is never mistaken for an unreachable backend.
func classifyTransport(ctx context.Context, err error) ErrorKind {
	if errors.Is(err, context.Canceled) || ctx.Err() == context.Canceled {
		return KindUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, syscall.ECONNREFUSED) {
		return KindServiceUnavailable
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindServiceUnavailable
	}
	return KindUnknown
}
