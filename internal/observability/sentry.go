// Package observability wires optional error reporting.
package observability

import (
	"errors"
	"time"

	"github.com/getsentry/sentry-go"

	apperrors "github.com/campusdesk/portal/pkg/errors"
)

// InitSentry enables error reporting. An empty dsn leaves it disabled.
func InitSentry(dsn, environment string) error {
	if dsn == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
	})
}

// FlushSentry waits for buffered events to be sent
func FlushSentry() {
	sentry.Flush(2 * time.Second)
}

// Reportable reports whether err is worth sending: server and transport
// failures, not the user's own mistakes.
func Reportable(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := apperrors.As(err); !ok {
		return true
	}
	return errors.Is(err, apperrors.ErrServer) ||
		errors.Is(err, apperrors.ErrNetwork) ||
		errors.Is(err, apperrors.ErrNetworkRefresh)
}

// Capture sends err to Sentry when it is reportable. It is a no-op when
// Sentry was never initialised.
func Capture(err error) {
	if Reportable(err) {
		sentry.CaptureException(err)
	}
}
