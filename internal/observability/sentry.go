package observability

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry is a no-op when no DSN is configured, so local development and
// tests never ship events anywhere.
func InitSentry(dsn, environment string) error {
	if dsn == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
		// Requests to this service carry passwords and tokens; keep
		// identifying request data out of events.
		SendDefaultPII: false,
	})
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}
