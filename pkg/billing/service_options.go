package billing

import (
	"log/slog"
	"time"
)

// ServiceOption configures a Service instance.
type ServiceOption func(*service)

// WithClock sets the time source used for billing dates. The default is
// time.Now in UTC; tests inject fixed clocks to pin period boundaries.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCache sets the entitlement cache consulted by current-subscription
// lookups. Lifecycle mutations invalidate the affected user's entry.
func WithCache(cache Cache) ServiceOption {
	return func(s *service) {
		if cache != nil {
			s.cache = cache
		}
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *service) {
		if log != nil {
			s.log = log
		}
	}
}
