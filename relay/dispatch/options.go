package dispatch

import (
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
)

// Parameters configure queueing of a Dispatcher.
type Parameters struct {
	// QueueTimeout is how long a request waits in the queue for its relays to become ready.
	// Older requests are dropped on the next flush.
	QueueTimeout time.Duration
	// GcInterval enables periodic dropping of expired requests, in addition to the drops done
	// on every flush. Zero disables it.
	GcInterval time.Duration
}

// DefaultParameters returns the default dispatcher parameters.
func DefaultParameters() Parameters {
	return Parameters{
		QueueTimeout: 5 * time.Second,
	}
}

// Validate validates the values in Parameters.
func (p *Parameters) Validate() error {
	if p.QueueTimeout <= 0 {
		return errors.New("relay/dispatch: queue timeout must be positive")
	}
	if p.GcInterval < 0 {
		return errors.New("relay/dispatch: gc interval must not be negative")
	}
	return nil
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock sets the clock queued requests are timed with.
func WithClock(c clock.Clock) Option {
	return func(d *Dispatcher) {
		d.clock = c
	}
}

// WithMetrics turns on metric collection in the dispatcher.
func (d *Dispatcher) WithMetrics() error {
	metrics, err := initMetrics(d)
	if err != nil {
		return fmt.Errorf("relay/dispatch: init metrics: %w", err)
	}
	d.metrics = metrics
	return nil
}
