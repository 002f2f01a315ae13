package pool

import (
	"errors"
	"fmt"
	"time"
)

// Parameters configure connection handling and request deadlines of a Pool.
type Parameters struct {
	// ConnectTimeout bounds how long WaitReady and WaitAnyReady wait for relays to become ready.
	ConnectTimeout time.Duration
	// DialTimeout bounds a single websocket dial.
	DialTimeout time.Duration
	// FetchTimeout bounds a FetchEvents call. Fetches that don't wait for EOSE collect events
	// for exactly this long.
	FetchTimeout time.Duration
	// PublishTimeout bounds waiting for relays to acknowledge a published event.
	PublishTimeout time.Duration
	// ReconnectMin is the initial delay before redialing a relay that dropped or failed to dial.
	ReconnectMin time.Duration
	// ReconnectMax caps the exponential reconnect delay.
	ReconnectMax time.Duration
}

// DefaultParameters returns the default pool parameters.
func DefaultParameters() Parameters {
	return Parameters{
		// the application shell historically waited 2 seconds before it considered itself connected
		ConnectTimeout: 2 * time.Second,
		DialTimeout:    10 * time.Second,
		FetchTimeout:   10 * time.Second,
		PublishTimeout: 5 * time.Second,
		ReconnectMin:   time.Second,
		ReconnectMax:   time.Minute,
	}
}

// Validate validates the values in Parameters.
func (p *Parameters) Validate() error {
	if p.ConnectTimeout <= 0 {
		return errors.New("relay/pool: connect timeout must be positive")
	}
	if p.DialTimeout <= 0 {
		return errors.New("relay/pool: dial timeout must be positive")
	}
	if p.FetchTimeout <= 0 {
		return errors.New("relay/pool: fetch timeout must be positive")
	}
	if p.PublishTimeout <= 0 {
		return errors.New("relay/pool: publish timeout must be positive")
	}
	if p.ReconnectMin <= 0 || p.ReconnectMax < p.ReconnectMin {
		return fmt.Errorf("relay/pool: invalid reconnect range [%s, %s]", p.ReconnectMin, p.ReconnectMax)
	}
	return nil
}

// WithMetrics turns on metric collection in the pool.
func (p *Pool) WithMetrics() error {
	metrics, err := initMetrics(p)
	if err != nil {
		return fmt.Errorf("relay/pool: init metrics: %w", err)
	}
	p.metrics = metrics
	return nil
}
