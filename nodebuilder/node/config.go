package node

import (
	"errors"
	"time"
)

var DefaultLifecycleTimeout = time.Minute * 2

// Config holds the lifecycle settings of the node.
type Config struct {
	StartupTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		StartupTimeout:  DefaultLifecycleTimeout,
		ShutdownTimeout: DefaultLifecycleTimeout,
	}
}

func (c *Config) Validate() error {
	if c.StartupTimeout <= 0 {
		return errors.New("node: startup timeout must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("node: shutdown timeout must be positive")
	}
	return nil
}
