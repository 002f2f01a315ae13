package gateway

import (
	"fmt"
	"net"
	"strconv"
)

type Config struct {
	Address string
	Port    string
	Enabled bool
	// Origins allowed to call the gateway from a browser. Empty allows every origin.
	Origins []string
}

func DefaultConfig() Config {
	return Config{
		Address: defaultBindAddress,
		Port:    defaultPort,
		Enabled: true,
	}
}

func (cfg *Config) Validate() error {
	if ip := net.ParseIP(cfg.Address); ip == nil {
		return fmt.Errorf("nodebuilder/gateway: invalid listen address format: %s", cfg.Address)
	}
	_, err := strconv.Atoi(cfg.Port)
	if err != nil {
		return fmt.Errorf("nodebuilder/gateway: invalid port: %s", err.Error())
	}
	return nil
}
