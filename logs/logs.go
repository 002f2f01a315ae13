package logs

import logging "github.com/ipfs/go-log/v2"

// SetAllLoggers sets the level of all subsystems. The websocket and fx subsystems stay quieter
// unless debugging.
func SetAllLoggers(level logging.LogLevel) {
	logging.SetAllLoggers(level)
	if level > logging.LevelDebug {
		_ = logging.SetLogLevel("fx", "WARN")
		_ = logging.SetLogLevel("relay", "INFO")
	}
}
