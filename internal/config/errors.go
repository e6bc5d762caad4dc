package config

import "fmt"

// ConfigError is a fatal startup error caused by invalid configuration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}
