package conf

import (
	"fmt"
	"slices"
	"strings"
)

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (l *Log) setDefaults() {
	l.Level = strings.ToLower(strings.TrimSpace(l.Level))
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "console"
	}
}

func (l *Log) validate() []error {
	var errors []error

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, l.Level) {
		errors = append(errors, fmt.Errorf("log level must be one of: %v", validLevels))
	}
	if l.Format != "console" && l.Format != "json" {
		errors = append(errors, fmt.Errorf("log format must be 'console' or 'json'"))
	}
	return errors
}
