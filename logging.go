package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
)

var appLogger hclog.Logger

// SetLogger replaces the process logger.
func SetLogger(logger hclog.Logger) {
	appLogger = logger
}

// GetLogger returns the process logger, creating an info-level one on first use.
func GetLogger() hclog.Logger {
	if appLogger == nil {
		appLogger = newLogger("info")
	}
	return appLogger
}

func newLogger(level string) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   "capferry",
		Level:  hclog.LevelFromString(level),
		Output: os.Stderr,
	})
}

func validLogLevel(level string) error {
	if hclog.LevelFromString(level) == hclog.NoLevel {
		return fmt.Errorf("log level must be one of: trace, debug, info, warn, error (got %q)", strings.ToLower(level))
	}
	return nil
}
