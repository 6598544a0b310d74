// Package logging provides the process-wide structured-logger singleton
// (spec.md §7: "the logger and the default tokenizer are process-wide
// singletons initialized at startup and torn down on process exit").
package logging

import (
	"sync"

	"github.com/ternarybob/arbor"
	arborcommon "github.com/ternarybob/arbor/common"
	"github.com/ternarybob/arbor/models"

	"github.com/alea-labs/kl3mpipe/internal/config"
)

var (
	globalLogger arbor.ILogger
	loggerMutex  sync.RWMutex
)

// Get returns the global logger. If Init hasn't been called yet, it
// installs and returns a fallback console logger (and warns about the
// missing initialization).
func Get() arbor.ILogger {
	loggerMutex.RLock()
	if globalLogger != nil {
		loggerMutex.RUnlock()
		return globalLogger
	}
	loggerMutex.RUnlock()

	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	if globalLogger == nil {
		globalLogger = arbor.NewLogger().WithConsoleWriter(writerConfig(nil, models.LogWriterTypeConsole))
		globalLogger.Warn().Msg("logging: using fallback console logger - Init was not called during startup")
	}
	return globalLogger
}

// Init stores logger as the global singleton. Callers should invoke this
// exactly once at process startup.
func Init(logger arbor.ILogger) {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	globalLogger = logger
}

// Setup builds a logger from cfg.Logging (console and/or memory writers,
// configurable level) and installs it as the global singleton.
func Setup(cfg *config.Config) arbor.ILogger {
	logger := arbor.NewLogger()

	hasConsole := false
	for _, output := range cfg.Logging.Output {
		if output == "stdout" || output == "console" {
			hasConsole = true
		}
	}
	if hasConsole || len(cfg.Logging.Output) == 0 {
		logger = logger.WithConsoleWriter(writerConfig(cfg, models.LogWriterTypeConsole))
	}
	logger = logger.WithMemoryWriter(writerConfig(cfg, models.LogWriterTypeMemory))
	logger = logger.WithLevelFromString(cfg.Logging.Level)

	Init(logger)
	return logger
}

func writerConfig(cfg *config.Config, t models.LogWriterType) models.WriterConfiguration {
	timeFormat := "15:04:05.000"
	if cfg != nil && cfg.Logging.TimeFormat != "" {
		timeFormat = cfg.Logging.TimeFormat
	}
	return models.WriterConfiguration{
		Type:             t,
		TimeFormat:       timeFormat,
		DisableTimestamp: false,
		MaxSize:          100 * 1024 * 1024,
		MaxBackups:       3,
	}
}

// Stop flushes any buffered log context before process exit. Safe to call
// more than once.
func Stop() {
	arborcommon.Stop()
}
