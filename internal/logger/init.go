package logger

// Initialize sets up the global logger for the given verbosity
// ("debug", "verbose", or "normal"), preferring the Zap backend
// configured from the environment and falling back to the legacy
// logger only if Zap construction fails.
func Initialize(verbosity string) {
	var level Level

	switch verbosity {
	case "debug":
		level = DebugLevel
	case "verbose":
		level = InfoLevel
	default:
		level = ErrorLevel
	}

	if zapLogger, err := NewZapLoggerFromEnv(); err == nil {
		SetLogger(&Logger{zap: zapLogger})
	} else {
		SetLogger(New(level))
	}
}

// WithRun is a convenience function returning a logger scoped to a run
// and (optionally empty) task id.
func WithRun(runID, taskID string) *Logger {
	l := GetLogger()
	if l.zap != nil {
		return &Logger{zap: l.zap.WithRun(runID, taskID)}
	}
	return l.WithFields(map[string]interface{}{"run_id": runID, "task_id": taskID})
}

// Debug is a convenience function that logs to the global logger
func Debug(msg string) {
	GetLogger().Debug(msg)
}

// Debugf is a convenience function that logs to the global logger
func Debugf(format string, args ...interface{}) {
	GetLogger().Debugf(format, args...)
}

// Info is a convenience function that logs to the global logger
func Info(msg string) {
	GetLogger().Info(msg)
}

// Infof is a convenience function that logs to the global logger
func Infof(format string, args ...interface{}) {
	GetLogger().Infof(format, args...)
}

// Warn is a convenience function that logs to the global logger
func Warn(msg string) {
	GetLogger().Warn(msg)
}

// Warnf is a convenience function that logs to the global logger
func Warnf(format string, args ...interface{}) {
	GetLogger().Warnf(format, args...)
}

// Error is a convenience function that logs to the global logger
func Error(msg string) {
	GetLogger().Error(msg)
}

// Errorf is a convenience function that logs to the global logger
func Errorf(format string, args ...interface{}) {
	GetLogger().Errorf(format, args...)
}

// WithField is a convenience function that returns a logger with a field
func WithField(key string, value interface{}) *Logger {
	return GetLogger().WithField(key, value)
}

// WithFields is a convenience function that returns a logger with fields
func WithFields(fields map[string]interface{}) *Logger {
	return GetLogger().WithFields(fields)
}
