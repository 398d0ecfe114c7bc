// Package monitoring holds the process-wide diagnostic loggers used by the
// parser, catalog and command line tool.
package monitoring

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logf is the package-level diagnostic logger. It defaults to an info-level
// zap console logger on stderr but may be replaced by SetLogger. Tests or
// production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = defaultLogger().Infof

// Debugf receives detail that is only interesting when diagnosing a file,
// such as skipped stimulus sources. It is muted until Configure enables the
// debug level or SetDebugLogger installs a sink.
var Debugf func(format string, v ...interface{}) = func(string, ...interface{}) {}

func defaultLogger() *zap.SugaredLogger {
	return newLogger(zapcore.InfoLevel).Sugar()
}

func newLogger(level zapcore.Level) *zap.Logger {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stderr), level)
	return zap.New(core)
}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetDebugLogger replaces the debug logger. Passing nil mutes it.
func SetDebugLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Debugf = func(string, ...interface{}) {}
		return
	}
	Debugf = f
}

// Configure routes Logf and Debugf through a zap console logger at the
// named level ("debug", "info", "warn", "error"). The returned logger should
// be synced before the process exits.
func Configure(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	l := newLogger(lvl)
	s := l.Sugar()
	Logf = s.Infof
	Debugf = s.Debugf
	return l, nil
}
