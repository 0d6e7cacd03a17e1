// Package monitoring holds the process-wide diagnostic loggers.
//
// Library packages log through Logf and Debugf so that commands decide where
// output goes. Commands install a zap logger with SetZap; tests may mute or
// capture output with SetLogger.
package monitoring

import (
	"go.uber.org/zap"
)

var (
	// Logf is the package-level informational logger. It defaults to a
	// development zap logger but may be replaced by SetLogger or SetZap.
	Logf func(format string, v ...interface{})

	// Debugf receives per-element detail (one line per detector element,
	// skipped identifiers). It is a no-op until SetZap installs a logger.
	Debugf func(format string, v ...interface{}) = func(string, ...interface{}) {}
)

func init() {
	l, err := zap.NewDevelopment()
	if err != nil {
		l = zap.NewNop()
	}
	Logf = l.Sugar().Infof
}

// SetLogger replaces the informational logger. Passing nil will set a no-op
// logger. Debugf is left untouched.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetZap routes Logf and Debugf to the given zap logger. A nil logger mutes
// both.
func SetZap(l *zap.Logger) {
	if l == nil {
		Logf = func(string, ...interface{}) {}
		Debugf = func(string, ...interface{}) {}
		return
	}
	s := l.Sugar()
	Logf = s.Infof
	Debugf = s.Debugf
}
