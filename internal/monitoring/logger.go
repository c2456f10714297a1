package monitoring

import (
	"log"
	"time"
)

// Logf is the package-level diagnostic logger used by the estimators and the
// backtest. It defaults to log.Printf; SetLogger redirects or mutes it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Prefixed returns a logger that writes through Logf with a bracketed
// component tag, e.g. "[ProMap] fitted 120 incidents".
func Prefixed(component string) func(format string, v ...interface{}) {
	prefix := "[" + component + "] "
	return func(format string, v ...interface{}) {
		Logf(prefix+format, v...)
	}
}

// Timed logs the start of a stage and returns a function that logs its
// elapsed wall time. Typical use: defer monitoring.Timed("STKDE", "fit")().
func Timed(component, stage string) func() {
	logf := Prefixed(component)
	start := time.Now()
	logf("%s started", stage)
	return func() {
		logf("%s finished in %s", stage, time.Since(start).Round(time.Millisecond))
	}
}
