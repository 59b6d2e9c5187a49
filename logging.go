package rtos

import (
	"os"
	"sync"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/izerolog"
	"github.com/rs/zerolog"
)

// globalLogger holds the package-wide structured logger used by the
// Scheduler and Kernel for diagnostic events (task panics, transform
// failures, idle-task crash-loop trips). Exposed as a logiface.Logger so
// embedders may swap in their own zerolog.Logger, or any other logiface
// backend, without this package depending on a concrete logging library
// beyond what it configures by default.
var globalLogger struct {
	sync.RWMutex
	l *logiface.Logger[logiface.Event]
}

func init() {
	SetLogger(defaultLogger())
}

func defaultLogger() *logiface.Logger[logiface.Event] {
	z := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	return izerolog.L.New(
		izerolog.L.WithZerolog(z),
		izerolog.L.WithLevel(izerolog.L.LevelInformational()),
	).Logger()
}

// SetLogger replaces the package-wide logger. Passing nil restores the
// default zerolog-backed console logger.
func SetLogger(l *logiface.Logger[logiface.Event]) {
	if l == nil {
		l = defaultLogger()
	}
	globalLogger.Lock()
	defer globalLogger.Unlock()
	globalLogger.l = l
}

func logger() *logiface.Logger[logiface.Event] {
	globalLogger.RLock()
	defer globalLogger.RUnlock()
	return globalLogger.l
}
