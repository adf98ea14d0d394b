package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu        sync.RWMutex
	debugMode bool
	output    io.Writer = os.Stderr
	base      zerolog.Logger
	logger    zerolog.Logger
)

func init() {
	rebuild()
}

// SetOutput redirects all log output to w using the console format
func SetOutput(w io.Writer) {
	mu.Lock()
	output = w
	rebuild()
	mu.Unlock()
}

func SetDebugMode(debug bool) {
	mu.Lock()
	debugMode = debug
	rebuild()
	mu.Unlock()

	if debug {
		Info("Debug mode enabled - detailed logging activated")
	}
}

func IsDebugMode() bool {
	mu.RLock()
	defer mu.RUnlock()
	return debugMode
}

// WithComponent returns a child logger annotated with the given component name
func WithComponent(component string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base.With().Str("component", component).Logger()
}

func Debug(format string, v ...interface{}) {
	l := current()
	l.Debug().Msg(fmt.Sprintf(format, v...))
}

func Info(format string, v ...interface{}) {
	l := current()
	l.Info().Msg(fmt.Sprintf(format, v...))
}

func Warn(format string, v ...interface{}) {
	l := current()
	l.Warn().Msg(fmt.Sprintf(format, v...))
}

func Error(format string, v ...interface{}) {
	l := current()
	l.Error().Msg(fmt.Sprintf(format, v...))
}

func Fatal(format string, v ...interface{}) {
	l := current()
	l.Fatal().Msg(fmt.Sprintf(format, v...))
}

func LogOperation(operation string, start time.Time, err error) {
	duration := time.Since(start)
	if err != nil {
		Error("Operation '%s' failed after %v: %v", operation, duration, err)
	} else {
		if IsDebugMode() {
			Debug("Operation '%s' completed in %v", operation, duration)
		} else {
			Info("Operation '%s' completed", operation)
		}
	}
}

func LogHTTPRequest(method, url string, statusCode int, duration time.Duration) {
	l := current()
	l.Debug().
		Str("method", method).
		Str("url", url).
		Int("status", statusCode).
		Dur("duration", duration).
		Msg("http request")
}

func current() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// rebuild must be called with mu held
func rebuild() {
	level := zerolog.InfoLevel
	if debugMode {
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: output, TimeFormat: time.DateTime, NoColor: true}
	base = zerolog.New(writer).With().Timestamp().Logger().Level(level)

	logger = base
	if debugMode {
		// one extra frame for the printf-style wrappers below
		logger = base.With().CallerWithSkipFrameCount(zerolog.CallerSkipFrameCount + 1).Logger()
	}
}
