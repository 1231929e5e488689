// Package cli implements the retrocausal command-line interface.
//
// # Commands
//
// The main commands are:
//   - watch: Animate the eraser diagram live in the terminal
//   - render: Replay a record file and write the final frame as SVG, PNG or PDF
//   - serve: Run the engine behind an HTTP control surface
//   - graph: Export the node diagram as DOT or Graphviz SVG
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context. At debug level the engine, feed and HTTP
// hooks log through the same logger.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger returns the command logger. Timestamps carry centiseconds so
// frame-rate problems show up in debug output.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// stopwatch logs how long a replay or conversion step took.
type stopwatch struct {
	logger *log.Logger
	start  time.Time
}

func startStopwatch(l *log.Logger) *stopwatch {
	return &stopwatch{logger: l, start: time.Now()}
}

// donef logs the formatted message with the elapsed time appended,
// e.g. "Replayed 120 of 120 records (1.234s)".
func (s *stopwatch) donef(format string, args ...any) {
	s.logger.Infof("%s (%s)", fmt.Sprintf(format, args...), time.Since(s.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the command logger, or log.Default() for a
// context that never went through the root command.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
