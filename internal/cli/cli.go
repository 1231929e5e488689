package cli

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/retrocausal/pkg/config"
	"github.com/matzehuels/retrocausal/pkg/observability"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "retrocausal"

	// cellWidth and cellHeight are the canvas units behind one terminal cell.
	cellWidth  = 10.0
	cellHeight = 20.0
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger     *log.Logger
	configPath string
	verbose    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level. At debug level engine, feed and
// HTTP events are logged through the observability hooks.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
	if level <= log.DebugLevel {
		registerLogHooks(c.Logger)
	} else {
		observability.Reset()
	}
}

// loadConfig reads --config if given, otherwise the default path if the
// file exists, otherwise the built-in defaults.
func (c *CLI) loadConfig() (*config.Config, error) {
	if c.configPath != "" {
		return config.Load(c.configPath)
	}
	return config.LoadDefault()
}
