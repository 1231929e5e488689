package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/retrocausal/pkg/config"
	"github.com/matzehuels/retrocausal/pkg/engine"
	"github.com/matzehuels/retrocausal/pkg/errors"
	"github.com/matzehuels/retrocausal/pkg/event"
	"github.com/matzehuels/retrocausal/pkg/feed"
	"github.com/matzehuels/retrocausal/pkg/nodegraph"
	"github.com/matzehuels/retrocausal/pkg/render/ascii"
	"github.com/matzehuels/retrocausal/pkg/view"
)

// panStep is the arrow-key pan distance in canvas units.
const panStep = 40.0

// statusRows is the number of terminal rows below the diagram.
const statusRows = 2

// watchCommand creates the watch command, the live terminal view.
func (c *CLI) watchCommand() *cobra.Command {
	var (
		flags  feedFlags
		fps    int
		labels bool
		plain  bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Animate the eraser diagram live in the terminal",
		Long: `Animate the eraser diagram live in the terminal.

Events come from any combination of --file, --url and --redis (or the
[feed] section of the config file).

Keys:
  + / -      zoom in / out
  0          reset the view
  arrows     pan
  tab        select the next configured token
  l          toggle labels
  q          quit

The mouse pans by dragging, zooms with the wheel at the pointer, and
names the node under the pointer.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			flags.apply(cmd, cfg)
			if cmd.Flags().Changed("fps") {
				cfg.Engine.FPS = fps
			}
			if cmd.Flags().Changed("labels") {
				cfg.View.Labels = labels
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			start, err := initialToken(cfg, flags.token)
			if err != nil {
				return err
			}
			return c.runWatch(cmd.Context(), cfg, start, plain)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&fps, "fps", engine.DefaultFPS, "frames per second")
	cmd.Flags().BoolVar(&labels, "labels", false, "show node labels")
	cmd.Flags().BoolVar(&plain, "plain", false, "disable colors")

	return cmd
}

func (c *CLI) runWatch(ctx context.Context, cfg *config.Config, start event.Token, plain bool) error {
	// Logging to the terminal would tear the alternate screen.
	quiet := log.New(io.Discard)

	eng := engine.New(engine.WithConfig(cfg.EngineConfig()), engine.WithLogger(quiet))
	if !start.IsZero() {
		eng.Select(start)
	}
	srcs := buildSources(cfg, quiet, func() string { return eng.Token().Address })
	defer srcs.Close()
	if len(srcs.list) == 0 {
		printWarning("no feeds configured; the diagram will stay idle (see --file, --url, --redis)")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	feedErr := make(chan error, 1)
	go func() { feedErr <- feed.Run(ctx, eng, srcs.list...) }()

	m := newWatchModel(eng, cfg, plain)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	interrupted := ctx.Err() != nil
	cancel()
	fErr := <-feedErr
	stats := closeWatch(eng)
	if fErr != nil {
		return fErr
	}
	if err != nil && !interrupted {
		return errors.Wrap(errors.ErrCodeInternal, err, "terminal ui")
	}
	printStats(stats)
	return nil
}

// closeWatch returns the final counters and clears the engine. The feeds
// must have stopped.
func closeWatch(eng *engine.Engine) engine.Stats {
	stats := eng.Stats()
	eng.Reset()
	return stats
}

// initialToken resolves --token against the configured tokens, falling back
// to the first configured token.
func initialToken(cfg *config.Config, address string) (event.Token, error) {
	if address == "" {
		if len(cfg.Tokens) > 0 {
			return cfg.Tokens[0], nil
		}
		return event.Token{}, nil
	}
	if err := errors.ValidateTokenAddress(address); err != nil {
		return event.Token{}, err
	}
	for _, t := range cfg.Tokens {
		if t.Address == address {
			return t, nil
		}
	}
	return event.Token{Address: address}, nil
}

// =============================================================================
// watchModel - bubbletea model
// =============================================================================

type tickMsg time.Time

// watchModel owns the engine: every Tick, Resize and Select happens in
// Update, so the engine has a single writer. Feeds only call Feed.
type watchModel struct {
	engine *engine.Engine
	view   *view.View
	frame  time.Duration
	tokens []event.Token
	token  int
	labels bool
	plain  bool

	cols, rows   int
	dragging     bool
	lastX, lastY int
	hover        nodegraph.Name
}

func newWatchModel(eng *engine.Engine, cfg *config.Config, plain bool) watchModel {
	fps := cfg.Engine.FPS
	if fps <= 0 {
		fps = engine.DefaultFPS
	}
	m := watchModel{
		engine: eng,
		view:   view.New(0, 0),
		frame:  time.Second / time.Duration(fps),
		tokens: cfg.Tokens,
		labels: cfg.View.Labels,
		plain:  plain,
	}
	cur := eng.Token().Address
	for i, t := range m.tokens {
		if t.Address == cur {
			m.token = i
		}
	}
	return m
}

func (m watchModel) tick() tea.Cmd {
	return tea.Tick(m.frame, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m watchModel) Init() tea.Cmd {
	return m.tick()
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.engine.Tick(time.Time(msg))
		return m, m.tick()

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "+", "=":
			m.view.ZoomIn()
		case "-", "_":
			m.view.ZoomOut()
		case "0":
			m.view.Reset()
		case "left", "h":
			m.view.Pan(panStep, 0)
		case "right":
			m.view.Pan(-panStep, 0)
		case "up", "k":
			m.view.Pan(0, panStep)
		case "down", "j":
			m.view.Pan(0, -panStep)
		case "tab":
			m.nextToken()
		case "l":
			m.labels = !m.labels
		}

	case tea.MouseMsg:
		m.mouse(msg)
	}
	return m, nil
}

func (m *watchModel) resize(cols, rows int) {
	m.cols = max(cols, 0)
	m.rows = max(rows-statusRows, 0)
	w, h := float64(m.cols)*cellWidth, float64(m.rows)*cellHeight
	m.engine.Resize(w, h)
	m.view.Resize(w, h)
}

func (m *watchModel) nextToken() {
	if len(m.tokens) == 0 {
		return
	}
	m.token = (m.token + 1) % len(m.tokens)
	m.engine.Select(m.tokens[m.token])
}

// toCanvas maps a terminal cell to the canvas point at its center.
func (m *watchModel) toCanvas(x, y int) (float64, float64) {
	return (float64(x) + 0.5) * cellWidth, (float64(y) + 0.5) * cellHeight
}

func (m *watchModel) mouse(msg tea.MouseMsg) {
	px, py := m.toCanvas(msg.X, msg.Y)
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.view.Wheel(-1, px, py)
	case msg.Button == tea.MouseButtonWheelDown:
		m.view.Wheel(1, px, py)
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		m.dragging = true
		m.lastX, m.lastY = msg.X, msg.Y
	case msg.Action == tea.MouseActionRelease:
		m.dragging = false
	case msg.Action == tea.MouseActionMotion:
		if m.dragging {
			m.view.Pan(float64(msg.X-m.lastX)*cellWidth, float64(msg.Y-m.lastY)*cellHeight)
			m.lastX, m.lastY = msg.X, msg.Y
		}
	}
	m.view.Hover(px, py)
	m.hover = ""
	layout := nodegraph.Compute(m.view.Width, m.view.Height)
	if n, ok := m.view.NodeAt(layout, px, py); ok {
		m.hover = n.Name
	}
}

func (m watchModel) View() string {
	if m.cols == 0 || m.rows == 0 {
		return "waiting for terminal size..."
	}
	f := m.engine.Snapshot()
	var opts []ascii.Option
	if m.plain {
		opts = append(opts, ascii.WithPlain())
	}
	if m.labels {
		opts = append(opts, ascii.WithLabels())
	}

	var b strings.Builder
	b.WriteString(ascii.Render(f, m.view, m.cols, m.rows, opts...))
	b.WriteString("\n")
	b.WriteString(m.status(f))
	return b.String()
}

func (m watchModel) status(f *engine.Frame) string {
	token := "no token"
	if !f.Token.IsZero() {
		token = f.Token.String()
	}
	left := StyleTitle.Render(token) + "  " + statsLine(f.Stats)
	right := StyleDim.Render(fmt.Sprintf("zoom %.2f", m.view.Zoom))
	if m.hover != "" {
		right = StyleValue.Render(string(m.hover)) + StyleDim.Render(fmt.Sprintf(" %.0f%%  ", 100*f.HitsAt(m.hover))) + right
	}
	gap := max(m.cols-lipgloss.Width(left)-lipgloss.Width(right), 1)
	help := StyleDim.Render("+/- zoom  0 reset  arrows pan  tab token  l labels  q quit")
	return left + strings.Repeat(" ", gap) + right + "\n" + help
}
