package engine

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/retrocausal/pkg/errors"
	"github.com/matzehuels/retrocausal/pkg/photon"
)

// Default engine limits.
const (
	DefaultCapacity      = 30
	DefaultInboxCap      = 256
	DefaultDedupeMemory  = 1024
	DefaultMaxPairAge    = 30 * time.Second
	DefaultHitTTL        = 2500 * time.Millisecond
	DefaultArcDuration   = 1200 * time.Millisecond
	DefaultArcFade       = 1500 * time.Millisecond
	DefaultMaxFrameDelta = 100 * time.Millisecond
	DefaultPatternBins   = 32
	DefaultPatternDecay  = 10 * time.Second
	DefaultFPS           = 60
)

// Config bounds the engine's live state.
type Config struct {
	Capacity      int           // live pair cap; oldest pairs are evicted first
	InboxCap      int           // staged events awaiting the next tick
	DedupeMemory  int           // event keys remembered for de-duplication
	MaxPairAge    time.Duration // pairs older than this are force-retired
	HitTTL        time.Duration
	ArcDuration   time.Duration
	ArcFade       time.Duration
	MaxFrameDelta time.Duration // larger frame gaps are clamped
	PatternBins   int
	PatternDecay  time.Duration // half-life of the interference histogram
	Seed          uint64        // seed for interference sampling
}

// DefaultConfig returns the default limits.
func DefaultConfig() Config {
	return Config{
		Capacity:      DefaultCapacity,
		InboxCap:      DefaultInboxCap,
		DedupeMemory:  DefaultDedupeMemory,
		MaxPairAge:    DefaultMaxPairAge,
		HitTTL:        DefaultHitTTL,
		ArcDuration:   DefaultArcDuration,
		ArcFade:       DefaultArcFade,
		MaxFrameDelta: DefaultMaxFrameDelta,
		PatternBins:   DefaultPatternBins,
		PatternDecay:  DefaultPatternDecay,
		Seed:          42,
	}
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if c.Capacity <= 0 {
		c.Capacity = d.Capacity
	}
	if c.InboxCap <= 0 {
		c.InboxCap = d.InboxCap
	}
	if c.DedupeMemory <= 0 {
		c.DedupeMemory = d.DedupeMemory
	}
	if c.MaxPairAge <= 0 {
		c.MaxPairAge = d.MaxPairAge
	}
	if c.HitTTL <= 0 {
		c.HitTTL = d.HitTTL
	}
	if c.ArcDuration <= 0 {
		c.ArcDuration = d.ArcDuration
	}
	if c.ArcFade <= 0 {
		c.ArcFade = d.ArcFade
	}
	if c.MaxFrameDelta <= 0 {
		c.MaxFrameDelta = d.MaxFrameDelta
	}
	if c.PatternBins <= 0 {
		c.PatternBins = d.PatternBins
	}
	if c.PatternDecay <= 0 {
		c.PatternDecay = d.PatternDecay
	}
}

// Validate rejects limits that cannot be honored. Zero values are allowed
// and mean "default".
func (c Config) Validate() error {
	switch {
	case c.Capacity < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "capacity must be positive, got %d", c.Capacity)
	case c.InboxCap < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "inbox capacity must be positive, got %d", c.InboxCap)
	case c.PatternBins < 0 || c.PatternBins > 512:
		return errors.New(errors.ErrCodeInvalidConfig, "pattern bins must be in [1, 512], got %d", c.PatternBins)
	case c.MaxPairAge < 0, c.HitTTL < 0, c.ArcDuration < 0, c.ArcFade < 0, c.MaxFrameDelta < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "durations must not be negative")
	}
	return nil
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig sets the engine limits. Zero fields take defaults.
func WithConfig(c Config) Option {
	return func(e *Engine) {
		c.SetDefaults()
		e.cfg = c
	}
}

// WithFactory sets the pair factory.
func WithFactory(f *photon.Factory) Option { return func(e *Engine) { e.factory = f } }

// WithLogger sets the logger used for selection and eviction messages.
func WithLogger(l *log.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithSize sets the initial canvas size.
func WithSize(w, h float64) Option { return func(e *Engine) { e.width, e.height = w, h } }
