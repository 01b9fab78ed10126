// Package logger provides the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the logger
type Options struct {
	Level     string
	Format    string
	Component string
	Writer    io.Writer
	// WithCaller adds file:line to every event
	WithCaller bool
}

// FromEnv reads ABSENCE_LOG_LEVEL, ABSENCE_LOG_FORMAT and ABSENCE_LOG_CALLER
func FromEnv() Options {
	caller, _ := strconv.ParseBool(os.Getenv("ABSENCE_LOG_CALLER"))
	return Options{
		Level:      strings.ToLower(getenv("ABSENCE_LOG_LEVEL", "info")),
		Format:     strings.ToLower(getenv("ABSENCE_LOG_FORMAT", "console")),
		WithCaller: caller,
	}
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

var (
	once   sync.Once
	root   atomic.Pointer[zerolog.Logger]
	inited atomic.Bool
)

// Get returns the root logger, initialising it from the environment on
// first use
func Get() *zerolog.Logger {
	if !inited.Load() {
		Init(FromEnv())
	}
	return root.Load()
}

// Init builds the root logger; only the first call has an effect
func Init(opt Options) {
	once.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano
		log := New(opt)
		root.Store(&log)
		inited.Store(true)
	})
}

// New builds a logger without touching the root
func New(opt Options) zerolog.Logger {
	var w io.Writer = os.Stderr
	if opt.Writer != nil {
		w = opt.Writer
	}
	if opt.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: opt.Writer != nil}
	}

	ctx := zerolog.New(w).Level(ParseLevel(opt.Level)).With().Timestamp()
	if opt.Component != "" {
		ctx = ctx.Str("component", opt.Component)
	}
	log := ctx.Logger()
	if opt.WithCaller {
		log = log.With().Caller().Logger()
	}
	return log
}

// Named returns a child of the root logger with a component field
func Named(component string) *zerolog.Logger {
	if component == "" {
		return Get()
	}
	l := Get().With().Str("component", component).Logger()
	return &l
}

// ParseLevel maps a level name to a zerolog level, defaulting to info
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
