package sheetsql

import (
	"log/slog"
	"runtime"
	"time"
)

// Defaults applied by Open.
const (
	// DefaultChunkSize is the number of rows per bulk insert batch. The
	// effective batch may be smaller when the backend's bind parameter
	// limit requires it.
	DefaultChunkSize = 1000

	// DefaultFileTimeout bounds the extraction of a single file. A file
	// that exceeds it is reported failed while the batch continues.
	DefaultFileTimeout = 5 * time.Minute
)

// config holds the tunables that options adjust.
type config struct {
	workers     int
	chunkSize   int
	fileTimeout time.Duration
	dateLayouts []string
	logger      *slog.Logger
}

func defaultConfig() config {
	return config{
		workers:     runtime.GOMAXPROCS(0),
		chunkSize:   DefaultChunkSize,
		fileTimeout: DefaultFileTimeout,
		dateLayouts: defaultDateLayouts,
		logger:      slog.New(slog.DiscardHandler),
	}
}

// Option configures a DB at Open time.
type Option func(*config)

// WithWorkers sets the number of files extracted in parallel. Values
// below one are ignored; the default is the available parallelism.
// Results are resequenced to discovery order, so the worker count never
// changes what a load produces.
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithChunkSize sets the number of rows per bulk insert batch. Values
// below one are ignored.
func WithChunkSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

// WithFileTimeout bounds the extraction of each file. Zero disables the
// timeout.
func WithFileTimeout(d time.Duration) Option {
	return func(c *config) {
		if d >= 0 {
			c.fileTimeout = d
		}
	}
}

// WithDateFormats replaces the date layouts recognized during type
// inference. Layouts use Go reference time syntax and are tried in
// order.
func WithDateFormats(layouts ...string) Option {
	return func(c *config) {
		if len(layouts) > 0 {
			c.dateLayouts = layouts
		}
	}
}

// WithLogger sets the structured logger. Logging is discarded by
// default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}
