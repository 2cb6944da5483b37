package hived

import "github.com/sirupsen/logrus"

// defaultInitialSize is used when a new arena's size is not specified, the
// same default original_source/src/database.c falls back to when
// initial_size == 0 is passed to database_create_database.
const defaultInitialSize = 1 << 31

type openConfig struct {
	initialSize uint64
	logger      *logrus.Logger
	readOnly    bool
}

func newOpenConfig() *openConfig {
	return &openConfig{
		initialSize: defaultInitialSize,
		logger:      logrus.StandardLogger(),
	}
}

// Option configures a call to Open: a struct wrapping an apply function,
// rather than a config struct or a variadic of interfaces.
type Option struct{ apply func(*openConfig) }

// WithInitialSize sets the size in bytes of a newly created arena. It has
// no effect when opening an existing file, whose size is already fixed.
// If unset or 0, a new arena defaults to 2GiB.
func WithInitialSize(n uint64) Option {
	return Option{func(c *openConfig) { c.initialSize = n }}
}

// WithLogger sets the logrus.Logger that diagnostic messages are written
// to (see log.go). If unset, Open uses logrus's standard logger.
func WithLogger(l *logrus.Logger) Option {
	return Option{func(c *openConfig) { c.logger = l }}
}

// WithReadOnly opens the backing file and its mapping read-only. Mutating
// operations on the resulting Database return ErrInvalidArgument.
// original_source/include/allocator.h's alloc_create only ever opens for
// read/write; this supplements that with the read-only mode its own
// exists-check ("r" before "r+") implies but never exposes.
func WithReadOnly(ro bool) Option {
	return Option{func(c *openConfig) { c.readOnly = ro }}
}
