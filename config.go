package classgen

import (
	"github.com/rs/zerolog"

	"github.com/tetratelabs/classgen/asm"
	"github.com/tetratelabs/classgen/classfile"
	"github.com/tetratelabs/classgen/classpath"
	"github.com/tetratelabs/classgen/types"
)

// Config controls how classes are assembled, with the default implementation
// as NewConfig.
//
// Config is immutable: each With method returns a new instance including the
// corresponding change.
type Config struct {
	logger         zerolog.Logger
	strictSwitches bool
	maxPasses      int
	release        string
	repo           types.Repository
}

// defaultConfig helps avoid copy/pasting the wrong defaults.
var defaultConfig = &Config{
	logger:         zerolog.Nop(),
	strictSwitches: true,
	maxPasses:      asm.DefaultMaxLayoutPasses,
	release:        classfile.DefaultRelease,
}

// NewConfig returns a Config that writes Java 8 class files, rejects
// malformed switches and logs nothing.
func NewConfig() *Config {
	return defaultConfig.clone()
}

// clone ensures all fields are copied even if nil.
func (c *Config) clone() *Config {
	ret := *c
	return &ret
}

// WithLogger sets the logger for layout passes and class writing. Defaults to
// zerolog.Nop.
func (c *Config) WithLogger(logger zerolog.Logger) *Config {
	ret := c.clone()
	ret.logger = logger
	return ret
}

// WithStrictSwitches controls whether layout rejects switches whose matches
// repeat or, for tableswitch, are not consecutive. Defaults to true.
func (c *Config) WithStrictSwitches(strict bool) *Config {
	ret := c.clone()
	ret.strictSwitches = strict
	return ret
}

// WithMaxLayoutPasses bounds the layout fixed point. Layout panics when it
// does not settle within n passes. Values below one keep the default.
func (c *Config) WithMaxLayoutPasses(n int) *Config {
	ret := c.clone()
	if n < 1 {
		n = asm.DefaultMaxLayoutPasses
	}
	ret.maxPasses = n
	return ret
}

// WithTargetRelease sets the Java release whose class file version is
// written, e.g. "1.4", "8" or "17.0.2". Unsupported releases are reported by
// ClassOptions.
func (c *Config) WithTargetRelease(release string) *Config {
	ret := c.clone()
	ret.release = release
	return ret
}

// WithRepository sets the class hierarchy used by Lattice. Defaults to a
// classpath.Repository holding only the java.lang roots.
func (c *Config) WithRepository(repo types.Repository) *Config {
	ret := c.clone()
	ret.repo = repo
	return ret
}

// Logger returns the configured logger.
func (c *Config) Logger() zerolog.Logger { return c.logger }

// TargetRelease returns the configured Java release.
func (c *Config) TargetRelease() string { return c.release }

// StrictSwitches reports whether layout rejects malformed switches.
func (c *Config) StrictSwitches() bool { return c.strictSwitches }

// MaxLayoutPasses returns the bound on the layout fixed point.
func (c *Config) MaxLayoutPasses() int { return c.maxPasses }

// LayoutOptions returns the asm options for this configuration.
func (c *Config) LayoutOptions() []asm.LayoutOption {
	return []asm.LayoutOption{
		asm.WithLogger(c.logger),
		asm.WithStrictSwitches(c.strictSwitches),
		asm.WithMaxPasses(c.maxPasses),
	}
}

// ClassOptions returns the classfile options for this configuration.
func (c *Config) ClassOptions() ([]classfile.Option, error) {
	v, err := classfile.ReleaseVersion(c.release)
	if err != nil {
		return nil, err
	}
	return []classfile.Option{
		classfile.WithVersion(v),
		classfile.WithLogger(c.logger),
		classfile.WithLayoutOptions(c.LayoutOptions()...),
	}, nil
}

// Lattice returns the reference type lattice over the configured repository.
func (c *Config) Lattice() *types.Lattice {
	repo := c.repo
	if repo == nil {
		repo = classpath.New(classpath.WithLogger(c.logger))
	}
	return types.NewLattice(repo)
}
