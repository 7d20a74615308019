package main

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/tetratelabs/classgen"
	"github.com/tetratelabs/classgen/classpath"
)

const defaultConfigFile = "classgen.toml"

// fileConfig is the layout of the configuration file:
//
//	release = "17"
//	strict_switches = true
//	max_layout_passes = 64
//	hierarchy = ["lib.toml", "Base.class"]
//	cache_dir = ".classgen-cache"
//	log_level = "info"
//
// Relative paths are resolved against the directory of the file.
type fileConfig struct {
	Release         string   `toml:"release"`
	StrictSwitches  *bool    `toml:"strict_switches"`
	MaxLayoutPasses int      `toml:"max_layout_passes"`
	Hierarchy       []string `toml:"hierarchy"`
	CacheDir        string   `toml:"cache_dir"`
	LogLevel        string   `toml:"log_level"`
}

// loadConfig reads path, or the default file if path is empty. A missing
// default file is an empty configuration.
func loadConfig(path string) (*fileConfig, error) {
	fc := &fileConfig{}
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}
	md, err := toml.DecodeFile(path, fc)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return fc, nil
	} else if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}

	dir := filepath.Dir(path)
	for i, h := range fc.Hierarchy {
		fc.Hierarchy[i] = resolve(dir, h)
	}
	if fc.CacheDir != "" {
		fc.CacheDir = resolve(dir, fc.CacheDir)
	}
	return fc, nil
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// classgenConfig returns the library configuration described by the file.
func (fc *fileConfig) classgenConfig(logger zerolog.Logger) *classgen.Config {
	c := classgen.NewConfig().WithLogger(logger)
	if fc.Release != "" {
		c = c.WithTargetRelease(fc.Release)
	}
	if fc.StrictSwitches != nil {
		c = c.WithStrictSwitches(*fc.StrictSwitches)
	}
	if fc.MaxLayoutPasses > 0 {
		c = c.WithMaxLayoutPasses(fc.MaxLayoutPasses)
	}
	return c
}

// repository loads the configured hierarchy files followed by extra.
func (fc *fileConfig) repository(logger zerolog.Logger, extra []string) (*classpath.Repository, error) {
	repo := classpath.New(classpath.WithLogger(logger))
	for _, path := range append(append([]string(nil), fc.Hierarchy...), extra...) {
		if err := repo.LoadFile(path); err != nil {
			return nil, err
		}
	}
	return repo, nil
}
