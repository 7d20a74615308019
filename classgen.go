// Package classgen assembles JVM class files from symbolic instruction lists.
//
// The building blocks live in sub-packages: asm holds instruction lists and
// their layout, classfile the field, method and class generators, jasm a
// text form, and classpath the class hierarchy behind the type lattice in
// types. This package ties them together under a Config.
package classgen

import (
	"fmt"
	"io"

	"github.com/tetratelabs/classgen/classfile"
	"github.com/tetratelabs/classgen/jasm"
)

// Assemble parses jasm source into a class generator configured by cfg. name
// prefixes error messages. A nil cfg is NewConfig.
func Assemble(cfg *Config, name string, src io.Reader) (*classfile.ClassGen, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	opts, err := cfg.ClassOptions()
	if err != nil {
		return nil, err
	}
	return jasm.Assemble(name, src, opts...)
}

// Compile assembles jasm source and returns the class file bytes.
func Compile(cfg *Config, name string, src io.Reader) ([]byte, error) {
	c, err := Assemble(cfg, name, src)
	if err != nil {
		return nil, err
	}
	b, err := c.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return b, nil
}
