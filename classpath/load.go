package classpath

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"

	"github.com/tetratelabs/classgen/classfile"
)

// hierarchyFile is the TOML form of a hierarchy description:
//
//	[[class]]
//	name = "demo/Dog"
//	super = "demo/Animal"
//	interfaces = ["demo/Pet"]
//
//	[[class]]
//	name = "demo/Pet"
//	interface = true
type hierarchyFile struct {
	Class []struct {
		Name       string   `toml:"name"`
		Super      string   `toml:"super"`
		Interfaces []string `toml:"interfaces"`
		Interface  bool     `toml:"interface"`
	} `toml:"class"`
}

// LoadTOML defines every class of a TOML hierarchy description. Classes that
// are valid are defined even when others are not, and every problem is
// reported in the returned error.
func (r *Repository) LoadTOML(in io.Reader) error {
	var f hierarchyFile
	md, err := toml.NewDecoder(in).Decode(&f)
	if err != nil {
		return fmt.Errorf("decode hierarchy: %w", err)
	}
	var errs *multierror.Error
	for _, key := range md.Undecoded() {
		errs = multierror.Append(errs, fmt.Errorf("unknown key %q", key.String()))
	}
	for i, c := range f.Class {
		err := r.Define(Class{Name: c.Name, Super: c.Super, Interfaces: c.Interfaces, Interface: c.Interface})
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("class %d: %w", i+1, err))
		}
	}
	return errs.ErrorOrNil()
}

// LoadClassFile defines the class of a compiled class file and returns it.
func (r *Repository) LoadClassFile(b []byte) (Class, error) {
	cf, err := classfile.Parse(b)
	if err != nil {
		return Class{}, err
	}
	c := Class{
		Name:       cf.ThisClass,
		Super:      cf.SuperClass,
		Interfaces: cf.Interfaces,
		Interface:  cf.Access.Has(classfile.AccInterface),
	}
	if err = r.Define(c); err != nil {
		return Class{}, err
	}
	c, _ = r.Lookup(c.Name)
	return c, nil
}

// LoadFile loads a ".toml" hierarchy description or a ".class" file.
func (r *Repository) LoadFile(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if err = r.LoadTOML(f); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	case ".class":
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if _, err = r.LoadClassFile(b); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	default:
		return fmt.Errorf("%s: unsupported hierarchy file, want .toml or .class", path)
	}
	return nil
}
