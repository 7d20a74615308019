// Package classpath is an in-memory class hierarchy that answers the
// questions of types.Lattice. Classes are defined directly, from TOML
// hierarchy descriptions or from compiled class files.
package classpath

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tetratelabs/classgen/types"
)

// ErrCyclicHierarchy is returned when a class is its own ancestor.
var ErrCyclicHierarchy = errors.New("cyclic class hierarchy")

const objectName = "java/lang/Object"

// Class is the hierarchy information of one class or interface. Names are
// internal names.
type Class struct {
	Name       string
	Super      string
	Interfaces []string
	Interface  bool
}

// Repository is a goroutine-safe set of classes. The zero value is not
// usable: use New.
type Repository struct {
	mux     sync.RWMutex
	classes map[string]Class
	logger  zerolog.Logger
}

var _ types.Repository = (*Repository)(nil)

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger definitions are reported to at debug level.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Repository) { r.logger = logger }
}

// New returns a repository holding java/lang/Object and the interfaces every
// array implements.
func New(opts ...Option) *Repository {
	r := &Repository{classes: map[string]Class{}, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	r.classes[objectName] = Class{Name: objectName}
	for _, i := range []*types.ObjectType{types.Cloneable, types.Serializable} {
		r.classes[i.InternalName()] = Class{Name: i.InternalName(), Super: objectName, Interface: true}
	}
	return r
}

// Define adds c, replacing any class of the same name. Dotted names are
// converted to internal names. A class without Super extends
// java/lang/Object, as does every interface.
func (r *Repository) Define(c Class) error {
	c.Name = internalName(c.Name)
	c.Super = internalName(c.Super)
	if c.Name == "" {
		return errors.New("class without name")
	}
	if c.Name == objectName {
		if c.Super != "" || c.Interface {
			return fmt.Errorf("%s cannot have a superclass or be an interface", objectName)
		}
	} else if c.Super == "" || c.Interface {
		c.Super = objectName
	}
	if c.Super == c.Name {
		return fmt.Errorf("%w: %s extends itself", ErrCyclicHierarchy, c.Name)
	}
	interfaces := make([]string, 0, len(c.Interfaces))
	for _, i := range c.Interfaces {
		i = internalName(i)
		if i == c.Name {
			return fmt.Errorf("%w: %s implements itself", ErrCyclicHierarchy, c.Name)
		}
		interfaces = append(interfaces, i)
	}
	c.Interfaces = interfaces

	r.mux.Lock()
	r.classes[c.Name] = c
	r.mux.Unlock()
	r.logger.Debug().Str("class", c.Name).Str("super", c.Super).Bool("interface", c.Interface).Msg("class defined")
	return nil
}

// Lookup returns the class named name.
func (r *Repository) Lookup(name string) (Class, bool) {
	r.mux.RLock()
	defer r.mux.RUnlock()
	c, ok := r.classes[internalName(name)]
	c.Interfaces = append([]string(nil), c.Interfaces...)
	return c, ok
}

// Names returns the names of every class in sorted order.
func (r *Repository) Names() []string {
	r.mux.RLock()
	defer r.mux.RUnlock()
	ret := make([]string, 0, len(r.classes))
	for n := range r.classes {
		ret = append(ret, n)
	}
	sort.Strings(ret)
	return ret
}

// get is Lookup for callers holding mux.
func (r *Repository) get(name string) (Class, error) {
	c, ok := r.classes[name]
	if !ok {
		return Class{}, fmt.Errorf("%w: %s", types.ErrUnresolved, name)
	}
	return c, nil
}

// SuperClasses implements types.Repository.
func (r *Repository) SuperClasses(name string) ([]string, error) {
	r.mux.RLock()
	defer r.mux.RUnlock()
	return r.superClasses(internalName(name))
}

func (r *Repository) superClasses(name string) ([]string, error) {
	var ret []string
	seen := map[string]struct{}{name: {}}
	for {
		c, err := r.get(name)
		if err != nil {
			return nil, err
		}
		if c.Super == "" {
			break
		}
		if _, ok := seen[c.Super]; ok {
			return nil, fmt.Errorf("%w: %s", ErrCyclicHierarchy, strings.Join(append(ret, c.Super), " <- "))
		}
		seen[c.Super] = struct{}{}
		ret = append(ret, c.Super)
		name = c.Super
	}
	// Collected narrowest first.
	for i, j := 0, len(ret)-1; i < j; i, j = i+1, j-1 {
		ret[i], ret[j] = ret[j], ret[i]
	}
	return ret, nil
}

// IsInterface implements types.Repository.
func (r *Repository) IsInterface(name string) (bool, error) {
	r.mux.RLock()
	defer r.mux.RUnlock()
	c, err := r.get(internalName(name))
	return c.Interface, err
}

// IsSubclassOf implements types.Repository.
func (r *Repository) IsSubclassOf(sub, super string) (bool, error) {
	sub, super = internalName(sub), internalName(super)
	if sub == super {
		return true, nil
	}
	r.mux.RLock()
	defer r.mux.RUnlock()
	supers, err := r.superClasses(sub)
	if err != nil {
		return false, err
	}
	for _, s := range supers {
		if s == super {
			return true, nil
		}
	}
	return false, nil
}

// ImplementsInterface implements types.Repository.
func (r *Repository) ImplementsInterface(class, iface string) (bool, error) {
	class, iface = internalName(class), internalName(iface)
	r.mux.RLock()
	defer r.mux.RUnlock()

	supers, err := r.superClasses(class)
	if err != nil {
		return false, err
	}
	work := append([]string{class}, supers...)
	seen := map[string]struct{}{}
	for len(work) > 0 {
		name := work[0]
		work = work[1:]
		if name == iface {
			return true, nil
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		c, err := r.get(name)
		if err != nil {
			return false, err
		}
		work = append(work, c.Interfaces...)
	}
	return false, nil
}

// internalName converts a binary name such as java.lang.String to the
// internal form java/lang/String.
func internalName(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}
