package classpath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/tetratelabs/classgen/classfile"
	"github.com/tetratelabs/classgen/types"
)

const zoo = `
[[class]]
name = "demo.Animal"

[[class]]
name = "demo/Dog"
super = "demo/Animal"
interfaces = ["demo/Loud"]

[[class]]
name = "demo/Cat"
super = "demo/Animal"
interfaces = ["demo/Pet"]

[[class]]
name = "demo/Pet"
interface = true

[[class]]
name = "demo/Loud"
interface = true
interfaces = ["demo/Pet"]
`

func newZoo(t *testing.T) *Repository {
	r := New()
	require.NoError(t, r.LoadTOML(strings.NewReader(zoo)))
	return r
}

func TestRepository_Seeded(t *testing.T) {
	r := New()
	require.Equal(t, []string{"java/io/Serializable", "java/lang/Cloneable", "java/lang/Object"}, r.Names())

	supers, err := r.SuperClasses("java/lang/Object")
	require.NoError(t, err)
	require.Empty(t, supers)

	iface, err := r.IsInterface("java.lang.Cloneable")
	require.NoError(t, err)
	require.True(t, iface)
}

func TestRepository_Queries(t *testing.T) {
	r := newZoo(t)

	c, ok := r.Lookup("demo.Animal")
	require.True(t, ok)
	require.Equal(t, Class{Name: "demo/Animal", Super: "java/lang/Object"}, c)

	supers, err := r.SuperClasses("demo/Dog")
	require.NoError(t, err)
	require.Equal(t, []string{"java/lang/Object", "demo/Animal"}, supers)

	supers, err = r.SuperClasses("demo/Pet")
	require.NoError(t, err)
	require.Equal(t, []string{"java/lang/Object"}, supers)

	tests := []struct {
		name     string
		query    func() (bool, error)
		expected bool
	}{
		{name: "subclass reflexive", query: func() (bool, error) { return r.IsSubclassOf("demo/Dog", "demo/Dog") }, expected: true},
		{name: "subclass", query: func() (bool, error) { return r.IsSubclassOf("demo/Dog", "demo/Animal") }, expected: true},
		{name: "subclass of object", query: func() (bool, error) { return r.IsSubclassOf("demo/Dog", "java/lang/Object") }, expected: true},
		{name: "not subclass", query: func() (bool, error) { return r.IsSubclassOf("demo/Animal", "demo/Dog") }},
		{name: "siblings", query: func() (bool, error) { return r.IsSubclassOf("demo/Cat", "demo/Dog") }},
		{name: "implements", query: func() (bool, error) { return r.ImplementsInterface("demo/Cat", "demo/Pet") }, expected: true},
		{name: "implements super interface", query: func() (bool, error) { return r.ImplementsInterface("demo/Dog", "demo/Pet") }, expected: true},
		{name: "interface extends", query: func() (bool, error) { return r.ImplementsInterface("demo/Loud", "demo/Pet") }, expected: true},
		{name: "not implements", query: func() (bool, error) { return r.ImplementsInterface("demo/Cat", "demo/Loud") }},
		{name: "base not implements", query: func() (bool, error) { return r.ImplementsInterface("demo/Animal", "demo/Pet") }},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			ok, err := tc.query()
			require.NoError(t, err)
			require.Equal(t, tc.expected, ok)
		})
	}
}

func TestRepository_Lattice(t *testing.T) {
	l := types.NewLattice(newZoo(t))
	dog, cat, animal := types.NewObjectType("demo/Dog"), types.NewObjectType("demo/Cat"), types.NewObjectType("demo/Animal")

	join, ok := l.FirstCommonSuperclass(dog, cat)
	require.True(t, ok)
	require.True(t, types.Equal(animal, join))

	ok, err := l.IsAssignmentCompatible(dog, animal)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.IsAssignmentCompatible(animal, dog)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = l.IsAssignmentCompatible(dog, types.NewObjectType("demo/Pet"))
	require.NoError(t, err)
	require.True(t, ok)

	_, ok = l.FirstCommonSuperclass(dog, types.NewObjectType("demo/Unknown"))
	require.False(t, ok)
}

func TestRepository_Errors(t *testing.T) {
	r := New()
	_, err := r.SuperClasses("demo/Missing")
	require.ErrorIs(t, err, types.ErrUnresolved)

	require.NoError(t, r.Define(Class{Name: "demo/Orphan", Super: "demo/Missing"}))
	_, err = r.IsSubclassOf("demo/Orphan", "java/lang/Object")
	require.ErrorIs(t, err, types.ErrUnresolved)
	_, err = r.ImplementsInterface("demo/Orphan", "java/lang/Cloneable")
	require.ErrorIs(t, err, types.ErrUnresolved)

	require.ErrorIs(t, r.Define(Class{Name: "demo/Self", Super: "demo/Self"}), ErrCyclicHierarchy)
	require.ErrorIs(t, r.Define(Class{Name: "demo/I", Interface: true, Interfaces: []string{"demo.I"}}), ErrCyclicHierarchy)
	require.Error(t, r.Define(Class{}))
	require.Error(t, r.Define(Class{Name: "java/lang/Object", Super: "demo/A"}))

	require.NoError(t, r.Define(Class{Name: "demo/A", Super: "demo/B"}))
	require.NoError(t, r.Define(Class{Name: "demo/B", Super: "demo/C"}))
	require.NoError(t, r.Define(Class{Name: "demo/C", Super: "demo/A"}))
	_, err = r.SuperClasses("demo/A")
	require.ErrorIs(t, err, ErrCyclicHierarchy)
	require.EqualError(t, err, "cyclic class hierarchy: demo/B <- demo/C <- demo/A")
}

func TestRepository_LoadTOML(t *testing.T) {
	r := New()
	err := r.LoadTOML(strings.NewReader(`
[[class]]
name = "demo/Good"

[[class]]
name = "demo/Bad"
super = "demo/Bad"

[[class]]
name = "demo/Typo"
supper = "demo/Good"
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "2 errors occurred")
	require.Contains(t, err.Error(), `unknown key "class.supper"`)
	require.Contains(t, err.Error(), "class 2: cyclic class hierarchy: demo/Bad extends itself")

	_, ok := r.Lookup("demo/Good")
	require.True(t, ok)

	require.Error(t, r.LoadTOML(strings.NewReader("[[class]\n")))
}

func TestRepository_LoadClassFile(t *testing.T) {
	c := classfile.NewClassGen(classfile.AccPublic|classfile.AccInterface|classfile.AccAbstract, "demo/Shape", "java/lang/Object")
	c.AddInterface("java/io/Serializable")
	b, err := c.Bytes()
	require.NoError(t, err)

	dir := t.TempDir()
	classPath := filepath.Join(dir, "Shape.class")
	require.NoError(t, os.WriteFile(classPath, b, 0o600))
	tomlPath := filepath.Join(dir, "zoo.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(zoo), 0o600))

	r := New()
	require.NoError(t, r.LoadFile(classPath))
	require.NoError(t, r.LoadFile(tomlPath))
	require.Error(t, r.LoadFile(filepath.Join(dir, "zoo.yaml")))
	require.Error(t, r.LoadFile(filepath.Join(dir, "missing.class")))

	shape, ok := r.Lookup("demo/Shape")
	require.True(t, ok)
	require.Equal(t, Class{Name: "demo/Shape", Super: "java/lang/Object", Interfaces: []string{"java/io/Serializable"}, Interface: true}, shape)

	_, ok = r.Lookup("demo/Dog")
	require.True(t, ok)

	_, err = r.LoadClassFile([]byte{0xca, 0xfe})
	require.ErrorIs(t, err, classfile.ErrInvalidClassFile)
}

func TestRepository_Concurrent(t *testing.T) {
	r := newZoo(t)
	var g errgroup.Group
	for i := 0; i < 8; i++ {
		i := i
		g.Go(func() error {
			for j := 0; j < 50; j++ {
				name := fmt.Sprintf("demo/Breed%d_%d", i, j)
				if err := r.Define(Class{Name: name, Super: "demo/Dog"}); err != nil {
					return err
				}
				ok, err := r.ImplementsInterface(name, "demo/Pet")
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s does not implement demo/Pet", name)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.Len(t, r.Names(), 3+5+8*50)
}
