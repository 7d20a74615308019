package classgen

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tetratelabs/classgen/asm"
	"github.com/tetratelabs/classgen/classfile"
	"github.com/tetratelabs/classgen/classpath"
	"github.com/tetratelabs/classgen/types"
)

func TestConfig(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	repo := classpath.New()

	tests := []struct {
		name     string
		with     func(*Config) *Config
		expected *Config
	}{
		{
			name:     "WithLogger",
			with:     func(c *Config) *Config { return c.WithLogger(logger) },
			expected: &Config{logger: logger},
		},
		{
			name:     "WithStrictSwitches",
			with:     func(c *Config) *Config { return c.WithStrictSwitches(true) },
			expected: &Config{strictSwitches: true},
		},
		{
			name:     "WithMaxLayoutPasses",
			with:     func(c *Config) *Config { return c.WithMaxLayoutPasses(3) },
			expected: &Config{maxPasses: 3},
		},
		{
			name:     "WithMaxLayoutPasses invalid",
			with:     func(c *Config) *Config { return c.WithMaxLayoutPasses(0) },
			expected: &Config{maxPasses: asm.DefaultMaxLayoutPasses},
		},
		{
			name:     "WithTargetRelease",
			with:     func(c *Config) *Config { return c.WithTargetRelease("17") },
			expected: &Config{release: "17"},
		},
		{
			name:     "WithRepository",
			with:     func(c *Config) *Config { return c.WithRepository(repo) },
			expected: &Config{repo: repo},
		},
	}

	for _, tt := range tests {
		tc := tt

		t.Run(tc.name, func(t *testing.T) {
			input := &Config{}
			c := tc.with(input)
			require.Equal(t, tc.expected, c)
			// The source wasn't modified
			require.Equal(t, &Config{}, input)
		})
	}
}

func TestNewConfig(t *testing.T) {
	c := NewConfig()
	require.Equal(t, classfile.DefaultRelease, c.TargetRelease())
	require.True(t, c.StrictSwitches())
	require.Equal(t, asm.DefaultMaxLayoutPasses, c.MaxLayoutPasses())
	require.Len(t, c.LayoutOptions(), 3)

	// Changes never leak into the defaults.
	_ = c.WithTargetRelease("11").WithStrictSwitches(false)
	require.Equal(t, defaultConfig, NewConfig())
}

func TestConfig_ClassOptions(t *testing.T) {
	t.Run("version", func(t *testing.T) {
		opts, err := NewConfig().WithTargetRelease("1.4").ClassOptions()
		require.NoError(t, err)
		c := classfile.NewClassGen(classfile.AccPublic, "demo/A", "java/lang/Object", opts...)
		require.Equal(t, classfile.Version{Major: 48}, c.Version())
	})
	t.Run("unsupported", func(t *testing.T) {
		_, err := NewConfig().WithTargetRelease("99").ClassOptions()
		require.ErrorIs(t, err, classfile.ErrUnsupportedRelease)
	})
}

func TestConfig_Lattice(t *testing.T) {
	object := types.NewObjectType("java/lang/Object")
	cloneable := types.NewObjectType("java/lang/Cloneable")

	ok, err := NewConfig().Lattice().IsAssignmentCompatible(cloneable, object)
	require.NoError(t, err)
	require.True(t, ok)

	repo := classpath.New()
	require.NoError(t, repo.Define(classpath.Class{Name: "demo/Animal"}))
	require.NoError(t, repo.Define(classpath.Class{Name: "demo/Dog", Super: "demo/Animal"}))
	lattice := NewConfig().WithRepository(repo).Lattice()
	ok, err = lattice.IsAssignmentCompatible(types.NewObjectType("demo/Dog"), types.NewObjectType("demo/Animal"))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCompile(t *testing.T) {
	src := ".class public demo/A\n.method static f ()V\n    return\n.end method\n"
	b, err := Compile(NewConfig().WithTargetRelease("11"), "a.j", bytes.NewBufferString(src))
	require.NoError(t, err)
	cf, err := classfile.Parse(b)
	require.NoError(t, err)
	require.Equal(t, classfile.Version{Major: 55}, cf.Version)
	require.Equal(t, "demo/A", cf.ThisClass)

	t.Run("errors", func(t *testing.T) {
		_, err := Compile(nil, "b.j", bytes.NewBufferString(".class demo/B\n.method f ()V\n.end method\n"))
		require.ErrorIs(t, err, classfile.ErrMissingCode)
		require.Contains(t, err.Error(), "b.j: ")

		_, err = Compile(NewConfig().WithTargetRelease("4"), "c.j", bytes.NewBufferString(src))
		require.ErrorIs(t, err, classfile.ErrUnsupportedRelease)
	})
}
