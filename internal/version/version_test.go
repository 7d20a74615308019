package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromBuildInfo(t *testing.T) {
	tests := []struct {
		name string
		info *debug.BuildInfo
		exp  string
	}{
		{
			name: "dependency",
			info: &debug.BuildInfo{Deps: []*debug.Module{
				{Path: "github.com/rs/zerolog", Version: "v1.28.0"},
				{Path: modulePath, Version: "v0.3.0"},
			}},
			exp: "v0.3.0",
		},
		{
			name: "replaced dependency",
			info: &debug.BuildInfo{Deps: []*debug.Module{
				{Path: modulePath, Version: "v0.3.0", Replace: &debug.Module{Path: "../classgen", Version: "v0.3.1"}},
			}},
			exp: "v0.3.1",
		},
		{
			name: "main module",
			info: &debug.BuildInfo{Main: debug.Module{Path: modulePath, Version: "v1.2.3+dirty"}},
			exp:  "v1.2.3",
		},
		{
			name: "devel",
			info: &debug.BuildInfo{Main: debug.Module{Path: modulePath, Version: "(devel)"}},
			exp:  Default,
		},
		{
			name: "other main module",
			info: &debug.BuildInfo{Main: debug.Module{Path: "example.com/app", Version: "v9.0.0"}},
			exp:  Default,
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.exp, fromBuildInfo(tc.info))
		})
	}
}

func TestGetVersion_Override(t *testing.T) {
	defer func(prev string) { version = prev }(version)
	version = "v9.9.9"
	require.Equal(t, "v9.9.9", GetVersion())
}
