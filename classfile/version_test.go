package classfile

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReleaseVersion(t *testing.T) {
	tests := []struct {
		release  string
		expected Version
	}{
		{release: "1.0", expected: Version{Major: 45, Minor: 3}},
		{release: "1.1", expected: Version{Major: 45, Minor: 3}},
		{release: "1.4", expected: Version{Major: 48}},
		{release: "1.8", expected: Version{Major: 52}},
		{release: "5", expected: Version{Major: 49}},
		{release: "8", expected: Version{Major: 52}},
		{release: "11", expected: Version{Major: 55}},
		{release: "17.0.2", expected: Version{Major: 61}},
		{release: "21", expected: Version{Major: 65}},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.release, func(t *testing.T) {
			v, err := ReleaseVersion(tc.release)
			require.NoError(t, err)
			require.Equal(t, tc.expected, v)
		})
	}

	for _, release := range []string{"", "java8", "1.9", "4", "99"} {
		_, err := ReleaseVersion(release)
		require.ErrorIs(t, err, ErrUnsupportedRelease, release)
	}
}

func TestVersion_Release(t *testing.T) {
	require.Equal(t, "1.1", Version{Major: 45, Minor: 3}.Release())
	require.Equal(t, "1.4", Version{Major: 48}.Release())
	require.Equal(t, "5", Version{Major: 49}.Release())
	require.Equal(t, "17", Version{Major: 61}.Release())
	require.Equal(t, "unknown", Version{Major: 12}.Release())
	require.Equal(t, "61.0", Version{Major: 61}.String())
}
