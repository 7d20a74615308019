package classfile

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

const (
	// DefaultRelease is the Java release classes are written for unless
	// configured otherwise.
	DefaultRelease = "8"

	// MaxRelease is the newest release with a known class file version.
	MaxRelease = 23
)

// Version is the major and minor class file version.
type Version struct {
	Major, Minor uint16
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// ReleaseVersion returns the class file version of a Java release given as
// "1.8", "8" or "17.0.2". Releases 1.0 and 1.1 share version 45.3.
func ReleaseVersion(release string) (Version, error) {
	v, err := semver.NewVersion(release)
	if err != nil {
		return Version{}, fmt.Errorf("%w %q: %v", ErrUnsupportedRelease, release, err)
	}
	feature := v.Major()
	if feature == 1 {
		// Legacy "1.x" naming.
		feature = v.Minor()
		if feature <= 1 {
			return Version{Major: 45, Minor: 3}, nil
		}
		if feature > 8 {
			return Version{}, fmt.Errorf("%w %q", ErrUnsupportedRelease, release)
		}
	} else if feature < 5 || feature > MaxRelease {
		return Version{}, fmt.Errorf("%w %q", ErrUnsupportedRelease, release)
	}
	return Version{Major: uint16(44 + feature)}, nil
}

// Release returns the Java release a class file version belongs to, e.g.
// "1.4" for 48 or "17" for 61.
func (v Version) Release() string {
	switch {
	case v.Major < 45:
		return "unknown"
	case v.Major <= 48:
		return fmt.Sprintf("1.%d", max(int(v.Major)-44, 1))
	}
	return fmt.Sprintf("%d", v.Major-44)
}
