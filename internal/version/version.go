// Package version reports the version of classgen that is running, for the
// CLI and for stamping cache entries.
package version

import (
	"runtime/debug"
	"strings"
)

// Default is used when no version is found in the build information.
const Default = "dev"

const modulePath = "github.com/tetratelabs/classgen"

// version can be set with -ldflags "-X github.com/tetratelabs/classgen/internal/version.version=v1.0.0"
var version string

// GetVersion returns the classgen version from the build information of the
// running binary, whether classgen is the main module or a dependency.
func GetVersion() string {
	if version != "" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Default
	}
	return fromBuildInfo(info)
}

func fromBuildInfo(info *debug.BuildInfo) (ret string) {
	for _, dep := range info.Deps {
		if dep.Path == modulePath {
			ret = dep.Version
			if dep.Replace != nil && dep.Replace.Version != "" {
				ret = dep.Replace.Version
			}
		}
	}
	// In the classgen CLI, classgen is the main module.
	if versionMissing(ret) && info.Main.Path == modulePath {
		ret = info.Main.Version
	}
	if versionMissing(ret) {
		return Default
	}
	// Builds from a dirty tree carry a +dirty suffix, which is not a release.
	return strings.TrimSuffix(ret, "+dirty")
}

func versionMissing(v string) bool {
	return v == "" || v == "(devel)"
}
