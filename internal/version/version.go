// Package version reports the version of portablefs linked into the binary.
package version

import (
	"runtime/debug"
	"strings"
)

// Default is returned when the version cannot be read from build info, ex.
// in tests or builds from a local checkout.
const Default = "dev"

const modulePath = "github.com/kframework/portablefs"

// GetVersion returns the version of portablefs: the main module version when it
// is the binary being run, otherwise the version of the dependency.
func GetVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Default
	}
	return versionOf(info)
}

func versionOf(info *debug.BuildInfo) (ret string) {
	if info.Main.Path == modulePath {
		ret = info.Main.Version
	} else {
		for _, dep := range info.Deps {
			if dep.Path == modulePath {
				ret = dep.Version
				if dep.Replace != nil {
					ret = dep.Replace.Version
				}
				break
			}
		}
	}
	// "(devel)" is reported for the main module built from source.
	if ret == "" || strings.HasPrefix(ret, "(") {
		return Default
	}
	return ret
}
