// Package version exposes the build version of payrun.
package version

// version is set at build time with
// -ldflags "-X github.com/salarysys/payrun/pkg/version.version=v1.2.3".
var version = "" //nolint:gochecknoglobals // Set via ldflags.

// GetVersion returns the build version, or "dev" for local builds.
func GetVersion() string {
	if version == "" {
		return "dev"
	}
	return version
}
