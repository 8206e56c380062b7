// Package meta provides versioning information.
package meta

import (
	"fmt"
	"runtime"
)

const placeholder = "unknown"

// Git SHA of the build (full and abbreviated). Populated at build time.
var (
	GitSHAFull = placeholder
	GitSHA     = placeholder
)

// Populated returns whether build information has been populated.
func Populated() bool {
	return GitSHA != placeholder
}

// Platform is a string identifying this build and host OS.
var Platform = fmt.Sprintf("Taior/%s (%s/%s)", GitSHA, runtime.GOOS, runtime.GOARCH)
