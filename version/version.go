// Package version holds build metadata injected via -ldflags.
package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "dev"
	Revision  = "unknown"
	BuildTime = "unknown"
)

// String returns the multi-line version report.
func String() string {
	return fmt.Sprintf("ingot %s\nrevision: %s\nbuilt: %s\ngo: %s\n",
		Version, Revision, BuildTime, runtime.Version())
}
