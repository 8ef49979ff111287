// Package version carries the build identity of the ripple CLI.
// Release builds override these variables through -ldflags; a binary
// built without them reports the in-tree development version.
package version

import "github.com/fatih/color"

var (
	// Version is the semantic version, colored per component when the
	// terminal supports it.
	Version = paint("0", "1", "0") + "-dev"

	// GitCommit, GitMessage and BuildDate describe the exact build.
	// All optional.
	GitCommit  = ""
	GitMessage = ""
	BuildDate  = ""
)

func paint(major, minor, patch string) string {
	return color.New(color.FgYellow, color.Bold).Sprint(major) + "." +
		color.New(color.FgGreen, color.Bold).Sprint(minor) + "." +
		color.New(color.FgBlue, color.Bold).Sprint(patch)
}
