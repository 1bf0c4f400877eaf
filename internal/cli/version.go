package cli

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Build-time variables set via ldflags
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// shortRevisionLen matches `git rev-parse --short=12`.
const shortRevisionLen = 12

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printVersionInfo(cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// resolveVersionInfo prefers ldflags values and falls back to the module
// build info, which `go install` fills in.
func resolveVersionInfo() (string, string, string) {
	if version != "dev" {
		return version, commit, date
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version, commit, date
	}
	return versionFromBuildInfo(info)
}

func versionFromBuildInfo(info *debug.BuildInfo) (string, string, string) {
	v, c, d := version, commit, date
	dirty := false
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		v = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			c = s.Value
			if len(c) > shortRevisionLen {
				c = c[:shortRevisionLen]
			}
		case "vcs.time":
			d = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if dirty && c != commit {
		c += "-dirty"
	}
	return v, c, d
}

// printVersionInfo writes the version line to out so scripts can capture it,
// and the tagline to errOut.
func printVersionInfo(out, errOut io.Writer) {
	v, c, d := resolveVersionInfo()
	fmt.Fprintf(out, "pgseed %s (%s, %s) %s/%s\n", v, c, d, runtime.GOOS, runtime.GOARCH)
	fmt.Fprintln(errOut, "Create PostgreSQL databases and restore archives into them")
}
