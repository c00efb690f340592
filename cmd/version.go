package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Build metadata variables, set by -ldflags at compile time.
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

// buildMetadata describes the running binary.
type buildMetadata struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Modified  bool   `json:"modified"`
}

// currentBuild combines ldflags values with the module build info embedded by the
// go toolchain. Values set through ldflags take precedence.
func currentBuild() buildMetadata {
	info, _ := debug.ReadBuildInfo()
	return resolveBuild(info)
}

func resolveBuild(info *debug.BuildInfo) buildMetadata {
	b := buildMetadata{Version: Version, Commit: CommitSHA, BuildDate: BuildDate, GoVersion: "unknown"}
	if info == nil {
		return b
	}

	b.GoVersion = info.GoVersion
	if b.Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		b.Version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if b.Commit == "unknown" {
				b.Commit = s.Value
			}
		case "vcs.time":
			if b.BuildDate == "unknown" {
				b.BuildDate = s.Value
			}
		case "vcs.modified":
			b.Modified = s.Value == "true"
		}
	}
	return b
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		b := currentBuild()
		if mustGetBool(cmd, "json") {
			return outputJSON(b)
		}

		fmt.Printf("faceauth %s\n", b.Version)
		commit := b.Commit
		if b.Modified {
			commit += " (modified)"
		}
		fmt.Printf("  Commit: %s\n", commit)
		fmt.Printf("  Built:  %s\n", b.BuildDate)
		fmt.Printf("  Go:     %s\n", b.GoVersion)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().Bool("json", false, "Output as JSON")
}
