package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Overridden at build time with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = ""
	date    = ""
)

type buildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Built     string `json:"built"`
	Modified  bool   `json:"modified,omitempty"`
	GoVersion string `json:"goVersion"`
}

// currentBuild merges the linker-provided values with the VCS stamp the Go
// toolchain embeds, preferring the linker values.
func currentBuild(read func() (*debug.BuildInfo, bool)) buildInfo {
	info := buildInfo{Version: version, Commit: commit, Built: date, GoVersion: runtime.Version()}
	if bi, ok := read(); ok {
		if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.time":
				if info.Built == "" {
					info.Built = s.Value
				}
			case "vcs.modified":
				info.Modified = s.Value == "true"
			}
		}
	}
	if len(info.Commit) > 12 {
		info.Commit = info.Commit[:12]
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	if info.Built == "" {
		info.Built = "unknown"
	}
	return info
}

func newVersionCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display build information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := currentBuild(debug.ReadBuildInfo)
			if flags.jsonOutput {
				return printJSON(cmd.OutOrStdout(), info)
			}
			commitLine := info.Commit
			if info.Modified {
				commitLine += " (modified)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "releases %s\ncommit: %s\nbuilt: %s\ngo: %s\n", info.Version, commitLine, info.Built, info.GoVersion)
			return nil
		},
	}
}
