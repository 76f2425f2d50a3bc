// Package version reports build metadata stamped in with -ldflags:
//
//	-X playreviews/internal/core/version.version=v0.3.0 -X playreviews/internal/core/version.commit=abcd
package version

import (
	"fmt"
	"runtime/debug"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

// BuildInfo describes one binary
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Info returns the build information for service. Commit and date fall
// back to the VCS stamp the toolchain embeds when ldflags left them unset
func Info(service string) BuildInfo {
	bi := BuildInfo{Service: service, Version: version, Commit: commit, Date: date}
	if bi.Commit != "" && bi.Date != "" {
		return bi
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if bi.Commit == "" {
					bi.Commit = s.Value
				}
			case "vcs.time":
				if bi.Date == "" {
					bi.Date = s.Value
				}
			}
		}
	}
	if bi.Commit == "" {
		bi.Commit = "none"
	}
	if bi.Date == "" {
		bi.Date = "unknown"
	}
	return bi
}

func (b BuildInfo) String() string {
	c := b.Commit
	if len(c) > 12 {
		c = c[:12]
	}
	return fmt.Sprintf("%s %s (%s, %s)", b.Service, b.Version, c, b.Date)
}
