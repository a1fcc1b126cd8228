// Package version reports build metadata stamped in with -ldflags -X.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set at link time, e.g.
// -X github.com/smazurov/camseq/internal/version.Version=v1.2.0
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	BuildID   = "unknown"
)

// Info is the payload of /api/version.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	BuildID   string `json:"build_id"`
	GoVersion string `json:"go_version"`
	Compiler  string `json:"compiler"`
	Platform  string `json:"platform"`
}

// Get returns the build metadata. A plain `go build` leaves the ldflags
// unset; commit and date then come from the embedded VCS stamp if present.
func Get() Info {
	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		BuildID:   BuildID,
		GoVersion: runtime.Version(),
		Compiler:  runtime.Compiler,
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && info.GitCommit == "unknown":
				info.GitCommit = s.Value
			case s.Key == "vcs.time" && info.BuildDate == "unknown":
				info.BuildDate = s.Value
			}
		}
	}
	return info
}

// Summary is the one-line version shown by --version.
func Summary() string {
	info := Get()
	return fmt.Sprintf("%s (commit %s, built %s, %s %s)",
		info.Version, info.GitCommit, info.BuildDate, info.GoVersion, info.Platform)
}
