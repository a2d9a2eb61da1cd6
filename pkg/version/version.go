package version

import (
	"fmt"
	"runtime"
)

// Build information, set with -ldflags "-X github.com/kcaldas/copilot/pkg/version.Version=..."
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetInfo returns version information
func GetInfo() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String returns the multi-line form printed by `copilot version`.
func (i Info) String() string {
	return fmt.Sprintf("copilot %s\ncommit: %s\nbuilt: %s\ngo: %s %s",
		i.Version, i.Commit, i.Date, i.GoVersion, i.Platform)
}
