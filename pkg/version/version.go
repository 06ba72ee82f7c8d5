// Package version exposes build-time version information for the skilleval binary.
package version

import (
	"encoding/json"
	"fmt"
)

var (
	// Version is the current skilleval version, set at build time via ldflags.
	Version = "dev"

	// GitCommit is the git commit SHA that was built, set at build time.
	GitCommit = "unknown"
)

// Info represents version information.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
}

// Get returns the version information.
func Get() Info {
	return Info{Version: Version, GitCommit: GitCommit}
}

// String returns the human-readable version line.
func (i Info) String() string {
	return fmt.Sprintf("skilleval %s (%s)", i.Version, i.GitCommit)
}

// JSON returns the JSON representation of the version info.
func (i Info) JSON() (string, error) {
	b, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
