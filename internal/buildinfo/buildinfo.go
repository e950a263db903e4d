package buildinfo

import "time"

// Set via -ldflags at build time
var (
	BuildTime  string // when the binary was compiled
	CommitHash string // short git commit hash
)

// StartTime is recorded when the process starts
var StartTime = time.Now().UTC()

// Info is the build and uptime block reported by the health check
type Info struct {
	Commit    string `json:"commit,omitempty"`
	BuiltAt   string `json:"builtAt,omitempty"`
	StartedAt string `json:"startedAt"`
	Uptime    string `json:"uptime"`
}

// Current reports the build info as of now
func Current(now time.Time) Info {
	return Info{
		Commit:    CommitHash,
		BuiltAt:   BuildTime,
		StartedAt: StartTime.Format(time.RFC3339),
		Uptime:    now.Sub(StartTime).Round(time.Second).String(),
	}
}
