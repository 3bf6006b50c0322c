package version

import "strings"

// Version, GitCommit, and BuildDate are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/edgecheck-network/edgecheck/pkg/version.Version=v1.0.0 \
//	  -X github.com/edgecheck-network/edgecheck/pkg/version.GitCommit=abc1234 \
//	  -X github.com/edgecheck-network/edgecheck/pkg/version.BuildDate=2026-01-01T00:00:00Z"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns a formatted version string for display.
func Info() string {
	return Version + " (" + GitCommit + ") built " + BuildDate
}

// SSHClientVersion is the identification string sent to devices, so
// sessions opened by edgecheck can be told apart in device logs.
func SSHClientVersion() string {
	// Identification strings may not contain spaces or hyphens after the prefix.
	v := strings.NewReplacer(" ", "_", "-", "_").Replace(Version)
	return "SSH-2.0-edgecheck_" + v
}
