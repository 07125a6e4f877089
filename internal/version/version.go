// Package version carries build metadata set through ldflags:
//
//	go build -ldflags "-X git.home.luguber.info/inful/faultline/internal/version.Version=v0.3.0 \
//	  -X git.home.luguber.info/inful/faultline/internal/version.GitCommit=$(git rev-parse --short HEAD)"
package version

import "fmt"

// Unknown marks metadata not set at build time.
const Unknown = "unknown"

var (
	Version   = Unknown
	BuildTime = Unknown
	GitCommit = Unknown
)

// String formats the metadata for --version output, e.g.
// "faultline v0.3.0 (commit abc1234, built 2026-03-01)". Unset commit and
// build time are omitted.
func String() string {
	s := "faultline " + Version
	switch {
	case GitCommit != Unknown && BuildTime != Unknown:
		s += fmt.Sprintf(" (commit %s, built %s)", GitCommit, BuildTime)
	case GitCommit != Unknown:
		s += fmt.Sprintf(" (commit %s)", GitCommit)
	case BuildTime != Unknown:
		s += fmt.Sprintf(" (built %s)", BuildTime)
	}
	return s
}
