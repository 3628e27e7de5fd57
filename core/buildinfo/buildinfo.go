// Package buildinfo carries release metadata stamped by the linker.
package buildinfo

// Set with -ldflags, for example:
//
//	-X 'github.com/m3rciful/refbot/core/buildinfo.Version=v0.3.0'
//	-X 'github.com/m3rciful/refbot/core/buildinfo.Commit=3f9c2e1'
//	-X 'github.com/m3rciful/refbot/core/buildinfo.Date=2026-10-01T09:00:00Z'
var (
	// Version is the release tag.
	Version = "dev"
	// Commit is the VCS revision.
	Commit = "local"
	// Date is the RFC3339 build time.
	Date = ""
)
