// Package version reports build and toolchain information.
package version

import (
	"runtime"
	"runtime/debug"
	"slices"
)

var version = "dev"

// wireModule encodes messages between the orchestrator and process workers.
// Both ends must be built from the same version of it.
const wireModule = "github.com/vmihailenco/msgpack/v5"

// Version returns the current version string with the wire codec suffix.
func Version() string {
	wire, _ := readBuildInfo()
	if wire != "" {
		return version + " (msgpack " + wire + ")"
	}
	return version
}

// RawVersion returns the semantic version string without any suffix.
func RawVersion() string {
	return version
}

// GoVersion returns the Go toolchain version used for the build.
func GoVersion() string {
	return runtime.Version()
}

// readBuildInfo reads debug.ReadBuildInfo once and extracts both
// the wire codec version and the VCS revision.
func readBuildInfo() (string, string) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	var wire, commit string
	if idx := slices.IndexFunc(info.Deps, func(dep *debug.Module) bool {
		return dep.Path == wireModule
	}); idx >= 0 {
		wire = info.Deps[idx].Version
	}
	if idx := slices.IndexFunc(info.Settings, func(s debug.BuildSetting) bool {
		return s.Key == "vcs.revision"
	}); idx >= 0 {
		commit = info.Settings[idx].Value
		if len(commit) > 12 {
			commit = commit[:12]
		}
	}
	return wire, commit
}

// Info holds structured version information for machine-readable output.
type Info struct {
	Version     string   `json:"version"`
	WireVersion string   `json:"wireVersion,omitempty"`
	Engines     []string `json:"engines,omitempty"`
	Platform    Platform `json:"platform"`
	GoVersion   string   `json:"goVersion"`
	GitCommit   string   `json:"gitCommit,omitempty"`
}

// Platform describes the OS and architecture.
type Platform struct {
	OS   string `json:"os"`
	Arch string `json:"arch"`
}

// GetInfo returns structured version information. engines lists the
// type-check engines compiled into the binary.
func GetInfo(engines []string) Info {
	wire, commit := readBuildInfo()
	return Info{
		Version:     RawVersion(),
		WireVersion: wire,
		Engines:     engines,
		Platform: Platform{
			OS:   runtime.GOOS,
			Arch: runtime.GOARCH,
		},
		GoVersion: GoVersion(),
		GitCommit: commit,
	}
}
