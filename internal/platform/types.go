// Package platform detects the host operating system and CPU architecture and
// maps them onto the set of targets for which a native language server build
// is published.
//
// Detection uses runtime.GOOS/GOARCH for the pair that matters and gopsutil
// for the descriptive distribution details that end up in logs and in the
// read-only platform table exposed to Lua settings files.
package platform

import "context"

// Info contains platform detection information.
type Info struct {
	OS       string // "linux", "darwin", "windows"
	Arch     string // "amd64", "arm64" (normalized), raw GOARCH otherwise
	ArchRaw  string // original GOARCH
	Platform string // distro ID (Linux only, e.g., "ubuntu", "arch")
	Family   string // canonical family (e.g., "debian", "rhel")
	Version  string // distro or OS release version
}

// IsLinux returns true if the platform is Linux.
func (i *Info) IsLinux() bool {
	return i.OS == "linux"
}

// IsMacOS returns true if the platform is macOS.
func (i *Info) IsMacOS() bool {
	return i.OS == "darwin"
}

// IsWindows returns true if the platform is Windows.
func (i *Info) IsWindows() bool {
	return i.OS == "windows"
}

// IsAMD64 returns true if the architecture is amd64.
func (i *Info) IsAMD64() bool {
	return i.Arch == "amd64"
}

// IsARM64 returns true if the architecture is arm64.
func (i *Info) IsARM64() bool {
	return i.Arch == "arm64"
}

// Target resolves the native build target for this platform.
func (i *Info) Target() (Target, error) {
	return ResolveTarget(i.OS, i.Arch)
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}

// StaticDetector returns a fixed Info. Useful for tests and for hosts that
// already know the platform they run on.
type StaticDetector struct {
	Info Info
}

// Detect returns a copy of the configured info.
func (d StaticDetector) Detect(ctx context.Context) (*Info, error) {
	info := d.Info
	return &info, nil
}
