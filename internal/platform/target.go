package platform

import (
	"errors"
	"fmt"
)

// ErrUnsupportedPlatform is matched by errors returned from ResolveTarget for
// OS/arch pairs without a native build.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// Target is a supported (OS, architecture) pair for native server builds.
// The zero value is TargetUnsupported.
type Target int

const (
	TargetUnsupported Target = iota
	TargetLinuxAMD64
	TargetDarwinAMD64
	TargetDarwinARM64
	TargetWindowsAMD64
)

// UnsupportedError reports the pair that has no native build.
type UnsupportedError struct {
	OS   string
	Arch string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("no native build for %s/%s", e.OS, e.Arch)
}

// Is reports whether target is ErrUnsupportedPlatform.
func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupportedPlatform
}

// ResolveTarget maps an OS/arch pair onto a Target. Every input yields either
// a supported Target and nil, or TargetUnsupported and an *UnsupportedError.
func ResolveTarget(goos, goarch string) (Target, error) {
	goos, goarch = normalizeOS(goos), normalizeArch(goarch)

	switch {
	case goos == "linux" && goarch == "amd64":
		return TargetLinuxAMD64, nil
	case goos == "darwin" && goarch == "amd64":
		return TargetDarwinAMD64, nil
	case goos == "darwin" && goarch == "arm64":
		return TargetDarwinARM64, nil
	case goos == "windows" && goarch == "amd64":
		return TargetWindowsAMD64, nil
	default:
		return TargetUnsupported, &UnsupportedError{OS: goos, Arch: goarch}
	}
}

// AssetName is the release asset stem published for the target,
// e.g. "lemminx-linux". It is empty for TargetUnsupported.
func (t Target) AssetName() string {
	switch t {
	case TargetLinuxAMD64:
		return "lemminx-linux"
	case TargetDarwinAMD64:
		return "lemminx-osx-x86_64"
	case TargetDarwinARM64:
		return "lemminx-osx-aarch_64"
	case TargetWindowsAMD64:
		return "lemminx-win32"
	default:
		return ""
	}
}

// ExecutableSuffix is ".exe" for Windows targets.
func (t Target) ExecutableSuffix() string {
	if t == TargetWindowsAMD64 {
		return ".exe"
	}
	return ""
}

// Supported reports whether t names a native build.
func (t Target) Supported() bool {
	return t != TargetUnsupported
}

func (t Target) String() string {
	switch t {
	case TargetLinuxAMD64:
		return "linux/amd64"
	case TargetDarwinAMD64:
		return "darwin/amd64"
	case TargetDarwinARM64:
		return "darwin/arm64"
	case TargetWindowsAMD64:
		return "windows/amd64"
	default:
		return "unsupported"
	}
}
