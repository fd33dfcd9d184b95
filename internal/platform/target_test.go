package platform

import (
	"errors"
	"testing"
)

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		name      string
		os        string
		arch      string
		want      Target
		wantAsset string
		wantErr   bool
	}{
		{name: "linux_amd64", os: "linux", arch: "amd64", want: TargetLinuxAMD64, wantAsset: "lemminx-linux"},
		{name: "linux_x86_64_alias", os: "linux", arch: "x86_64", want: TargetLinuxAMD64, wantAsset: "lemminx-linux"},
		{name: "darwin_amd64", os: "darwin", arch: "amd64", want: TargetDarwinAMD64, wantAsset: "lemminx-osx-x86_64"},
		{name: "macos_aarch64_alias", os: "macos", arch: "aarch64", want: TargetDarwinARM64, wantAsset: "lemminx-osx-aarch_64"},
		{name: "windows_amd64", os: "windows", arch: "amd64", want: TargetWindowsAMD64, wantAsset: "lemminx-win32"},
		{name: "linux_arm64_unsupported", os: "linux", arch: "arm64", wantErr: true},
		{name: "windows_arm64_unsupported", os: "windows", arch: "arm64", wantErr: true},
		{name: "freebsd_unsupported", os: "freebsd", arch: "amd64", wantErr: true},
		{name: "empty", os: "", arch: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveTarget(tt.os, tt.arch)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %s/%s", tt.os, tt.arch)
				}
				if !errors.Is(err, ErrUnsupportedPlatform) {
					t.Errorf("error %v does not match ErrUnsupportedPlatform", err)
				}
				var unsupported *UnsupportedError
				if !errors.As(err, &unsupported) {
					t.Errorf("error %T is not *UnsupportedError", err)
				}
				if got != TargetUnsupported || got.Supported() {
					t.Errorf("target = %v, want unsupported", got)
				}
				if got.AssetName() != "" {
					t.Errorf("AssetName() = %q, want empty", got.AssetName())
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("target = %v, want %v", got, tt.want)
			}
			if got.AssetName() != tt.wantAsset {
				t.Errorf("AssetName() = %q, want %q", got.AssetName(), tt.wantAsset)
			}
		})
	}
}

func TestTargetExecutableSuffix(t *testing.T) {
	if got := TargetWindowsAMD64.ExecutableSuffix(); got != ".exe" {
		t.Errorf("windows suffix = %q", got)
	}
	if got := TargetLinuxAMD64.ExecutableSuffix(); got != "" {
		t.Errorf("linux suffix = %q", got)
	}
}

func TestInfoTarget(t *testing.T) {
	info := &Info{OS: "linux", Arch: "arm64"}
	if _, err := info.Target(); !errors.Is(err, ErrUnsupportedPlatform) {
		t.Errorf("expected unsupported error, got %v", err)
	}

	info = &Info{OS: "darwin", Arch: "arm64"}
	target, err := info.Target()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.String() != "darwin/arm64" {
		t.Errorf("String() = %q", target.String())
	}
}
