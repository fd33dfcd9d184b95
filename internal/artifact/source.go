package artifact

import (
	"context"
)

// Source is a remote origin for one kind of artifact.
type Source interface {
	// Name identifies the source in logs and is used as the artifact
	// directory name, e.g. "jar" or "native".
	Name() string
	// Extension of the artifact file, including the dot; may be empty.
	Extension() string
	// FileName is the on-disk file name of the given version.
	FileName(version string) string
	// Resolve looks up version (or the newest release for LatestVersion)
	// and its checksum.
	Resolve(ctx context.Context, version string) (Resolution, error)
	// Checksum returns the expected hex digest of a concrete version.
	Checksum(ctx context.Context, version string) (string, error)
	// Fetch downloads version to dest, extracting it if the release is
	// packaged in an archive.
	Fetch(ctx context.Context, version, dest string) error
}

// SignedSource is implemented by sources that publish detached signatures.
type SignedSource interface {
	Source
	// FetchSignature downloads the signature of version to dest.
	FetchSignature(ctx context.Context, version, dest string) error
}
