package artifact

import (
	"errors"
	"fmt"
)

var (
	// ErrNotResolved is returned by InstallOrUpdate when no prior NeedsUpdate
	// call selected a version to install.
	ErrNotResolved = errors.New("no resolved version to install")
	// ErrChecksumMismatch is matched by *VerificationError.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrSignatureInvalid is returned when a detached signature does not verify.
	ErrSignatureInvalid = errors.New("signature verification failed")
	// ErrNotInstalled is returned when no verified artifact is on disk.
	ErrNotInstalled = errors.New("artifact not installed")
	// ErrInstallInProgress is returned by InstallOrUpdate while another
	// install of the same artifact is running.
	ErrInstallInProgress = errors.New("install already in progress")
	// ErrNotFound is returned when the remote answers 404.
	ErrNotFound = errors.New("remote artifact not found")
)

// VerificationError reports a downloaded file whose digest is not the
// expected one.
type VerificationError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

// Is reports whether target is ErrChecksumMismatch.
func (e *VerificationError) Is(target error) bool {
	return target == ErrChecksumMismatch
}

// ResolveError reports a failed or malformed remote lookup.
type ResolveError struct {
	Source string
	URL    string
	Err    error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("%s: resolve %s: %v", e.Source, e.URL, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}
