package artifact

import (
	"bufio"
	"bytes"
	"crypto/sha1" //nolint:gosec // Maven publishes SHA-1 manifests
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// Algorithm is a digest algorithm, selected by the hex length of a checksum.
type Algorithm int

const (
	AlgorithmUnknown Algorithm = iota
	AlgorithmSHA256
	AlgorithmSHA1
)

// String returns the string representation of the algorithm
func (a Algorithm) String() string {
	switch a {
	case AlgorithmSHA256:
		return "sha256"
	case AlgorithmSHA1:
		return "sha1"
	default:
		return "unknown"
	}
}

// New returns a fresh hash for the algorithm, or nil for AlgorithmUnknown.
func (a Algorithm) New() hash.Hash {
	switch a {
	case AlgorithmSHA256:
		return sha256.New()
	case AlgorithmSHA1:
		return sha1.New() //nolint:gosec
	default:
		return nil
	}
}

// NormalizeChecksum lowercases and trims a hex digest.
func NormalizeChecksum(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// AlgorithmFor returns the algorithm implied by a hex digest: 64 characters
// is SHA-256, 40 is SHA-1. Anything else, including non-hex input, is an error.
func AlgorithmFor(checksum string) (Algorithm, error) {
	checksum = NormalizeChecksum(checksum)
	if _, err := hex.DecodeString(checksum); err != nil {
		return AlgorithmUnknown, fmt.Errorf("invalid checksum %q: not hex", checksum)
	}

	switch len(checksum) {
	case sha256.Size * 2:
		return AlgorithmSHA256, nil
	case sha1.Size * 2:
		return AlgorithmSHA1, nil
	default:
		return AlgorithmUnknown, fmt.Errorf("invalid checksum %q: unexpected length %d", checksum, len(checksum))
	}
}

// FileChecksum calculates the lowercase hex digest of a file.
func FileChecksum(path string, alg Algorithm) (string, error) {
	h := alg.New()
	if h == nil {
		return "", fmt.Errorf("unsupported algorithm: %s", alg)
	}

	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyFile checks that the file at path has the expected digest.
func VerifyFile(path, expected string) error {
	expected = NormalizeChecksum(expected)
	alg, err := AlgorithmFor(expected)
	if err != nil {
		return err
	}

	actual, err := FileChecksum(path, alg)
	if err != nil {
		return fmt.Errorf("calculate checksum: %w", err)
	}

	if actual != expected {
		return &VerificationError{Path: path, Expected: expected, Actual: actual}
	}
	return nil
}

// parseChecksumManifest returns the first token of a checksum file.
// Format: "abc123def456" or "abc123def456  filename".
func parseChecksumManifest(data []byte) (string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		checksum := NormalizeChecksum(fields[0])
		if _, err := AlgorithmFor(checksum); err != nil {
			return "", err
		}
		return checksum, nil
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan checksum manifest: %w", err)
	}
	return "", errors.New("empty checksum manifest")
}
