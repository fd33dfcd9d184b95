package artifact

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/ZebulonRouseFrantzich/xmlls/internal/platform"
)

// DefaultReleaseURL is the project publishing native LemMinX builds.
const DefaultReleaseURL = "https://github.com/redhat-developer/vscode-xml"

// ReleaseSource fetches a native LemMinX binary from GitHub releases.
// Assets: {asset}.zip containing {asset}[.exe], and {asset}.sha256 with the
// digest of the extracted binary.
type ReleaseSource struct {
	baseURL    string
	target     platform.Target
	downloader *Downloader
}

// ReleaseOption configures a ReleaseSource.
type ReleaseOption func(*ReleaseSource)

// WithReleaseURL sets the repository URL.
func WithReleaseURL(u string) ReleaseOption {
	return func(s *ReleaseSource) {
		s.baseURL = strings.TrimSuffix(u, "/")
	}
}

// NewReleaseSource creates a native binary source for target. An unsupported
// target is an error matching platform.ErrUnsupportedPlatform.
func NewReleaseSource(d *Downloader, target platform.Target, opts ...ReleaseOption) (*ReleaseSource, error) {
	if !target.Supported() {
		return nil, fmt.Errorf("native release source: %w", platform.ErrUnsupportedPlatform)
	}

	s := &ReleaseSource{
		baseURL:    DefaultReleaseURL,
		target:     target,
		downloader: d,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Name implements Source.
func (s *ReleaseSource) Name() string { return "native" }

// Extension implements Source.
func (s *ReleaseSource) Extension() string { return s.target.ExecutableSuffix() }

// FileName implements Source. The binary keeps one name across versions and
// is replaced in place.
func (s *ReleaseSource) FileName(string) string {
	return "lemminx" + s.target.ExecutableSuffix()
}

// LatestURL is the redirecting "latest release" page.
func (s *ReleaseSource) LatestURL() string {
	return s.baseURL + "/releases/latest"
}

// AssetURL returns the download URL of a release asset.
func (s *ReleaseSource) AssetURL(version, name string) string {
	return s.baseURL + "/releases/download/" + version + "/" + name
}

// LatestVersion follows the latest-release redirect and returns the tag in
// the final URL path.
func (s *ReleaseSource) LatestVersion(ctx context.Context) (string, error) {
	latestURL := s.LatestURL()

	final, err := s.downloader.ResolveRedirect(ctx, latestURL)
	if err != nil {
		return "", &ResolveError{Source: s.Name(), URL: latestURL, Err: err}
	}

	version, err := versionFromReleaseURL(final)
	if err != nil {
		return "", &ResolveError{Source: s.Name(), URL: latestURL, Err: err}
	}
	return version, nil
}

// versionFromReleaseURL extracts "0.27.1" from ".../releases/tag/0.27.1".
func versionFromReleaseURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse release url: %w", err)
	}

	dir, last := path.Split(strings.TrimSuffix(u.Path, "/"))
	if last == "" || last == "latest" || path.Base(strings.TrimSuffix(dir, "/")) != "tag" {
		return "", fmt.Errorf("no release tag in %s", raw)
	}
	return last, nil
}

// Checksum implements Source using the {asset}.sha256 manifest.
func (s *ReleaseSource) Checksum(ctx context.Context, version string) (string, error) {
	manifestURL := s.AssetURL(version, s.target.AssetName()+".sha256")

	data, err := s.downloader.FetchDocument(ctx, manifestURL)
	if err != nil {
		return "", &ResolveError{Source: s.Name(), URL: manifestURL, Err: err}
	}

	checksum, err := parseChecksumManifest(data)
	if err != nil {
		return "", &ResolveError{Source: s.Name(), URL: manifestURL, Err: err}
	}
	if alg, _ := AlgorithmFor(checksum); alg != AlgorithmSHA256 {
		return "", &ResolveError{Source: s.Name(), URL: manifestURL, Err: errors.New("expected a sha256 digest")}
	}
	return checksum, nil
}

// Resolve implements Source.
func (s *ReleaseSource) Resolve(ctx context.Context, version string) (Resolution, error) {
	if version == LatestVersion {
		latest, err := s.LatestVersion(ctx)
		if err != nil {
			return Resolution{}, err
		}
		version = latest
	}

	checksum, err := s.Checksum(ctx, version)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Version: version, Checksum: checksum}, nil
}

// Fetch implements Source: download the zip next to dest, extract the binary
// to dest, drop the zip.
func (s *ReleaseSource) Fetch(ctx context.Context, version, dest string) error {
	archivePath := dest + ".zip"
	defer os.Remove(archivePath)

	asset := s.target.AssetName()
	if err := s.downloader.DownloadToFile(ctx, s.AssetURL(version, asset+".zip"), archivePath); err != nil {
		return fmt.Errorf("download archive: %w", err)
	}

	if err := ExtractZipEntry(archivePath, dest, asset+s.target.ExecutableSuffix()); err != nil {
		return fmt.Errorf("extract binary: %w", err)
	}
	return nil
}
