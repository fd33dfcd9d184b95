package artifact

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultMavenRepository hosts the LemMinX release jars.
	DefaultMavenRepository = "https://repo.eclipse.org/content/repositories/lemminx-releases"

	lemminxGroupID    = "org.eclipse.lemminx"
	lemminxArtifactID = "org.eclipse.lemminx"
	uberClassifier    = "uber"
)

// PinnedJarChecksums are SHA-256 digests of known uber jar releases. They take
// precedence over the repository's SHA-1 manifests.
var PinnedJarChecksums = map[string]string{
	"0.14.1": "fb38a67211b53c86ee96892a600760b3085e942ceb1c6249e8edc52993304a03",
}

// MavenMetadata represents the content of a maven-metadata.xml file.
type MavenMetadata struct {
	XMLName    xml.Name   `xml:"metadata"`
	GroupID    string     `xml:"groupId"`
	ArtifactID string     `xml:"artifactId"`
	Versioning Versioning `xml:"versioning"`
}

// Versioning contains version information within maven-metadata.xml.
type Versioning struct {
	Latest   string   `xml:"latest,omitempty"`
	Release  string   `xml:"release,omitempty"`
	Versions []string `xml:"versions>version"`
}

// Newest returns release, then latest, then the last listed version.
func (v Versioning) Newest() string {
	switch {
	case strings.TrimSpace(v.Release) != "":
		return strings.TrimSpace(v.Release)
	case strings.TrimSpace(v.Latest) != "":
		return strings.TrimSpace(v.Latest)
	case len(v.Versions) > 0:
		return strings.TrimSpace(v.Versions[len(v.Versions)-1])
	default:
		return ""
	}
}

// MavenSource fetches the LemMinX uber jar from a Maven repository.
type MavenSource struct {
	baseURL    string
	downloader *Downloader
	pinned     map[string]string
}

// MavenOption configures a MavenSource.
type MavenOption func(*MavenSource)

// WithRepositoryURL sets the repository URL.
func WithRepositoryURL(url string) MavenOption {
	return func(s *MavenSource) {
		s.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithPinnedChecksums replaces the pinned checksum table.
func WithPinnedChecksums(pinned map[string]string) MavenOption {
	return func(s *MavenSource) {
		s.pinned = pinned
	}
}

// NewMavenSource creates a jar source.
func NewMavenSource(d *Downloader, opts ...MavenOption) *MavenSource {
	s := &MavenSource{
		baseURL:    DefaultMavenRepository,
		downloader: d,
		pinned:     PinnedJarChecksums,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Source.
func (s *MavenSource) Name() string { return "jar" }

// Extension implements Source.
func (s *MavenSource) Extension() string { return ".jar" }

// FileName implements Source.
// Pattern: org.eclipse.lemminx-{version}-uber.jar
func (s *MavenSource) FileName(version string) string {
	return fmt.Sprintf("%s-%s-%s.jar", lemminxArtifactID, version, uberClassifier)
}

// MetadataURL returns the URL of the repository index.
func (s *MavenSource) MetadataURL() string {
	return s.baseURL + "/" + groupIDToPath(lemminxGroupID) + "/" + lemminxArtifactID + "/maven-metadata.xml"
}

// ArtifactURL returns the URL of the uber jar for version.
func (s *MavenSource) ArtifactURL(version string) string {
	return s.baseURL + "/" + groupIDToPath(lemminxGroupID) + "/" + lemminxArtifactID + "/" + version + "/" + s.FileName(version)
}

// LatestVersion reads the newest release from maven-metadata.xml.
func (s *MavenSource) LatestVersion(ctx context.Context) (string, error) {
	url := s.MetadataURL()

	data, err := s.downloader.FetchDocument(ctx, url)
	if err != nil {
		return "", &ResolveError{Source: s.Name(), URL: url, Err: err}
	}

	var meta MavenMetadata
	if err := xml.Unmarshal(data, &meta); err != nil {
		return "", &ResolveError{Source: s.Name(), URL: url, Err: fmt.Errorf("decode metadata: %w", err)}
	}

	version := meta.Versioning.Newest()
	if version == "" {
		return "", &ResolveError{Source: s.Name(), URL: url, Err: errors.New("no version in metadata")}
	}
	return version, nil
}

// Checksum implements Source. Pinned digests win; otherwise the repository's
// .sha1 manifest is used.
func (s *MavenSource) Checksum(ctx context.Context, version string) (string, error) {
	if pinned, ok := s.pinned[version]; ok {
		return NormalizeChecksum(pinned), nil
	}

	url := s.ArtifactURL(version) + ".sha1"
	data, err := s.downloader.FetchDocument(ctx, url)
	if err != nil {
		return "", &ResolveError{Source: s.Name(), URL: url, Err: err}
	}

	checksum, err := parseChecksumManifest(data)
	if err != nil {
		return "", &ResolveError{Source: s.Name(), URL: url, Err: err}
	}
	return checksum, nil
}

// Resolve implements Source.
func (s *MavenSource) Resolve(ctx context.Context, version string) (Resolution, error) {
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

// Fetch implements Source.
func (s *MavenSource) Fetch(ctx context.Context, version, dest string) error {
	if err := s.downloader.DownloadToFile(ctx, s.ArtifactURL(version), dest); err != nil {
		return fmt.Errorf("download jar: %w", err)
	}
	return nil
}

// FetchSignature implements SignedSource using the .asc file next to the jar.
func (s *MavenSource) FetchSignature(ctx context.Context, version, dest string) error {
	if err := s.downloader.DownloadToFile(ctx, s.ArtifactURL(version)+".asc", dest); err != nil {
		return fmt.Errorf("download signature: %w", err)
	}
	return nil
}

// groupIDToPath converts a Maven groupId to a path (dots to slashes).
// e.g., "org.eclipse.lemminx" -> "org/eclipse/lemminx"
func groupIDToPath(groupID string) string {
	return strings.ReplaceAll(groupID, ".", "/")
}
