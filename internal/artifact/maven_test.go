package artifact

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const lemminxPath = "/org/eclipse/lemminx/org.eclipse.lemminx"

func TestVersioningNewest(t *testing.T) {
	tests := []struct {
		name string
		v    Versioning
		want string
	}{
		{name: "release_wins", v: Versioning{Release: "0.27.0", Latest: "0.28.0-SNAPSHOT", Versions: []string{"0.26.0"}}, want: "0.27.0"},
		{name: "latest_fallback", v: Versioning{Latest: "0.28.0", Versions: []string{"0.26.0"}}, want: "0.28.0"},
		{name: "last_version_fallback", v: Versioning{Versions: []string{"0.25.0", "0.26.0"}}, want: "0.26.0"},
		{name: "empty", v: Versioning{}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Newest(); got != tt.want {
				t.Errorf("Newest() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMavenSourceURLs(t *testing.T) {
	s := NewMavenSource(NewDownloader(), WithRepositoryURL("https://repo.example.com/releases/"))

	if got, want := s.FileName("0.27.1"), "org.eclipse.lemminx-0.27.1-uber.jar"; got != want {
		t.Errorf("FileName() = %q, want %q", got, want)
	}
	if got, want := s.MetadataURL(), "https://repo.example.com/releases"+lemminxPath+"/maven-metadata.xml"; got != want {
		t.Errorf("MetadataURL() = %q, want %q", got, want)
	}
	if got, want := s.ArtifactURL("0.27.1"), "https://repo.example.com/releases"+lemminxPath+"/0.27.1/org.eclipse.lemminx-0.27.1-uber.jar"; got != want {
		t.Errorf("ArtifactURL() = %q, want %q", got, want)
	}
	if s.Extension() != ".jar" {
		t.Errorf("Extension() = %q, want .jar", s.Extension())
	}
}

func newMavenServer(t *testing.T, metadata string, sha1s map[string]string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == lemminxPath+"/maven-metadata.xml" && metadata != "":
			_, _ = w.Write([]byte(metadata))
		case strings.HasSuffix(r.URL.Path, ".jar.sha1"):
			version := strings.Split(strings.TrimPrefix(r.URL.Path, lemminxPath+"/"), "/")[0]
			if sum, ok := sha1s[version]; ok {
				_, _ = w.Write([]byte(sum + "\n"))
				return
			}
			w.WriteHeader(http.StatusNotFound)
		case strings.HasSuffix(r.URL.Path, ".jar"):
			_, _ = w.Write([]byte("jar:" + r.URL.Path))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestMavenSourceResolve(t *testing.T) {
	metadata := `<?xml version="1.0" encoding="UTF-8"?>
<metadata>
  <groupId>org.eclipse.lemminx</groupId>
  <artifactId>org.eclipse.lemminx</artifactId>
  <versioning>
    <latest>0.27.1</latest>
    <release>0.27.1</release>
    <versions>
      <version>0.14.1</version>
      <version>0.27.1</version>
    </versions>
  </versioning>
</metadata>`
	sha1Sum := strings.Repeat("1a", 20)
	server := newMavenServer(t, metadata, map[string]string{"0.27.1": sha1Sum})
	s := NewMavenSource(NewDownloader(WithRetries(0)), WithRepositoryURL(server.URL))

	t.Run("latest", func(t *testing.T) {
		res, err := s.Resolve(context.Background(), LatestVersion)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if res.Version != "0.27.1" || res.Checksum != sha1Sum {
			t.Errorf("Resolve() = %+v", res)
		}
	})

	t.Run("pinned checksum wins", func(t *testing.T) {
		res, err := s.Resolve(context.Background(), "0.14.1")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if res.Checksum != PinnedJarChecksums["0.14.1"] {
			t.Errorf("Checksum = %q, want pinned", res.Checksum)
		}
	})

	t.Run("missing manifest", func(t *testing.T) {
		_, err := s.Resolve(context.Background(), "0.1.0")
		var resolveErr *ResolveError
		if !errors.As(err, &resolveErr) {
			t.Fatalf("expected *ResolveError, got %v", err)
		}
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound in chain, got %v", err)
		}
	})
}

func TestMavenSourceMalformedMetadata(t *testing.T) {
	tests := []struct {
		name     string
		metadata string
	}{
		{name: "not_xml", metadata: "{}"},
		{name: "no_versions", metadata: "<metadata><versioning></versioning></metadata>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newMavenServer(t, tt.metadata, nil)
			s := NewMavenSource(NewDownloader(WithRetries(0)), WithRepositoryURL(server.URL))

			_, err := s.LatestVersion(context.Background())
			var resolveErr *ResolveError
			if !errors.As(err, &resolveErr) {
				t.Fatalf("expected *ResolveError, got %v", err)
			}
			if resolveErr.Source != "jar" {
				t.Errorf("Source = %q, want jar", resolveErr.Source)
			}
		})
	}
}

func TestMavenSourceFetch(t *testing.T) {
	server := newMavenServer(t, "", nil)
	s := NewMavenSource(NewDownloader(WithRetries(0)), WithRepositoryURL(server.URL))

	dest := filepath.Join(t.TempDir(), "server.jar")
	if err := s.Fetch(context.Background(), "0.27.1", dest); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	content, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if want := "jar:" + lemminxPath + "/0.27.1/org.eclipse.lemminx-0.27.1-uber.jar"; string(content) != want {
		t.Errorf("content = %q, want %q", content, want)
	}
}
