package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// fakeSource serves artifacts from memory and counts remote calls.
type fakeSource struct {
	mu       sync.Mutex
	latest   string
	contents map[string][]byte
	// corrupt, when set, is served by Fetch instead of the real content.
	corrupt []byte
	// resolveErr fails every Resolve and Checksum call.
	resolveErr error
	// gate, when set, blocks Fetch until closed.
	gate chan struct{}

	resolveCalls  int
	checksumCalls int
	fetchCalls    int
	// checksumDeadline is the context deadline seen by the last Checksum call.
	checksumDeadline time.Time
}

func newFakeSource(latest string, contents map[string]string) *fakeSource {
	s := &fakeSource{latest: latest, contents: make(map[string][]byte)}
	for v, c := range contents {
		s.contents[v] = []byte(c)
	}
	return s
}

func (s *fakeSource) Name() string      { return "jar" }
func (s *fakeSource) Extension() string { return ".jar" }

func (s *fakeSource) FileName(version string) string {
	return "server-" + version + ".jar"
}

func (s *fakeSource) Resolve(ctx context.Context, version string) (Resolution, error) {
	s.mu.Lock()
	s.resolveCalls++
	if s.resolveErr != nil {
		err := s.resolveErr
		s.mu.Unlock()
		return Resolution{}, err
	}
	if version == LatestVersion {
		version = s.latest
	}
	s.mu.Unlock()

	checksum, err := s.digest(version)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Version: version, Checksum: checksum}, nil
}

func (s *fakeSource) Checksum(ctx context.Context, version string) (string, error) {
	s.mu.Lock()
	s.checksumCalls++
	s.checksumDeadline, _ = ctx.Deadline()
	err := s.resolveErr
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	return s.digest(version)
}

func (s *fakeSource) Fetch(ctx context.Context, version, dest string) error {
	s.mu.Lock()
	s.fetchCalls++
	gate := s.gate
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.contents[version]
	if !ok {
		return fmt.Errorf("fetch %s: %w", version, ErrNotFound)
	}
	if s.corrupt != nil {
		content = s.corrupt
	}
	return os.WriteFile(dest, content, 0644)
}

func (s *fakeSource) digest(version string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.contents[version]
	if !ok {
		return "", fmt.Errorf("resolve %s: %w", version, ErrNotFound)
	}
	return sha256Hex(content), nil
}

func (s *fakeSource) remoteCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveCalls + s.checksumCalls + s.fetchCalls
}

// fakeSignedSource adds detached signatures to fakeSource.
type fakeSignedSource struct {
	*fakeSource
	signatures map[string][]byte
}

func (s *fakeSignedSource) FetchSignature(ctx context.Context, version, dest string) error {
	sig, ok := s.signatures[version]
	if !ok {
		return errors.New("no signature")
	}
	return os.WriteFile(dest, sig, 0644)
}
