package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager orchestrates the update check, download, verification and
// installation of one artifact in one directory.
type Manager struct {
	dir            string
	source         Source
	records        recordStore
	verifier       *SignatureVerifier
	logger         *slog.Logger
	now            func() time.Time
	resolveTimeout time.Duration

	mu         sync.Mutex
	pending    *Resolution
	installing bool
	state      State
}

// Config holds configuration for the artifact manager
type Config struct {
	// Dir is the artifact directory. It holds the artifact and metadata.json
	// and nothing else the manager does not own.
	Dir string
	// Source is the remote origin of the artifact.
	Source Source
	// Verifier, if set, checks detached signatures of SignedSource artifacts.
	Verifier *SignatureVerifier
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
	// ResolveTimeout bounds remote lookups (default: ResolveTimeout).
	ResolveTimeout time.Duration
}

// NewManager creates a new artifact manager
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("Dir is required")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("Source is required")
	}

	m := &Manager{
		dir:            cfg.Dir,
		source:         cfg.Source,
		records:        recordStore{path: filepath.Join(cfg.Dir, MetadataFile)},
		verifier:       cfg.Verifier,
		logger:         cfg.Logger,
		now:            cfg.Now,
		resolveTimeout: cfg.ResolveTimeout,
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.logger = m.logger.With("source", cfg.Source.Name())
	if m.now == nil {
		m.now = time.Now
	}
	if m.resolveTimeout <= 0 {
		m.resolveTimeout = ResolveTimeout
	}

	if _, ok := m.Installed(); ok {
		m.state = StateInstalled
	}
	return m, nil
}

// Dir returns the artifact directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Source returns the artifact source.
func (m *Manager) Source() Source {
	return m.source
}

// State returns the current install-cycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Pending returns the resolution remembered by the last NeedsUpdate call.
func (m *Manager) Pending() (Resolution, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return Resolution{}, false
	}
	return *m.pending, true
}

// NeedsUpdate reports whether InstallOrUpdate should run to satisfy desired,
// which is a concrete version or LatestVersion. When it returns true the
// selected version is remembered for InstallOrUpdate; any other outcome
// forgets a previously remembered one.
//
// Remote lookups happen only for LatestVersion: when nothing valid is
// installed, or when the record's next check time has passed. A failed lookup
// is returned as an error only if there is no valid artifact to fall back on;
// otherwise the check is postponed by RetryInterval.
func (m *Manager) NeedsUpdate(ctx context.Context, desired string) (bool, error) {
	if desired == "" {
		desired = LatestVersion
	}

	m.clearPending()

	rec := m.loadRecord()
	now := m.now()

	if !m.valid(rec) {
		if desired != LatestVersion {
			m.setPending(Resolution{Version: desired})
			return true, nil
		}

		res, err := m.resolve(ctx)
		if err != nil {
			return false, fmt.Errorf("resolve %s: %w", m.source.Name(), err)
		}
		m.setPending(res)
		return true, nil
	}

	if desired != LatestVersion {
		if desired != rec.Version {
			m.setPending(Resolution{Version: desired})
			return true, nil
		}
		return false, nil
	}

	if now.Before(rec.NextCheck()) {
		return false, nil
	}

	res, err := m.resolve(ctx)
	if err != nil {
		m.logger.Warn("update check failed, keeping installed artifact",
			"version", rec.Version, "retry_in", RetryInterval, "error", err)
		rec.NextCheckAt = now.Add(RetryInterval).Unix()
		m.saveRecord(rec)
		return false, nil
	}

	if res.Version == rec.Version && res.Checksum == rec.Checksum {
		rec.NextCheckAt = now.Add(CheckInterval).Unix()
		m.saveRecord(rec)
		return false, nil
	}

	m.logger.Info("update available", "installed", rec.Version, "latest", res.Version)
	m.setPending(res)
	return true, nil
}

// InstallOrUpdate installs the version selected by the last NeedsUpdate call.
// It returns ErrNotResolved when there is none and ErrInstallInProgress when
// another install is running.
func (m *Manager) InstallOrUpdate(ctx context.Context) error {
	m.mu.Lock()
	if m.installing {
		m.mu.Unlock()
		return ErrInstallInProgress
	}
	if m.pending == nil {
		m.mu.Unlock()
		return ErrNotResolved
	}
	res := *m.pending
	m.installing = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.installing = false
		m.mu.Unlock()
	}()

	logger := m.logger.With("attempt", uuid.NewString(), "version", res.Version)
	prev, hadValid := m.Installed()

	if err := m.install(ctx, logger, res); err != nil {
		m.recordFailure(prev, hadValid)
		return err
	}

	m.mu.Lock()
	if m.pending != nil && *m.pending == res {
		m.pending = nil
	}
	m.state = StateInstalled
	m.mu.Unlock()

	logger.Info("artifact installed", "path", filepath.Join(m.dir, m.source.FileName(res.Version)))
	return nil
}

func (m *Manager) install(ctx context.Context, logger *slog.Logger, res Resolution) error {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	checksum := NormalizeChecksum(res.Checksum)
	if checksum == "" {
		lookupCtx, cancel := context.WithTimeout(ctx, m.resolveTimeout)
		var err error
		checksum, err = m.source.Checksum(lookupCtx, res.Version)
		cancel()
		if err != nil {
			return fmt.Errorf("resolve checksum: %w", err)
		}
		checksum = NormalizeChecksum(checksum)
	}

	dest := filepath.Join(m.dir, m.source.FileName(res.Version))
	tmp := filepath.Join(m.dir, "."+filepath.Base(dest)+".download")
	defer os.Remove(tmp)

	m.setState(StateDownloading)
	logger.Info("downloading artifact")
	if err := m.source.Fetch(ctx, res.Version, tmp); err != nil {
		return fmt.Errorf("fetch %s %s: %w", m.source.Name(), res.Version, err)
	}

	m.setState(StateVerifying)
	if err := VerifyFile(tmp, checksum); err != nil {
		logger.Error("downloaded artifact failed verification", "error", err)
		return fmt.Errorf("verify: %w", err)
	}
	if err := m.verifySignature(ctx, res.Version, tmp); err != nil {
		logger.Error("downloaded artifact failed signature check", "error", err)
		return fmt.Errorf("verify: %w", err)
	}

	if err := os.Rename(tmp, dest); err != nil {
		return fmt.Errorf("install artifact: %w", err)
	}

	if err := m.records.save(Record{
		NextCheckAt: m.now().Add(CheckInterval).Unix(),
		Version:     res.Version,
		Checksum:    checksum,
	}); err != nil {
		return fmt.Errorf("persist record: %w", err)
	}

	m.removeSuperseded(logger, dest)
	return nil
}

// verifySignature checks a detached signature when both a verifier is
// configured and the source publishes signatures.
func (m *Manager) verifySignature(ctx context.Context, version, path string) error {
	signed, ok := m.source.(SignedSource)
	if m.verifier == nil || !ok {
		return nil
	}

	sigPath := path + ".sig"
	defer os.Remove(sigPath)

	if err := signed.FetchSignature(ctx, version, sigPath); err != nil {
		return err
	}
	return m.verifier.VerifyDetached(path, sigPath)
}

// removeSuperseded deletes every other regular file in the directory sharing
// the artifact's extension. Failures are logged and ignored.
func (m *Manager) removeSuperseded(logger *slog.Logger, keep string) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		logger.Warn("list artifact dir", "error", err)
		return
	}

	ext := m.source.Extension()
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || name == MetadataFile || filepath.Ext(name) != ext {
			continue
		}

		path := filepath.Join(m.dir, name)
		if path == keep {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("remove superseded artifact", "path", path, "error", err)
			continue
		}
		logger.Debug("removed superseded artifact", "path", path)
	}
}

// recordFailure postpones the next check after a failed install.
func (m *Manager) recordFailure(prev Record, hadValid bool) {
	if !hadValid {
		prev = Record{}
	}
	prev.NextCheckAt = m.now().Add(RetryInterval).Unix()
	m.saveRecord(prev)

	if hadValid {
		m.setState(StateInstalled)
	} else {
		m.setState(StateAbsent)
	}
}

// Installed returns the record and whether its artifact is present and
// matches the recorded checksum.
func (m *Manager) Installed() (Record, bool) {
	rec := m.loadRecord()
	return rec, m.valid(rec)
}

// Path returns the path of the installed artifact.
func (m *Manager) Path() (string, error) {
	rec, ok := m.Installed()
	if !ok {
		return "", ErrNotInstalled
	}
	return filepath.Join(m.dir, m.source.FileName(rec.Version)), nil
}

// Remove deletes the artifact directory and forgets any pending resolution.
// It fails with ErrInstallInProgress while an install is running.
func (m *Manager) Remove() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.installing {
		return ErrInstallInProgress
	}
	if err := os.RemoveAll(m.dir); err != nil {
		return fmt.Errorf("remove artifact dir: %w", err)
	}
	m.pending = nil
	m.state = StateAbsent
	return nil
}

func (m *Manager) resolve(ctx context.Context) (Resolution, error) {
	ctx, cancel := context.WithTimeout(ctx, m.resolveTimeout)
	defer cancel()

	res, err := m.source.Resolve(ctx, LatestVersion)
	if err != nil {
		return Resolution{}, err
	}
	res.Checksum = NormalizeChecksum(res.Checksum)
	return res, nil
}

// valid reports whether the artifact named by rec exists and hashes to
// rec.Checksum.
func (m *Manager) valid(rec Record) bool {
	if rec.Version == "" || rec.Checksum == "" {
		return false
	}

	alg, err := AlgorithmFor(rec.Checksum)
	if err != nil {
		return false
	}

	actual, err := FileChecksum(filepath.Join(m.dir, m.source.FileName(rec.Version)), alg)
	if err != nil {
		return false
	}
	return actual == rec.Checksum
}

func (m *Manager) loadRecord() Record {
	rec, err := m.records.load()
	if err != nil {
		m.logger.Debug("ignoring unreadable record", "error", err)
	}
	return rec
}

func (m *Manager) saveRecord(rec Record) {
	if err := m.records.save(rec); err != nil {
		m.logger.Warn("persist record", "error", err)
	}
}

func (m *Manager) clearPending() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = nil
}

func (m *Manager) setPending(res Resolution) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = &res
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}
