package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/ZebulonRouseFrantzich/xmlls/internal/artifact"
	"github.com/ZebulonRouseFrantzich/xmlls/internal/config"
	"github.com/ZebulonRouseFrantzich/xmlls/internal/logging"
	"github.com/ZebulonRouseFrantzich/xmlls/internal/platform"
	"github.com/ZebulonRouseFrantzich/xmlls/internal/telemetry"
)

// ErrAlreadyActive is returned by New while another Adapter is open.
var ErrAlreadyActive = errors.New("xml language server adapter already active")

// active guards the one live Adapter per process.
var active atomic.Bool

// Adapter resolves, installs and launches the XML language server.
type Adapter struct {
	settings  *config.Settings
	info      *platform.Info
	strategy  config.Strategy
	manager   *artifact.Manager
	installer *artifact.Installer
	logger    *slog.Logger
	closed    atomic.Bool
}

type options struct {
	logger     *slog.Logger
	detector   platform.Detector
	httpClient *http.Client
	metrics    *telemetry.Metrics
	now        func() time.Time
	retries    int
	backoff    time.Duration
}

// Option configures New.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithDetector sets the host platform detector (default: gopsutil based).
func WithDetector(d platform.Detector) Option {
	return func(o *options) {
		o.detector = d
	}
}

// WithHTTPClient sets the client used for remote lookups and downloads. Its
// transport is wrapped with metrics instrumentation.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithMetrics records remote fetch metrics into m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithClock sets the time source used for update scheduling.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithRetries sets the download retry count and initial backoff.
func WithRetries(n int, backoff time.Duration) Option {
	return func(o *options) {
		o.retries = n
		o.backoff = backoff
	}
}

// New creates the process's Adapter for settings. Only one Adapter may be
// open at a time; a second call before Close returns ErrAlreadyActive.
func New(ctx context.Context, settings *config.Settings, opts ...Option) (*Adapter, error) {
	if !active.CompareAndSwap(false, true) {
		return nil, ErrAlreadyActive
	}

	a, err := newAdapter(ctx, settings, opts)
	if err != nil {
		active.Store(false)
		return nil, err
	}
	return a, nil
}

func newAdapter(ctx context.Context, settings *config.Settings, opts []Option) (*Adapter, error) {
	o := &options{retries: artifact.DefaultRetries, backoff: time.Second}
	for _, opt := range opts {
		opt(o)
	}
	logger := logging.Ensure(o.logger).With("component", "adapter")

	if settings == nil {
		settings = config.Defaults()
	}
	if o.detector == nil {
		o.detector = platform.NewDetector()
	}

	info, err := o.detector.Detect(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect platform: %w", err)
	}

	strategy, target, err := selectStrategy(settings.Strategy, info, logger)
	if err != nil {
		return nil, err
	}

	downloader := artifact.NewDownloader(
		artifact.WithHTTPClient(instrumentedClient(o.httpClient, string(strategy), o.metrics)),
		artifact.WithRetries(o.retries),
		artifact.WithBackoff(o.backoff),
	)

	source, err := newSource(strategy, target, downloader, settings)
	if err != nil {
		return nil, err
	}

	var verifier *artifact.SignatureVerifier
	if settings.Keyring != "" {
		if _, signed := source.(artifact.SignedSource); signed {
			verifier, err = artifact.LoadSignatureVerifier(config.ExpandHome(settings.Keyring))
			if err != nil {
				return nil, fmt.Errorf("load keyring: %w", err)
			}
		} else {
			logger.Debug("keyring ignored, source publishes no signatures", "source", source.Name())
		}
	}

	root, err := settings.CacheRoot()
	if err != nil {
		return nil, err
	}

	manager, err := artifact.NewManager(artifact.Config{
		Dir:      filepath.Join(root, source.Name()),
		Source:   source,
		Verifier: verifier,
		Logger:   logger,
		Now:      o.now,
	})
	if err != nil {
		return nil, fmt.Errorf("create artifact manager: %w", err)
	}

	return &Adapter{
		settings:  settings,
		info:      info,
		strategy:  strategy,
		manager:   manager,
		installer: artifact.NewInstaller(manager),
		logger:    logger,
	}, nil
}

// selectStrategy maps the configured strategy to jar or native for this host.
func selectStrategy(s config.Strategy, info *platform.Info, logger *slog.Logger) (config.Strategy, platform.Target, error) {
	target, targetErr := info.Target()

	switch s {
	case config.StrategyJar:
		return config.StrategyJar, target, nil
	case config.StrategyNative:
		if targetErr != nil {
			return "", target, fmt.Errorf("native strategy: %w", targetErr)
		}
		return config.StrategyNative, target, nil
	case "", config.StrategyAuto:
		if targetErr != nil {
			logger.Info("no native server build for this platform, using jar",
				"os", info.OS, "arch", info.Arch)
			return config.StrategyJar, target, nil
		}
		return config.StrategyNative, target, nil
	default:
		return "", target, fmt.Errorf("unknown strategy %q", s)
	}
}

func newSource(strategy config.Strategy, target platform.Target, d *artifact.Downloader, s *config.Settings) (artifact.Source, error) {
	if strategy == config.StrategyNative {
		var opts []artifact.ReleaseOption
		if s.ReleaseURL != "" {
			opts = append(opts, artifact.WithReleaseURL(s.ReleaseURL))
		}
		return artifact.NewReleaseSource(d, target, opts...)
	}

	var opts []artifact.MavenOption
	if s.RepositoryURL != "" {
		opts = append(opts, artifact.WithRepositoryURL(s.RepositoryURL))
	}
	return artifact.NewMavenSource(d, opts...), nil
}

func instrumentedClient(client *http.Client, source string, m *telemetry.Metrics) *http.Client {
	var c http.Client
	if client != nil {
		c = *client
	} else {
		c.Timeout = artifact.DefaultTimeout
	}

	var opts []telemetry.TransportOption
	if m != nil {
		opts = append(opts, telemetry.WithMetrics(m))
	}
	c.Transport = telemetry.NewInstrumentedTransport(c.Transport, source, opts...)
	return &c
}

// Strategy returns the selected strategy, jar or native.
func (a *Adapter) Strategy() config.Strategy {
	return a.strategy
}

// Settings returns the settings the adapter was created with.
func (a *Adapter) Settings() *config.Settings {
	return a.settings
}

// Manager returns the artifact manager.
func (a *Adapter) Manager() *artifact.Manager {
	return a.manager
}

// Installer returns the background installer.
func (a *Adapter) Installer() *artifact.Installer {
	return a.installer
}

// NeedsInstallation reports whether InstallOrUpdate must run before the
// server can start with the configured version.
func (a *Adapter) NeedsInstallation(ctx context.Context) (bool, error) {
	return a.manager.NeedsUpdate(ctx, a.version())
}

// InstallOrUpdate installs the version chosen by NeedsInstallation. It fails
// with artifact.ErrInstallInProgress while StartInstall's cycle is installing.
func (a *Adapter) InstallOrUpdate(ctx context.Context) error {
	return a.manager.InstallOrUpdate(ctx)
}

// StartInstall runs the check-and-install cycle in the background. It
// returns false when a cycle is already running.
func (a *Adapter) StartInstall(ctx context.Context) bool {
	return a.installer.Start(ctx, a.version())
}

// WorkDir is the server's working directory, the artifact directory.
func (a *Adapter) WorkDir() string {
	return a.manager.Dir()
}

// Uninstall removes the installed server and its record.
func (a *Adapter) Uninstall() error {
	return a.manager.Remove()
}

// Close releases the single-instance guard. It is safe to call more than
// once.
func (a *Adapter) Close() error {
	if a.closed.CompareAndSwap(false, true) {
		active.Store(false)
	}
	return nil
}

func (a *Adapter) version() string {
	if a.settings.Version == "" {
		return artifact.LatestVersion
	}
	return a.settings.Version
}
