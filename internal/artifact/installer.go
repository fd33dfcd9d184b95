package artifact

import (
	"context"
	"sync"
)

// Status of the background installer.
type Status int

const (
	StatusUninitialized Status = iota
	StatusInstalling
	StatusReady
	StatusFailed
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusInstalling:
		return "installing"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "error"
	default:
		return "unknown"
	}
}

// Installer runs a Manager's check-and-install cycle in the background. At
// most one cycle is in flight at a time.
type Installer struct {
	manager *Manager

	mu     sync.Mutex
	done   chan struct{}
	status Status
	err    error
}

// NewInstaller creates an installer for m.
func NewInstaller(m *Manager) *Installer {
	return &Installer{manager: m}
}

// Start launches a check-and-install cycle for desired. It returns false
// without doing anything when a cycle is already running. The cycle is not
// cancelled when ctx is; only ctx values are kept.
func (i *Installer) Start(ctx context.Context, desired string) bool {
	i.mu.Lock()
	if i.done != nil {
		select {
		case <-i.done:
		default:
			i.mu.Unlock()
			return false
		}
	}
	done := make(chan struct{})
	i.done = done
	i.status = StatusInstalling
	i.err = nil
	i.mu.Unlock()

	go func() {
		defer close(done)
		err := i.run(context.WithoutCancel(ctx), desired)

		i.mu.Lock()
		defer i.mu.Unlock()
		i.err = err
		if err != nil {
			i.status = StatusFailed
		} else {
			i.status = StatusReady
		}
	}()
	return true
}

func (i *Installer) run(ctx context.Context, desired string) error {
	needed, err := i.manager.NeedsUpdate(ctx, desired)
	if err != nil {
		return err
	}
	if !needed {
		return nil
	}
	return i.manager.InstallOrUpdate(ctx)
}

// Status returns the installer status without blocking.
func (i *Installer) Status() Status {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.status
}

// Running reports whether a cycle is in flight.
func (i *Installer) Running() bool {
	return i.Status() == StatusInstalling
}

// Err returns the error of the last finished cycle.
func (i *Installer) Err() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.err
}

// Wait blocks until the current cycle finishes or ctx is done, and returns
// the cycle's error. It returns nil immediately if no cycle was started.
func (i *Installer) Wait(ctx context.Context) error {
	i.mu.Lock()
	done := i.done
	i.mu.Unlock()

	if done == nil {
		return nil
	}

	select {
	case <-done:
		return i.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
