package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ZebulonRouseFrantzich/xmlls/internal/config"
)

// Command returns the server command line. The artifact must be installed.
func (a *Adapter) Command() ([]string, error) {
	path, err := a.manager.Path()
	if err != nil {
		return nil, err
	}

	if a.strategy == config.StrategyNative {
		argv := []string{path}
		for _, arg := range a.settings.Java.VMArgs {
			if !strings.HasPrefix(arg, "-D") {
				a.logger.Debug("dropping JVM argument for native server", "arg", arg)
				continue
			}
			argv = append(argv, arg)
		}
		return argv, nil
	}

	argv := []string{a.javaExecutable()}
	argv = append(argv, a.settings.Java.VMArgs...)
	argv = append(argv, "-jar", path)
	return argv, nil
}

// javaExecutable returns java.home/bin/java, or "java" to be found on PATH.
func (a *Adapter) javaExecutable() string {
	if a.settings.Java.Home == "" {
		return "java"
	}
	name := "java"
	if a.info.IsWindows() {
		name += ".exe"
	}
	return filepath.Join(config.ExpandHome(a.settings.Java.Home), "bin", name)
}

// Launch runs the server with stdio wired to the given streams and waits for
// it to exit. Cancelling ctx kills the server.
func (a *Adapter) Launch(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) error {
	argv, err := a.Command()
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = a.WorkDir()
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	a.logger.Info("starting server", "command", argv, "dir", cmd.Dir)
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) && a.strategy == config.StrategyJar {
			return fmt.Errorf("start server: %w (install Java or set java.home)", err)
		}
		return fmt.Errorf("run server: %w", err)
	}
	return nil
}
