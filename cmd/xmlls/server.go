package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ZebulonRouseFrantzich/xmlls/internal/adapter"
	"github.com/ZebulonRouseFrantzich/xmlls/internal/artifact"
	"github.com/spf13/cobra"
)

func newStatusCommand(a *app) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the installed server and its update schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ad, err := a.openAdapter(cmd.Context())
			if err != nil {
				return err
			}
			defer ad.Close()

			out := cmd.OutOrStdout()
			m := ad.Manager()
			fmt.Fprintf(out, "Strategy:   %s\n", ad.Strategy())
			fmt.Fprintf(out, "Directory:  %s\n", ad.WorkDir())

			rec, ok := m.Installed()
			if !ok {
				fmt.Fprintln(out, "Installed:  no")
			} else {
				path, _ := m.Path()
				fmt.Fprintf(out, "Installed:  %s\n", rec.Version)
				fmt.Fprintf(out, "Path:       %s\n", path)
				fmt.Fprintf(out, "Checksum:   %s\n", rec.Checksum)
				fmt.Fprintf(out, "Next check: %s\n", rec.NextCheck().Local().Format(time.RFC3339))
			}

			if !check {
				return nil
			}
			needed, err := ad.NeedsInstallation(cmd.Context())
			if err != nil {
				return err
			}
			if res, pending := m.Pending(); needed && pending {
				fmt.Fprintf(out, "Update:     %s available\n", res.Version)
			} else {
				fmt.Fprintln(out, "Update:     up to date")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Check for updates (contacts the remote when due)")
	return cmd
}

func newInstallCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Install or update the server when needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ad, err := a.openAdapter(cmd.Context())
			if err != nil {
				return err
			}
			defer ad.Close()

			if err := install(cmd.Context(), ad); err != nil {
				return err
			}

			rec, _ := ad.Manager().Installed()
			fmt.Fprintf(cmd.OutOrStdout(), "LemMinX %s (%s) ready in %s\n", rec.Version, ad.Strategy(), ad.WorkDir())
			return nil
		},
	}
}

// install runs the background installer and waits for it. Interrupting the
// wait leaves the download running until the process exits.
func install(ctx context.Context, ad *adapter.Adapter) error {
	ad.StartInstall(ctx)
	return ad.Installer().Wait(ctx)
}

func newCommandCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "command",
		Short: "Print the server command line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ad, err := a.openAdapter(cmd.Context())
			if err != nil {
				return err
			}
			defer ad.Close()

			argv, err := ad.Command()
			if errors.Is(err, artifact.ErrNotInstalled) {
				return fmt.Errorf("%w: run 'xmlls install' first", err)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(argv)
			}
			for _, arg := range argv {
				fmt.Fprintln(out, arg)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as a JSON array")
	return cmd
}

func newInitOptionsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init-options",
		Short: "Print the initializationOptions sent to the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ad, err := a.openAdapter(cmd.Context())
			if err != nil {
				return err
			}
			defer ad.Close()

			opts, err := ad.InitializationOptions()
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			if err := json.Indent(&buf, opts, "", "  "); err != nil {
				return fmt.Errorf("format options: %w", err)
			}
			buf.WriteByte('\n')
			_, err = buf.WriteTo(cmd.OutOrStdout())
			return err
		},
	}
}

func newRunCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Install if needed, then run the server over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ad, err := a.openAdapter(cmd.Context())
			if err != nil {
				return err
			}
			defer ad.Close()

			if err := install(cmd.Context(), ad); err != nil {
				if _, ok := ad.Manager().Installed(); !ok {
					return err
				}
				a.logger.Warn("update failed, starting installed server", "error", err)
			}
			return ad.Launch(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func newUninstallCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the installed server and its update record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ad, err := a.openAdapter(cmd.Context())
			if err != nil {
				return err
			}
			defer ad.Close()

			if err := ad.Uninstall(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", ad.WorkDir())
			return nil
		},
	}
}
