package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/acmelink/acmelink/bridge"
	"github.com/acmelink/acmelink/internal/logging"
	"github.com/acmelink/acmelink/internal/platform"
	"github.com/acmelink/acmelink/p9"
	"github.com/spf13/cobra"
)

// bridgeCmd mounts the acme namespace, spawns one client per
// configured language server, and drives the coordinator loop until
// the control window is deleted or the process is signalled (spec.md
// §6/§0).
var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Bridge the running acme editor to the configured language servers",
	Long: `bridge mounts the acme window service from the local 9P namespace,
opens a control window named "acmelink", and spawns one child process
per entry in the [servers] table of the configuration file. Window
focus, edits and saves are translated into LSP document lifecycle
notifications; tag clicks and hover actions are translated into LSP
requests.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
			logging.SetQuietEnabled(true)
		}
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			logging.SetDebugEnabled(true)
		}

		path, found := configPath()
		if !found {
			return fmt.Errorf("acmelink: no configuration file found (expected %s)", path)
		}
		servers, err := bridge.LoadConfig(path)
		if err != nil {
			return err
		}
		if len(servers) == 0 {
			return fmt.Errorf("acmelink: configuration %s declares no [servers]", path)
		}

		fsys, err := p9.MountService("acme")
		if err != nil {
			return fmt.Errorf("acmelink: mount acme namespace: %w", err)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		s, err := bridge.NewServer(ctx, fsys, servers)
		if err != nil {
			return fmt.Errorf("acmelink: start coordinator: %w", err)
		}
		defer s.Close()

		stopWatch := watchConfig(ctx, path)
		defer stopWatch()

		logging.Success("acmelink: bridging %d language server(s)", len(servers))
		if err := s.Run(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

// watchConfig logs a restart-required warning when the config file
// changes on disk; the coordinator has no live-reload path (spec.md
// §10.2 ADDED), so this is purely advisory.
func watchConfig(ctx context.Context, path string) func() {
	fw, err := platform.NewFSNotifyFileWatcher()
	if err != nil {
		logging.Warning("acmelink: config watch unavailable: %v", err)
		return func() {}
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		logging.Warning("acmelink: watch %s: %v", filepath.Dir(path), err)
		fw.Close()
		return func() {}
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fw.Events():
				if !ok {
					return
				}
				if ev.Name == path && ev.Op&(platform.Write|platform.Create) != 0 {
					logging.Warning("acmelink: %s changed; restart acmelink to apply it", path)
				}
			case err, ok := <-fw.Errors():
				if !ok {
					return
				}
				logging.Warning("acmelink: config watch: %v", err)
			}
		}
	}()

	return func() { fw.Close() }
}

func init() {
	rootCmd.AddCommand(bridgeCmd)
}
