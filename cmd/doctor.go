package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/acmelink/acmelink/bridge"
	"github.com/acmelink/acmelink/p9"
	"github.com/acmelink/acmelink/plumb"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// doctorCmd is a one-shot connectivity check (spec.md §0/§12, ADDED):
// it dials the acme and plumb 9P services and resolves each configured
// client's executable, but never starts the coordinator's select loop,
// mirroring the teacher's health command in spirit (health/display.go's
// pterm-based report) rather than its manifest-scoring content.
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that acme, the plumber, and configured language servers are reachable",
	Long: `doctor performs the checks acmelink's bridge command would do on
startup without actually starting it: it dials the acme window service
and the plumber over the local 9P namespace, loads the configuration
file, and resolves each configured server's executable on $PATH.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pterm.DefaultHeader.WithFullWidth().Println("acmelink doctor")
		pterm.Println()

		ok := true

		path, found := configPath()
		if !found {
			pterm.Error.Printfln("configuration: no file found (expected %s)", path)
			ok = false
		} else {
			pterm.Success.Printfln("configuration: %s", path)
		}

		var servers map[string]bridge.ClientConfig
		if found {
			var err error
			servers, err = bridge.LoadConfig(path)
			if err != nil {
				pterm.Error.Printfln("configuration: %v", err)
				ok = false
			}
		}

		if !checkService("acme", func() error {
			_, err := p9.MountService("acme")
			return err
		}) {
			ok = false
		}

		if !checkService("plumb", func() error {
			_, err := plumb.NewClient()
			return err
		}) {
			ok = false
		}

		if len(servers) == 0 {
			pterm.Warning.Println("servers: no [servers] entries configured")
		} else {
			pterm.DefaultSection.Println("Configured language servers")
			items := make([]pterm.BulletListItem, 0, len(servers))
			for name, cc := range servers {
				exe := cc.Executable
				if exe == "" {
					exe = name
				}
				resolved, err := exec.LookPath(exe)
				bullet := pterm.FgGreen.Sprint("✓")
				text := fmt.Sprintf("%s -> %s", name, resolved)
				if err != nil {
					bullet = pterm.FgRed.Sprint("✗")
					text = fmt.Sprintf("%s -> %s: not found on $PATH", name, exe)
					ok = false
				}
				items = append(items, pterm.BulletListItem{
					Level: 0,
					Text:  fmt.Sprintf("%s %s", bullet, text),
				})
			}
			_ = pterm.DefaultBulletList.WithItems(items).Render()
		}

		pterm.Println()
		if !ok {
			pterm.Error.Println("doctor found problems; see above")
			os.Exit(1)
		}
		pterm.Success.Println("everything looks reachable")
		return nil
	},
}

// checkService reports a pterm success/error line for a single dial
// attempt and returns whether it succeeded.
func checkService(name string, dial func() error) bool {
	if err := dial(); err != nil {
		pterm.Error.Printfln("%s: %v", name, err)
		return false
	}
	pterm.Success.Printfln("%s: reachable", name)
	return true
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
