package cmd

import (
	"os"

	"github.com/adrg/xdg"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "acmelink",
	Short: "Bridge the acme editor to one or more language servers",
	Long: `acmelink mediates between the acme text editor and one or more
Language Server Protocol servers: opening, focusing, editing and saving
windows is translated into LSP document lifecycle events, and
user-issued commands (definition, references, symbols, ...) are
translated into LSP requests whose results are plumbed back into the
editor.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once by main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// configPath resolves the acmelink.toml path: the --config flag if
// given, otherwise xdg.SearchConfigFile under "acmelink/acmelink.toml"
// (falling back to the path xdg.ConfigFile would create, purely to
// report where the file is expected to be, per spec.md §6's "missing
// or empty configuration is exit code 1").
func configPath() (path string, found bool) {
	if explicit := viper.GetString("configFile"); explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit, true
		}
		return explicit, false
	}
	if p, err := xdg.SearchConfigFile("acmelink/acmelink.toml"); err == nil {
		return p, true
	}
	expected, err := xdg.ConfigFile("acmelink/acmelink.toml")
	if err != nil {
		expected = "$XDG_CONFIG_HOME/acmelink/acmelink.toml"
	}
	return expected, false
}

func initConfig() {
	if viper.GetBool("verbose") {
		pterm.EnableDebugMessages()
	}
	viper.AutomaticEnv()
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().String("config", "", "config file (default: $XDG_CONFIG_HOME/acmelink/acmelink.toml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose logging output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress non-error output")
	_ = viper.BindPFlag("configFile", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}
