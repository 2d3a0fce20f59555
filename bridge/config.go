package bridge

import (
	"fmt"
	"regexp"

	"github.com/acmelink/acmelink/lspclient"
	"github.com/spf13/viper"
)

// ClientConfig is the TOML shape of one configured LSP client
// (spec.md §6): a mapping from client name to this struct. Missing
// Executable defaults to the client name; Files is a regex compiled
// once at load time.
type ClientConfig struct {
	Executable         string            `mapstructure:"executable"`
	Args               []string          `mapstructure:"args"`
	Files              string            `mapstructure:"files"`
	RootURI            string            `mapstructure:"root_uri"`
	WorkspaceFolders   []string          `mapstructure:"workspace_folders"`
	Options            map[string]any    `mapstructure:"options"`
	ActionsOnPut       []string          `mapstructure:"actions_on_put"`
	FormatOnPut        *bool             `mapstructure:"format_on_put"`
	Env                map[string]string `mapstructure:"env"`
}

// LoadConfig reads acmelink.toml at path into a name -> ClientConfig
// map. An empty or absent file is the caller's concern (spec.md §6:
// exit code 1 on missing/empty config); LoadConfig itself only
// reports read/parse errors.
func LoadConfig(path string) (map[string]ClientConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("bridge: read config %s: %w", path, err)
	}

	var servers map[string]ClientConfig
	if err := v.UnmarshalKey("servers", &servers); err != nil {
		return nil, fmt.Errorf("bridge: parse config %s: %w", path, err)
	}
	return servers, nil
}

// ToClientConfigs compiles each TOML entry into a lspclient.Config,
// defaulting Executable to the client's name and FormatOnPut to true.
func ToClientConfigs(servers map[string]ClientConfig) (map[string]lspclient.Config, error) {
	out := make(map[string]lspclient.Config, len(servers))
	for name, cc := range servers {
		files := cc.Files
		if files == "" {
			files = ".*"
		}
		re, err := regexp.Compile(files)
		if err != nil {
			return nil, fmt.Errorf("bridge: client %s: invalid files regex %q: %w", name, files, err)
		}
		exe := cc.Executable
		if exe == "" {
			exe = name
		}
		formatOnPut := true
		if cc.FormatOnPut != nil {
			formatOnPut = *cc.FormatOnPut
		}
		out[name] = lspclient.Config{
			Name:             name,
			Executable:       exe,
			Args:             cc.Args,
			Env:              cc.Env,
			Files:            re,
			RootURI:          cc.RootURI,
			WorkspaceFolders: cc.WorkspaceFolders,
			Options:          cc.Options,
			ActionsOnPut:     cc.ActionsOnPut,
			FormatOnPut:      formatOnPut,
		}
	}
	return out, nil
}
