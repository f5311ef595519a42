package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mattsolo1/grove-explorer/pkg/explorer"
	"github.com/mattsolo1/grove-explorer/pkg/manifest"
	"github.com/mattsolo1/grove-explorer/pkg/service"
)

var configFlag *pflag.Flag

func InitConfig() {
	if configFlag != nil && configFlag.Value.String() != "" {
		viper.SetConfigFile(configFlag.Value.String())
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		configDir := filepath.Join(home, ".config", "grove-explorer")
		viper.AddConfigPath(configDir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("GROVE_EXPLORER")
	viper.AutomaticEnv()

	home, _ := os.UserHomeDir()
	viper.SetDefault("backend_url", "http://localhost:2000")
	viper.SetDefault("data_dir", filepath.Join(home, ".local", "share", "grove-explorer"))
	viper.SetDefault("timeout", 30*time.Second)
	viper.SetDefault("debug_delay", time.Duration(0))
	viper.SetDefault("local", true)
	viper.SetDefault("manifest", filepath.Join(home, ".config", "grove-explorer", "manifest.yaml"))
	viper.SetDefault("private_group", "private")

	// A missing config file is fine; defaults and env apply.
	_ = viper.ReadInConfig()
}

// Applications decodes the `applications` list declared inline in the
// config file.
func Applications() ([]manifest.Application, error) {
	raw := viper.Get("applications")
	if raw == nil {
		return nil, nil
	}
	var apps []manifest.Application
	if err := mapstructure.Decode(raw, &apps); err != nil {
		return nil, fmt.Errorf("decode applications: %w", err)
	}
	for _, app := range apps {
		if app.CDNPackage == "" {
			return nil, fmt.Errorf("decode applications: an application has no cdn_package")
		}
	}
	return apps, nil
}

// ServiceConfig builds the session configuration from viper.
func ServiceConfig() (*service.Config, error) {
	apps, err := Applications()
	if err != nil {
		return nil, err
	}
	ex := explorer.DefaultConfig()
	ex.DebugDelay = viper.GetDuration("debug_delay")
	ex.Local = viper.GetBool("local")
	ex.PrivateGroupPath = viper.GetString("private_group")

	return &service.Config{
		BackendURL:   viper.GetString("backend_url"),
		Token:        viper.GetString("token"),
		Timeout:      viper.GetDuration("timeout"),
		DataDir:      viper.GetString("data_dir"),
		ManifestPath: viper.GetString("manifest"),
		Applications: apps,
		Explorer:     ex,
	}, nil
}

func AddGlobalFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	// the standard command may already carry --config
	if flags.Lookup("config") == nil {
		flags.String("config", "", "config file (default is $HOME/.config/grove-explorer/config.yaml)")
	}
	configFlag = flags.Lookup("config")
	flags.String("backend-url", "", "backend url (overrides backend_url)")
	cobra.CheckErr(viper.BindPFlag("backend_url", flags.Lookup("backend-url")))
}
