// Package cli wires the imgdrop commands.
package cli

import (
	"os"

	"github.com/MuhamedUsman/imgdrop/internal/config"
	"github.com/MuhamedUsman/imgdrop/internal/util"
	"github.com/spf13/cobra"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var configPath string
	rootCmd := &cobra.Command{
		Use:   "imgdrop",
		Short: "Image and file upload service",
		Long: "imgdrop accepts multipart uploads, stores files as sent and images as an\n" +
			"original plus resized JPEG variants, and serves both back over HTTP.",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to the TOML config file (default $"+config.EnvPath+" or the user config dir)")

	rootCmd.AddCommand(newServeCmd(&configPath))
	rootCmd.AddCommand(newConfigCmd(&configPath))
	rootCmd.AddCommand(newUploadCmd())
	return rootCmd
}

// resolveConfigPath returns the --config flag, or the default location when it is unset.
func resolveConfigPath(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	return config.DefaultPath()
}

// configureLogging applies the [log] section, an unknown level falls back to info.
func configureLogging(c config.LogConfig) error {
	level, err := util.ParseLevel(c.Level)
	util.ConfigureSlog(os.Stderr, util.SlogOptions{
		Level:     level,
		NoColor:   c.NoColor,
		AddSource: c.AddSource,
	})
	return err
}
