package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/MuhamedUsman/imgdrop/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}
	cmd.AddCommand(newConfigInitCmd(configPath))
	return cmd
}

func newConfigInitCmd(configPath *string) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath(*configPath)
			if err != nil {
				return err
			}
			_, err = os.Stat(path)
			if err == nil && !force {
				return fmt.Errorf("config file %q already exists, use --force to overwrite it", path)
			}
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("checking config file: %w", err)
			}
			if err = config.Save(path, config.Default()); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config file")
	return cmd
}
