package cli

import (
	"fmt"
	"log/slog"

	"github.com/MuhamedUsman/imgdrop/internal/config"
	"github.com/MuhamedUsman/imgdrop/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd(configPath *string) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the upload server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath(*configPath)
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("loading config %q: %w", path, err)
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if err = configureLogging(cfg.Log); err != nil {
				slog.Warn("falling back to info logging", "err", err)
			}
			slog.Debug("config loaded", "path", path)

			s, err := server.New(cfg)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := s.Close(); cerr != nil {
					slog.Error("closing server", "err", cerr)
				}
			}()
			return s.Start()
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", config.DefaultPort, "Port to listen on, overrides server.port")
	return cmd
}
