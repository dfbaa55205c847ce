package cli

import (
	"fmt"
	"os"

	"github.com/MuhamedUsman/imgdrop/internal/client"
	"github.com/MuhamedUsman/imgdrop/internal/config"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

type uploadFlags struct {
	server string
	origin string
	name   string
}

func newUploadCmd() *cobra.Command {
	f := &uploadFlags{}
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload an image or a file to a running server",
	}
	cmd.PersistentFlags().StringVarP(&f.server, "server", "s",
		fmt.Sprintf("http://localhost:%d", config.DefaultPort), "Server base URL")
	cmd.PersistentFlags().StringVar(&f.origin, "origin", "", "Origin header to send")

	imageCmd := &cobra.Command{
		Use:   "image <path>",
		Short: "Upload an image and have it resized",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, size, err := f.prepare(args[0])
			if err != nil {
				return err
			}
			resp, err := c.UploadImage(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to upload image: %w", err)
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s\n", resp.Message)
			_, _ = fmt.Fprintf(out, "Name: %s\n", resp.ImageName)
			_, _ = fmt.Fprintf(out, "Size: %s\n", humanize.Bytes(uint64(size)))
			return nil
		},
	}

	fileCmd := &cobra.Command{
		Use:   "file <path>",
		Short: "Upload a file as is",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, size, err := f.prepare(args[0])
			if err != nil {
				return err
			}
			var name *string
			if cmd.Flags().Changed("name") {
				name = &f.name
			}
			resp, err := c.UploadFile(cmd.Context(), args[0], name)
			if err != nil {
				return fmt.Errorf("failed to upload file: %w", err)
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s\n", resp.Message)
			_, _ = fmt.Fprintf(out, "Name: %s\n", resp.FileName)
			_, _ = fmt.Fprintf(out, "Size: %s\n", humanize.Bytes(uint64(size)))
			return nil
		},
	}
	fileCmd.Flags().StringVarP(&f.name, "name", "n", "", "Base name to store the file under, the extension is kept")

	cmd.AddCommand(imageCmd, fileCmd)
	return cmd
}

func (f *uploadFlags) prepare(path string) (*client.Client, int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, err
	}
	if info.IsDir() {
		return nil, 0, fmt.Errorf("%q is a directory", path)
	}
	var opts []client.Option
	if f.origin != "" {
		opts = append(opts, client.WithOrigin(f.origin))
	}
	c, err := client.New(f.server, opts...)
	return c, info.Size(), err
}
