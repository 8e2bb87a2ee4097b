package main

import (
	"fmt"
	"os"

	"media-gallery/internal/startup"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "media-gallery",
		Short:         "Self-hosted image and video gallery",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", startup.Version, startup.Commit, startup.BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newHashPasswordCmd())
	root.AddCommand(newRebuildThumbnailsCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
