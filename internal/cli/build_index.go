package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "build-index",
		Short: "Build the knowledge index from the corpus",
		Long:  "Chunk and embed the knowledge corpus, then persist the index for later runs.",
		Args:  cobra.NoArgs,
		RunE:  runBuildIndex,
	}
	RootCmd.AddCommand(cmd)
}

func runBuildIndex(cmd *cobra.Command, _ []string) error {
	desk, err := openDesk()
	if err != nil {
		return fmt.Errorf("open desk: %w", err)
	}
	defer desk.Close()

	info, err := desk.RebuildIndex(cmd.Context())
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput() {
		return printJSON(out, info)
	}
	fmt.Fprintf(out, "built index %s: %d chunks, %d dimensions\n", info.BuildID, info.Chunks, info.Dimensions)
	return nil
}
