package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "articles [query]",
		Short: "List knowledge articles relevant to a query",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runArticles,
	}
	cmd.Flags().IntP("limit", "k", 3, "Max articles")
	RootCmd.AddCommand(cmd)
}

func runArticles(cmd *cobra.Command, args []string) error {
	k, _ := cmd.Flags().GetInt("limit")

	desk, err := openDesk()
	if err != nil {
		return fmt.Errorf("open desk: %w", err)
	}
	defer desk.Close()

	articles, err := desk.RelevantArticles(cmd.Context(), strings.Join(args, " "), k)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput() {
		return printJSON(out, articles)
	}
	if len(articles) == 0 {
		fmt.Fprintln(out, "no relevant articles found")
		return nil
	}
	for _, a := range articles {
		fmt.Fprintf(out, "%s  %s (%s, %.2f)\n    %s\n", a.ID, a.Title, a.Category, a.Score, strings.ReplaceAll(a.Preview, "\n", " "))
	}
	return nil
}
