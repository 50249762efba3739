package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/ragdesk/orchestrator"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}
	cmd.Flags().Float64P("threshold", "t", -1, "Similarity threshold override in [0, 1]")
	RootCmd.AddCommand(cmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	threshold, _ := cmd.Flags().GetFloat64("threshold")

	desk, err := openDesk()
	if err != nil {
		return fmt.Errorf("open desk: %w", err)
	}
	defer desk.Close()

	sess := desk.NewSession("")
	if threshold >= 0 {
		if err := desk.SetThreshold(sess.ID, threshold); err != nil {
			return err
		}
	}

	b, err := desk.Ask(cmd.Context(), sess.ID, strings.Join(args, " "))
	if err != nil {
		return err
	}
	return printBundle(cmd.OutOrStdout(), b)
}

func printBundle(w io.Writer, b *orchestrator.Bundle) error {
	if jsonOutput() {
		view := map[string]any{"answer": b.Answer, "sources": b.Sources, "outcome": b.Outcome}
		if b.Action != nil {
			view["action"] = map[string]any{"name": b.Action.Action, "outcome": b.Action.Outcome, "result": b.Action.ModelContent()}
		}
		return printJSON(w, view)
	}

	fmt.Fprintln(w, b.Answer)
	if b.Action != nil {
		fmt.Fprintf(w, "\n[action %s: %s]\n", b.Action.Action, b.Action.Outcome)
	}
	if len(b.Sources) > 0 {
		fmt.Fprintln(w, "\nSources:")
		for _, s := range b.Sources {
			fmt.Fprintf(w, "  - %s: %s (%s, %.2f)\n", s.ArticleID, s.Title, s.Category, s.Score)
		}
	}
	return nil
}
