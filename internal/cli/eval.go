package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/ragdesk/evaluation"
)

func init() {
	cmd := &cobra.Command{
		Use:   "eval [cases.yaml]",
		Short: "Measure retrieval quality against labeled queries",
		Long:  "Run each labeled query through retrieval and report hit rate and mean reciprocal rank.",
		Args:  cobra.ExactArgs(1),
		RunE:  runEval,
	}
	cmd.Flags().IntP("limit", "k", 3, "Max articles per query")
	RootCmd.AddCommand(cmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	k, _ := cmd.Flags().GetInt("limit")

	cases, err := evaluation.LoadCases(args[0])
	if err != nil {
		return err
	}

	desk, err := openDesk()
	if err != nil {
		return fmt.Errorf("open desk: %w", err)
	}
	defer desk.Close()

	retriever := evaluation.RetrieverFunc(func(ctx context.Context, query string) ([]string, error) {
		articles, err := desk.RelevantArticles(ctx, query, k)
		if err != nil {
			return nil, err
		}
		ids := make([]string, len(articles))
		for i, a := range articles {
			ids[i] = a.ID
		}
		return ids, nil
	})

	report, err := evaluation.Run(cmd.Context(), evaluation.NewRetrievalEvaluator(retriever), cases)
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput() {
		return printJSON(out, report)
	}
	for _, r := range report.Results {
		mark := "FAIL"
		if r.Hit {
			mark = "ok  "
		}
		fmt.Fprintf(out, "%s %q -> %v (expected %v)\n", mark, r.Case.Query, r.Retrieved, r.Case.Expected)
	}
	fmt.Fprintf(out, "hit rate %.2f, mrr %.2f over %d cases\n", report.HitRate, report.MRR, len(report.Results))
	return nil
}
