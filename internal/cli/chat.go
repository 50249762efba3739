package cli

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive help-desk conversation",
		Long:  "Reads questions from stdin. Commands: /reset, /threshold <value>, /history, /quit.",
		Args:  cobra.NoArgs,
		RunE:  runChat,
	}
	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	desk, err := openDesk()
	if err != nil {
		return fmt.Errorf("open desk: %w", err)
	}
	defer desk.Close()

	sess := desk.NewSession("")
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())

	fmt.Fprintln(out, "IT help desk. Type /quit to exit.")
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/reset":
			if err := desk.Reset(sess.ID); err != nil {
				return err
			}
			fmt.Fprintln(out, "conversation cleared")
			continue
		case line == "/history":
			turns, err := desk.History(sess.ID, 0)
			if err != nil {
				return err
			}
			for _, t := range turns {
				fmt.Fprintf(out, "%s: %s\n", t.Role, t.Text)
			}
			continue
		case strings.HasPrefix(line, "/threshold"):
			v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(line, "/threshold")), 64)
			if err == nil {
				err = desk.SetThreshold(sess.ID, v)
			}
			if err != nil {
				fmt.Fprintf(out, "invalid threshold: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "threshold set to %.2f\n", v)
			continue
		}

		b, err := desk.Ask(cmd.Context(), sess.ID, line)
		if err != nil {
			return err
		}
		if err := printBundle(out, b); err != nil {
			return err
		}
	}
	return scanner.Err()
}
