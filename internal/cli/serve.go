package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/ragdesk/server"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().Bool("watch", false, "Rebuild the index when the corpus changes")
	cmd.Flags().Bool("build", false, "Build the index before serving")
	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	watch, _ := cmd.Flags().GetBool("watch")
	build, _ := cmd.Flags().GetBool("build")

	desk, err := openDesk()
	if err != nil {
		return fmt.Errorf("open desk: %w", err)
	}
	defer desk.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, ok := desk.Index(); build || !ok {
		if _, err := desk.RebuildIndex(ctx); err != nil {
			return fmt.Errorf("build index: %w", err)
		}
	}
	if watch || desk.Config().Knowledge.Watch {
		if err := desk.WatchCorpus(ctx); err != nil {
			return fmt.Errorf("watch corpus: %w", err)
		}
	}

	srv := server.New(desk, desk.Config().Server, desk.Logger())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
