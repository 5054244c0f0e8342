package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/custodia-labs/carat/internal/core/services"
	"github.com/custodia-labs/carat/internal/logger"
)

// stdinIsTerminal reports whether --confirm can prompt. Tests replace it.
var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Retrain whenever a dataset is dropped into the watch directory",
	Long: `Load (or train) the newest model, then watch the watch directory.

Every CSV file created or modified there is validated and used to continue
training the current model. Invalid files are logged and skipped. Stop with
Ctrl+C; a retrain already running is allowed to finish.

With --metrics-addr, Prometheus metrics are served on /metrics.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Bool("confirm", false, "ask before training on each file")
	watchCmd.Flags().String("metrics-addr", "", "listen address for /metrics, e.g. :9090")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	confirm, err := cmd.Flags().GetBool("confirm")
	if err != nil {
		return fmt.Errorf("getting confirm flag: %w", err)
	}

	var approve services.ApproveFunc
	if confirm {
		if !stdinIsTerminal() {
			return errors.New("--confirm needs an interactive terminal")
		}
		approve = confirmPrompt(cmd.InOrStdin(), cmd.OutOrStdout())
	}

	a, settings, err := openApp(approve)
	if err != nil {
		return err
	}
	if settings.Paths.WatchDir == "" {
		return errors.New("no watch directory configured; set paths.watch_dir or --watch-dir")
	}
	addr := settings.Metrics.Addr
	if cmd.Flags().Changed("metrics-addr") {
		addr, _ = cmd.Flags().GetString("metrics-addr")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := a.lifecycle.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if err := a.lifecycle.StartWatching(ctx); err != nil {
		return err
	}
	cmd.Printf("Watching %s (Ctrl+C to stop)\n", settings.Paths.WatchDir)

	g, gctx := errgroup.WithContext(ctx)
	if addr != "" {
		serveMetrics(gctx, g, addr, a.metrics)
	}
	g.Go(func() error {
		<-gctx.Done()
		return a.lifecycle.StopWatching()
	})
	return g.Wait()
}

func serveMetrics(ctx context.Context, g *errgroup.Group, addr string, handler http.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info("Serving metrics on %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// confirmPrompt asks on out and reads y/n answers from in.
func confirmPrompt(in io.Reader, out io.Writer) services.ApproveFunc {
	reader := bufio.NewReader(in)
	return func(path string) bool {
		fmt.Fprintf(out, "New data found in %s. Train the model with it? (y/n) ", path)
		answer, err := reader.ReadString('\n')
		if err != nil && answer == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return true
		default:
			return false
		}
	}
}
