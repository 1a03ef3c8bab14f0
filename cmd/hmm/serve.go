package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aretw0/hmm"
	"github.com/aretw0/hmm/internal/cli"
	"github.com/aretw0/hmm/internal/presentation/tui"
	httpAdapter "github.com/aretw0/hmm/pkg/adapters/http"
	"github.com/aretw0/hmm/pkg/domain"
	"github.com/aretw0/hmm/pkg/observability"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP inference server",
	Long:  `Serves the stored models over a JSON API, with Prometheus metrics at /metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetString("port")
		withMetrics, _ := cmd.Flags().GetBool("metrics")
		logRequests, _ := cmd.Flags().GetBool("log-inference")

		logger, err := globals.Logger()
		exitOnError(err)

		var (
			hooks       []domain.Hooks
			handlerOpts = []httpAdapter.Option{httpAdapter.WithLogger(logger)}
		)
		if withMetrics {
			metrics, err := observability.NewMetrics()
			exitOnError(err)
			hooks = append(hooks, metrics.Hooks())
			handlerOpts = append(handlerOpts, httpAdapter.WithMetrics(metrics.Handler()))
		}
		if logRequests {
			hooks = append(hooks, observability.LogHooks(logger))
		}

		var modelOpts []hmm.Option
		if len(hooks) > 0 {
			modelOpts = append(modelOpts, hmm.WithHooks(observability.Combine(hooks...)))
		}
		c, closer, err := globals.Catalog(logger, modelOpts...)
		exitOnError(err)
		defer closer()

		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           httpAdapter.NewHandler(c, handlerOpts...),
			ReadHeaderTimeout: 10 * time.Second,
		}

		if cli.IsTerminal(os.Stdout) {
			tui.PrintBanner(os.Stdout)
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			fmt.Printf("Starting hmm server on %s\n", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				exitOnError(fmt.Errorf("server error: %w", err))
			}
		case <-ctx.Done():
			fmt.Printf("\nStart shutdown... Signal: %v\n", ctx.Signal())

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("hmm server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().Bool("metrics", true, "Expose Prometheus metrics at /metrics")
	serveCmd.Flags().Bool("log-inference", false, "Log every inference and training event")
}
