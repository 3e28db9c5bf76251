package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/go-chi/chi/v5"
	"github.com/samber/do"
	"github.com/serroba/ollo/internal/auth"
	"github.com/serroba/ollo/internal/cleanup"
	"github.com/serroba/ollo/internal/container"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func registerPackages(injector *do.Injector, options *container.Options) {
	container.Register(injector, options)
	container.RateLimitPackage(injector)
	container.AuthPackage(injector)
	container.HTTPPackage(injector)
}

func mustValidate(options *container.Options) {
	if err := options.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid options:", err)
		os.Exit(1)
	}
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, options *container.Options) {
		injector := do.New()
		registerPackages(injector, options)

		var (
			server *http.Server
			logger *zap.Logger
		)

		hooks.OnStart(func() {
			mustValidate(options)

			logger = do.MustInvoke[*zap.Logger](injector)
			router := do.MustInvoke[*chi.Mux](injector)

			// Invoke API to trigger route registration
			_ = do.MustInvoke[huma.API](injector)

			if options.CleanupInProcess {
				scheduler := do.MustInvoke[*cleanup.Scheduler](injector)
				if err := scheduler.Start(context.Background()); err != nil {
					logger.Fatal("failed to start cleanup scheduler", zap.Error(err))
				}
			}

			server = &http.Server{
				Addr:              fmt.Sprintf(":%d", options.Port),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			logger.Info("server starting", zap.Int("port", options.Port))

			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal("server failed", zap.Error(err))
			}
		})

		hooks.OnStop(func() {
			if logger == nil {
				return
			}

			logger.Info("shutting down")

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if server != nil {
				if err := server.Shutdown(ctx); err != nil {
					logger.Error("server shutdown error", zap.Error(err))
				}
			}

			if err := injector.Shutdown(); err != nil {
				logger.Error("service shutdown error", zap.Error(err))
			}

			logger.Info("shutdown complete")
		})
	})

	cli.Root().AddCommand(cleanupCommand(), tokenCommand())

	cli.Run()
}

// cleanupCommand runs the expired-story job once and exits.
func cleanupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired stories and their media once",
		Args:  cobra.NoArgs,
		Run: humacli.WithOptions(func(cmd *cobra.Command, _ []string, options *container.Options) {
			mustValidate(options)

			injector := do.New()
			container.Register(injector, options)

			defer func() { _ = injector.Shutdown() }()

			logger := do.MustInvoke[*zap.Logger](injector)

			report, err := do.MustInvoke[*cleanup.Job](injector).Run(cmd.Context())
			if err != nil {
				logger.Error("cleanup failed", zap.Error(err))

				return
			}

			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d stories, %d blobs, %d blob failures\n",
				len(report.Deleted), report.BlobsDeleted, report.BlobFailures)
		}),
	}
}

// tokenCommand mints a bearer token for local testing.
func tokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "token <uid>",
		Short: "Print a bearer token for uid signed with the auth secret",
		Args:  cobra.ExactArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, options *container.Options) {
			verifier, err := auth.NewHMACVerifier(options.AuthSecret)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				os.Exit(1)
			}

			fmt.Fprintln(cmd.OutOrStdout(), verifier.Sign(args[0]))
		}),
	}
}
