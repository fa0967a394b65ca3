package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"

	"github.com/melih/dockerbar/internal/adapters/http"
	"github.com/melih/dockerbar/internal/app"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Keep the container list in sync and serve it over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, quit := context.WithCancel(ctx)
			defer quit()

			// 1. Initialize Adapters and services
			a, err := opts.build(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			if listen == "" {
				listen = a.Config.HTTP.Listen
			}

			// 2. Initialize HTTP Handlers
			containerHandler := http.NewContainerHandler(a.Controller, quit, a.Log)
			eventHandler := http.NewEventHandler(a.Hub, 0, a.Log)

			// 3. Setup Framework (Fiber)
			server := fiber.New(fiber.Config{DisableStartupMessage: true})

			// 4. Define Routes
			http.Mount(server, containerHandler, eventHandler)

			// 5. Start Server and the sync loop
			errc := make(chan error, 1)
			go func() {
				a.Log.WithField("listen", listen).Info("Server starting")
				errc <- server.Listen(listen)
			}()

			runDone := runInBackground(ctx, a)

			select {
			case <-ctx.Done():
			case err = <-errc:
				quit()
			}
			<-runDone

			a.Log.Info("Shutting down")
			if shutdownErr := server.ShutdownWithTimeout(5 * time.Second); shutdownErr != nil {
				a.Log.WithError(shutdownErr).Warn("Server shutdown")
			}
			return err
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "override http.listen")
	return cmd
}

// runInBackground starts a.Run and returns a channel closed when it returns.
func runInBackground(ctx context.Context, a *app.App) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = a.Run(ctx)
	}()
	return done
}
