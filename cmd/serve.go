package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/loog-project/roster/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	flags := serveCmd.Flags()
	flags.StringP(keyListen, "l", ":8080",
		"Address to listen on")
	flags.Bool(keyNoDurableSync, false,
		"Skip fsync on every commit to improve throughput (unsafe on crashes)")
	flags.Bool(keyDisableCache, false,
		"Disable in-memory cache of the latest revisions")
	flags.Duration(keyShutdownTimeout, 10*time.Second,
		"Time to wait for running requests on shutdown")

	bindFlags(flags, keyListen, keyNoDurableSync, keyDisableCache, keyShutdownTimeout)
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	a, err := openApp(
		!viper.GetBool(keyNoDurableSync),
		!viper.GetBool(keyDisableCache),
		viper.GetUint64(keySnapshotInterval),
	)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, errCh := startServer(a, viper.GetString(keyListen))
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	setupLog.Info().Msg("Received signal, shutting down...")
	if err := shutdownServer(a, srv); err != nil {
		return err
	}
	setupLog.Info().Msg("Server stopped, bye!")
	return nil
}

// startServer serves the API in the background. The channel receives the
// error that stopped the server, nil after a regular shutdown.
func startServer(a *app, listen string) (*api.Server, <-chan error) {
	srv := api.NewServer(a.roster)
	errCh := make(chan error, 1)
	go func() {
		setupLog.Info().Str("listen", listen).Msg("Serving HTTP API")
		err := srv.Start(listen)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()
	return srv, errCh
}

func shutdownServer(a *app, srv *api.Server) error {
	// ends open event streams, Shutdown waits for them otherwise
	a.events.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), viper.GetDuration(keyShutdownTimeout))
	defer cancel()
	return srv.Shutdown(ctx)
}
