package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/skin-check/internal/handlers"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local session server",
		Long: `Starts a local HTTP server holding a single classification session.

A UI shell selects images with POST /select, submits them with POST /submit
and redraws from GET /state (or from the Redis channel when configured).`,
		Example: `  # Start on the configured address (default :8080)
  skincheck serve

  # Point at a different classifier
  CLASSIFIER_ENDPOINT=http://10.0.0.5:8000/upload skincheck serve --addr :9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			if addr == "" {
				addr = a.cfg.ListenAddr
			}

			gin.SetMode(gin.ReleaseMode)
			router := gin.New()
			router.Use(gin.Recovery())
			handlers.RegisterRoutes(router, &handlers.API{
				Session:     a.session,
				Permission:  a.permission,
				GalleryRoot: a.cfg.GalleryRoot,
				Submissions: a.submissions,
				Logger:      a.logger,
			})

			server := &http.Server{
				Addr:              addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			a.logger.Info("session server listening",
				zap.String("addr", addr),
				zap.String("endpoint", a.cfg.EndpointURL),
			)
			return serveHTTPServer(cmd.Context(), server, shutdownTimeout, a.logger)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Address to listen on (overrides LISTEN_ADDR)")

	return cmd
}

func serveHTTPServer(ctx context.Context, server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	return serveHTTPServerWithOptions(ctx, server, shutdownTimeout, logger, nil, nil)
}

func serveHTTPServerWithOptions(ctx context.Context, server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener, signalCh <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	var (
		sigCh       <-chan os.Signal
		stopSignals func()
	)

	if signalCh != nil {
		sigCh = signalCh
		stopSignals = func() {}
	} else {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		sigCh = ch
		stopSignals = func() {
			signal.Stop(ch)
		}
	}
	defer stopSignals()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	case sig, ok := <-sigCh:
		if !ok {
			return <-errCh
		}
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return <-errCh
}
