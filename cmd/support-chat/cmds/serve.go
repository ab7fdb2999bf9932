package cmds

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"support-chat/handler"
	"support-chat/internal/config"
	"support-chat/internal/logging"
	"support-chat/internal/server"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand(rf *rootFlags) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the /chat backend as a local HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadServer()
			if err != nil {
				return err
			}
			rf.apply(cmd, &cfg.Logging)
			if cmd.Flags().Changed("listen") {
				cfg.ListenAddr = listen
			}
			logger, closer, err := logging.Init(cfg.Logging, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx := cmd.Context()
			h, err := server.Build(ctx, cfg, server.DefaultAWSConfig, logger)
			if err != nil {
				return err
			}
			srv := &http.Server{
				Addr:              cfg.ListenAddr,
				Handler:           handler.NewRouter(h),
				ReadHeaderTimeout: 10 * time.Second,
			}

			eg, egCtx := errgroup.WithContext(ctx)
			eg.Go(func() error {
				logger.Info().Str("addr", cfg.ListenAddr).Str("responder", cfg.Responder).Msg("chat backend listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return errors.Wrap(err, "serve")
				}
				return nil
			})
			eg.Go(func() error {
				<-egCtx.Done()
				logger.Info().Msg("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			return eg.Wait()
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (env SUPPORT_CHAT_LISTEN_ADDR)")
	return cmd
}
