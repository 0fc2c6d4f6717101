package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/cognify/internal/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := buildRuntime(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := rt.Close(sctx); err != nil {
				fmt.Fprintln(os.Stderr, "shutdown:", err)
			}
		}()

		gin.SetMode(cfg.Server.Mode)
		routerCfg := httpapi.RouterConfig{
			Handler: httpapi.NewHandler(rt.engine, rt.store, rt.log),
			Logger:  rt.log,
		}
		if cfg.Server.Metrics {
			routerCfg.Metrics = rt.metrics
		}
		if cfg.Tracing.Enabled {
			routerCfg.Tracer = rt.tracer
		}

		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           httpapi.NewRouter(routerCfg),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			rt.log.Info("listening", zap.String("addr", cfg.Server.Addr), zap.String("version", version))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			rt.log.Info("shutting down")
			sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
}
