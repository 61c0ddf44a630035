package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/referral-cli/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the recommendation API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		// Warm the cache in the background so a slow source cannot
		// delay the first listen. Failure is non-fatal: the status
		// board carries the error and the first request retries the
		// load.
		go func() {
			if _, err := env.providers.Get(ctx); err != nil {
				zap.L().Warn("initial provider build failed", zap.Error(err))
			}
		}()

		if env.cfg.Cache.RefreshHour >= 0 {
			go env.scheduleDailyRefresh(ctx)
		}

		port := servePort
		if port == 0 {
			port = env.cfg.Server.Port
		}

		srv := server.New(server.Deps{
			Recommend: env.recommend,
			Refresh:   env.providers.Refresh,
			Status:    env.statusResponse,
		}, port)
		return srv.ListenAndServe(ctx)
	},
}

// scheduleDailyRefresh rebuilds the provider set once a day at the
// configured local hour, so weekday exports land before the intake
// team starts.
func (env *appEnv) scheduleDailyRefresh(ctx context.Context) {
	for {
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), env.cfg.Cache.RefreshHour, 0, 0, 0, now.Location())
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}

		t := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}

		if _, err := env.providers.Refresh(ctx); err != nil {
			zap.L().Error("scheduled refresh failed", zap.Error(err))
		}
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
