package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hitoshi/todoctl/internal/config"
	"github.com/hitoshi/todoctl/internal/mockapi"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間。
const shutdownTimeout = 30 * time.Second

func newMockAPICmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mockapi",
		Short: "テスト用のインメモリToDo API",
	}
	cmd.AddCommand(newMockAPIServeCmd(app))
	return cmd
}

func newMockAPIServeCmd(app *App) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "モックAPIサーバーを起動する（SIGINT/SIGTERMで停止）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadMockAPI()
			if port != "" {
				cfg.Port = port
			}
			return app.serveMockAPI(cmd.Context(), cfg, func(addr net.Addr) {
				fmt.Fprintf(cmd.OutOrStdout(), "mock API listening on http://%s/api\n", addr)
			})
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "Listen port (default: MOCKAPI_PORT or 3000)")
	return cmd
}

// serveMockAPI はモックAPIサーバーを起動し、ctxのキャンセルまたはシグナル受信で
// グレースフルシャットダウンする。readyはリッスン開始後に1回呼ばれる。
func (app *App) serveMockAPI(ctx context.Context, cfg *config.MockAPIConfig, ready func(net.Addr)) error {
	srv := mockapi.New(mockapi.Config{
		Secret:         cfg.Secret,
		FixedToken:     cfg.FixedToken,
		TokenTTL:       cfg.TokenTTL,
		AllowedOrigins: cfg.AllowedOrigins,
		Seed:           cfg.Seed,
		Gatherer:       app.registry,
		Logger:         app.logger,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("モックAPIサーバーを起動します",
			slog.String("addr", ln.Addr().String()),
			slog.Bool("seed", cfg.Seed),
		)
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	if ready != nil {
		ready(ln.Addr())
	}

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	app.logger.Info("モックAPIサーバーを停止しています...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	app.logger.Info("モックAPIサーバーを停止しました")
	return nil
}
