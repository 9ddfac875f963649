package app

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hitoshi/todoctl/internal/config"
	"github.com/hitoshi/todoctl/internal/database"
)

func newMigrateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "PostgreSQLセッションストアのマイグレーション（DATABASE_URL が必須）",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "未適用のマイグレーションをすべて適用する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runMigrate(cmd, database.RunMigrations, "up")
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "すべてのマイグレーションを巻き戻す（保存済みトークンは失われる）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runMigrate(cmd, database.RollbackMigrations, "down")
		},
	})
	return cmd
}

// runMigrate はデータベースマイグレーションを実行する。
func (app *App) runMigrate(cmd *cobra.Command, migrate func(string) error, direction string) error {
	databaseURL, err := config.LoadDatabaseURL()
	if err != nil {
		return writeErr(cmd, err)
	}

	app.logger.Info("running database migrations",
		slog.String("direction", direction),
		slog.String("database_url", maskDatabaseURL(databaseURL)),
	)

	if err := migrate(databaseURL); err != nil {
		return writeErr(cmd, fmt.Errorf("migration failed: %w", err))
	}

	app.logger.Info("database migrations completed successfully", slog.String("direction", direction))
	return writeOut(cmd, app, message{Message: "migrate " + direction + " completed"})
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
