package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/hitoshi/todoctl/internal/apiclient"
	"github.com/hitoshi/todoctl/internal/config"
	"github.com/hitoshi/todoctl/internal/database"
	"github.com/hitoshi/todoctl/internal/repository"
	"github.com/hitoshi/todoctl/internal/session"
	"github.com/hitoshi/todoctl/internal/store"
)

// clientEnv はauth/todosコマンドが使う依存関係一式。
type clientEnv struct {
	client  *apiclient.Client
	auth    *store.AuthStore
	todos   *store.TodoStore
	timeout time.Duration
	close   func() error
}

// openClient は設定を読み込み、セッションストア、APIクライアント、ストアを組み立てる。
func (app *App) openClient(ctx context.Context) (*clientEnv, error) {
	cfg, err := config.LoadClient()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	sessionStore, closeStore, err := openSessionStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sess := session.New(sessionStore, session.WithOverride(cfg.Token))
	client := apiclient.New(cfg.APIBaseURL, sess,
		apiclient.WithLogger(app.logger),
		apiclient.WithMetrics(app.metrics),
		apiclient.WithRateLimit(cfg.RequestRate, cfg.RequestBurst),
	)

	app.logger.Debug("APIクライアントを初期化しました",
		slog.String("base_url", client.BaseURL()),
		slog.String("session_backend", cfg.SessionBackend),
	)

	return &clientEnv{
		client:  client,
		auth:    store.NewAuthStore(client, app.logger),
		todos:   store.NewTodoStore(client, app.logger),
		timeout: cfg.HTTPTimeout,
		close:   closeStore,
	}, nil
}

// openSessionStore はSESSION_BACKENDに応じたセッションストアを開く。
// 戻り値の関数でストアが保持するリソースを解放する。
func openSessionStore(ctx context.Context, cfg *config.ClientConfig) (repository.SessionStore, func() error, error) {
	nop := func() error { return nil }

	switch cfg.SessionBackend {
	case config.SessionBackendMemory:
		return repository.NewMemorySessionRepo(), nop, nil

	case config.SessionBackendFile:
		path := cfg.SessionPath
		if path == "" {
			p, err := repository.DefaultSessionFilePath()
			if err != nil {
				return nil, nil, err
			}
			path = p
		}
		return repository.NewFileSessionRepo(path), nop, nil

	case config.SessionBackendSQLite:
		path := cfg.SessionPath
		if path == "" {
			p, err := repository.DefaultSessionFilePath()
			if err != nil {
				return nil, nil, err
			}
			path = filepath.Join(filepath.Dir(p), "session.db")
		}
		db, err := database.OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		repo, err := repository.NewSQLiteSessionRepo(ctx, db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return repo, db.Close, nil

	case config.SessionBackendPostgres:
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return nil, nil, fmt.Errorf("migration failed: %w", err)
		}
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return repository.NewPostgresSessionRepo(db), db.Close, nil
	}
	return nil, nil, fmt.Errorf("unsupported session backend: %q", cfg.SessionBackend)
}

// withClient はclientEnvを開いてfnを実行する。fnのcontextはHTTP_TIMEOUTで打ち切られる。
func (app *App) withClient(ctx context.Context, fn func(ctx context.Context, env *clientEnv) error) error {
	env, err := app.openClient(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := env.close(); err != nil {
			app.logger.Warn("セッションストアのクローズに失敗しました", slog.String("error", err.Error()))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, env.timeout)
	defer cancel()
	return fn(ctx, env)
}
