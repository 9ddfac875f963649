package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresSessionRepo はPostgreSQLを使用したセッションストア。
// テーブルはdatabase.RunMigrationsで作成されるclient_sessions。
// CIランナー間でトークンを共有する場合に使用する。
type PostgresSessionRepo struct {
	db *sql.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

// Get は指定キーの値を取得する。
func (r *PostgresSessionRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM client_sessions WHERE key = $1`,
		key,
	).Scan(&value)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to find session: %w", err)
	}
	return value, true, nil
}

// Set は指定キーに値を保存する。既存のキーは上書きする。
func (r *PostgresSessionRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO client_sessions (key, value, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete は指定キーを削除する。
func (r *PostgresSessionRepo) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM client_sessions WHERE key = $1`,
		key,
	)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SessionStore = (*PostgresSessionRepo)(nil)
