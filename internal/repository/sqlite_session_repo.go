package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// sqliteSchema はSQLiteセッションストアのスキーマ。
// 単一ファイルで完結させるため、マイグレーションツールは使わずにここで作成する。
const sqliteSchema = `CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLiteSessionRepo はSQLite（modernc.org/sqlite）を使用したセッションストア。
type SQLiteSessionRepo struct {
	db *sql.DB
}

// NewSQLiteSessionRepo はSQLiteSessionRepoを生成し、スキーマを作成する。
func NewSQLiteSessionRepo(ctx context.Context, db *sql.DB) (*SQLiteSessionRepo, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("failed to create sqlite schema: %w", err)
	}
	return &SQLiteSessionRepo{db: db}, nil
}

// Get は指定キーの値を取得する。
func (r *SQLiteSessionRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to find session: %w", err)
	}
	return value, true, nil
}

// Set は指定キーに値を保存する。
func (r *SQLiteSessionRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete は指定キーを削除する。
func (r *SQLiteSessionRepo) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

var _ SessionStore = (*SQLiteSessionRepo)(nil)
