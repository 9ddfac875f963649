package repository

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// exerciseSessionStore はSessionStore実装に共通の振る舞いを検証する。
func exerciseSessionStore(t *testing.T, s SessionStore) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "token"); err != nil || ok {
		t.Fatalf("未保存のキー: ok=%v err=%v, want ok=false err=nil", ok, err)
	}

	if err := s.Set(ctx, "token", "first"); err != nil {
		t.Fatalf("Set がエラーを返した: %v", err)
	}
	if err := s.Set(ctx, "token", "second"); err != nil {
		t.Fatalf("上書きの Set がエラーを返した: %v", err)
	}

	v, ok, err := s.Get(ctx, "token")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if v != "second" {
		t.Errorf("Get = %q, want %q", v, "second")
	}

	if err := s.Delete(ctx, "token"); err != nil {
		t.Fatalf("Delete がエラーを返した: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "token"); ok {
		t.Error("Delete 後も値が残っている")
	}

	// 存在しないキーの削除はエラーにしない
	if err := s.Delete(ctx, "token"); err != nil {
		t.Errorf("存在しないキーの Delete がエラーを返した: %v", err)
	}
}

func TestMemorySessionRepo(t *testing.T) {
	exerciseSessionStore(t, NewMemorySessionRepo())
}

func TestFileSessionRepo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds", "credentials.json")
	exerciseSessionStore(t, NewFileSessionRepo(path))

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("最後のキー削除後はファイルが削除されるべき: err=%v", err)
	}
}

func TestFileSessionRepo_FilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	repo := NewFileSessionRepo(path)

	if err := repo.Set(context.Background(), "token", "secret"); err != nil {
		t.Fatalf("Set がエラーを返した: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat がエラーを返した: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("パーミッション = %o, want 600", perm)
	}
}

func TestFileSessionRepo_KeepsOtherKeys(t *testing.T) {
	ctx := context.Background()
	repo := NewFileSessionRepo(filepath.Join(t.TempDir(), "credentials.json"))

	_ = repo.Set(ctx, "token", "a")
	_ = repo.Set(ctx, "other", "b")
	if err := repo.Delete(ctx, "token"); err != nil {
		t.Fatalf("Delete がエラーを返した: %v", err)
	}

	v, ok, err := repo.Get(ctx, "other")
	if err != nil || !ok || v != "b" {
		t.Errorf("other = %q ok=%v err=%v, want \"b\"", v, ok, err)
	}
}

func TestFileSessionRepo_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, _, err := NewFileSessionRepo(path).Get(context.Background(), "token"); err == nil {
		t.Error("壊れたファイルではエラーを返すべき")
	}
}

func TestSQLiteSessionRepo(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "session.db"))
	if err != nil {
		t.Fatalf("sqlite open: %v", err)
	}
	defer db.Close()

	repo, err := NewSQLiteSessionRepo(context.Background(), db)
	if err != nil {
		t.Fatalf("NewSQLiteSessionRepo がエラーを返した: %v", err)
	}
	exerciseSessionStore(t, repo)
}

func TestNewPostgresSessionRepo_Initializes(t *testing.T) {
	if NewPostgresSessionRepo(nil) == nil {
		t.Fatal("expected non-nil repo")
	}
}

func TestPostgresSessionRepo_Integration(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL が未設定のためスキップ")
	}
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Fatalf("postgres open: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		t.Skipf("PostgreSQLに接続できません（スキップ）: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS client_sessions (
		key TEXT PRIMARY KEY, value TEXT NOT NULL, updated_at TIMESTAMPTZ NOT NULL DEFAULT now())`); err != nil {
		t.Fatalf("テーブル作成に失敗: %v", err)
	}
	_, _ = db.Exec(`DELETE FROM client_sessions`)

	exerciseSessionStore(t, NewPostgresSessionRepo(db))
}

func TestFileSessionRepo_DeleteRemovesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, []byte(`{"token": {"value": "abc"`), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := NewFileSessionRepo(path).Delete(context.Background(), "token"); err != nil {
		t.Fatalf("壊れたファイルでも Delete は成功するべき: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("壊れたファイルは削除されるべき: err=%v", err)
	}
}

func TestFileSessionRepo_SetOverwritesCorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, []byte(`{"token": {"value": "abc"`), 0o600); err != nil {
		t.Fatal(err)
	}
	repo := NewFileSessionRepo(path)

	if err := repo.Set(ctx, "token", "fresh"); err != nil {
		t.Fatalf("壊れたファイルでも Set は成功するべき: %v", err)
	}
	v, ok, err := repo.Get(ctx, "token")
	if err != nil || !ok || v != "fresh" {
		t.Errorf("token = %q ok=%v err=%v, want \"fresh\"", v, ok, err)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("一時ファイルが残っている: %d entries", len(entries))
	}
}
