package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// errCorruptSessionFile はセッションファイルをJSONとして解釈できないことを示す。
var errCorruptSessionFile = errors.New("corrupt session file")

// fileEntry はファイルに保存する1キー分のレコード。
type fileEntry struct {
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileSessionRepo はJSONファイルに値を保存するセッションストア。
// ディレクトリは0700、ファイルは0600（所有者のみ）で作成する。
type FileSessionRepo struct {
	path string
	mu   sync.Mutex
}

// NewFileSessionRepo はFileSessionRepoを生成する。
// pathが存在しなくても構わない（最初のSetで作成される）。
func NewFileSessionRepo(path string) *FileSessionRepo {
	return &FileSessionRepo{path: path}
}

// DefaultSessionFilePath は ~/.todoctl/credentials.json を返す。
func DefaultSessionFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".todoctl", "credentials.json"), nil
}

// Path は保存先のファイルパスを返す。
func (r *FileSessionRepo) Path() string {
	return r.path
}

// Get は指定キーの値を取得する。ファイルが存在しない場合は未ログインとして扱う。
func (r *FileSessionRepo) Get(_ context.Context, key string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.read()
	if err != nil {
		return "", false, err
	}
	e, ok := entries[key]
	if !ok {
		return "", false, nil
	}
	return e.Value, true, nil
}

// Set は指定キーに値を保存する。
func (r *FileSessionRepo) Set(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.read()
	if errors.Is(err, errCorruptSessionFile) {
		entries = make(map[string]fileEntry)
	} else if err != nil {
		return err
	}
	entries[key] = fileEntry{Value: value, UpdatedAt: time.Now().UTC()}
	return r.write(entries)
}

// Delete は指定キーを削除する。最後のキーを削除した場合、またはファイルが
// 壊れていて解釈できない場合はファイルごと削除する。
func (r *FileSessionRepo) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.read()
	if errors.Is(err, errCorruptSessionFile) {
		return r.remove()
	}
	if err != nil {
		return err
	}
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)

	if len(entries) == 0 {
		return r.remove()
	}
	return r.write(entries)
}

func (r *FileSessionRepo) remove() error {
	if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

func (r *FileSessionRepo) read() (map[string]fileEntry, error) {
	b, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]fileEntry), nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	entries := make(map[string]fileEntry)
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("%w: %w", errCorruptSessionFile, err)
	}
	return entries, nil
}

func (r *FileSessionRepo) write(entries map[string]fileEntry) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session file: %w", err)
	}

	// 一時ファイルに書き込んでからリネームで置き換える。
	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".credentials-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

var _ SessionStore = (*FileSessionRepo)(nil)
