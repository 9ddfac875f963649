package repository

import (
	"context"
	"sync"
)

// MemorySessionRepo はプロセス内のマップに値を保持するセッションストア。
// テストや一時的な実行で使用する。
type MemorySessionRepo struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemorySessionRepo はMemorySessionRepoを生成する。
func NewMemorySessionRepo() *MemorySessionRepo {
	return &MemorySessionRepo{values: make(map[string]string)}
}

// Get は指定キーの値を取得する。
func (r *MemorySessionRepo) Get(_ context.Context, key string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[key]
	return v, ok, nil
}

// Set は指定キーに値を保存する。
func (r *MemorySessionRepo) Set(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
	return nil
}

// Delete は指定キーを削除する。
func (r *MemorySessionRepo) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.values, key)
	return nil
}

var _ SessionStore = (*MemorySessionRepo)(nil)
