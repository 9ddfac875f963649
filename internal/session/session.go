// Package session はAPIクライアントに明示的に渡すセッションコンテキストを提供する。
// トークンは固定キーでSessionStoreに永続化され、リクエストごとに読み出される。
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/hitoshi/todoctl/internal/repository"
)

// DefaultKey はトークンを保存する固定キー。
const DefaultKey = "token"

// Session はセッショントークンの読み書きを担う。
// グローバル変数ではなく、APIクライアントのコンストラクタに渡して使う。
type Session struct {
	store    repository.SessionStore
	key      string
	override string
}

// Option はSessionの生成オプション。
type Option func(*Session)

// WithKey は保存キーを変更する。
func WithKey(key string) Option {
	return func(s *Session) {
		if key != "" {
			s.key = key
		}
	}
}

// WithOverride は環境変数などから与えられたトークンを優先して返すようにする。
// Save/Clearは引き続きストアに対して行う。
func WithOverride(token string) Option {
	return func(s *Session) {
		s.override = stripBearer(strings.TrimSpace(token))
	}
}

// New はSessionを生成する。
func New(store repository.SessionStore, opts ...Option) *Session {
	s := &Session{store: store, key: DefaultKey}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Token は現在のトークンを返す。未ログインの場合はokがfalseになる。
func (s *Session) Token(ctx context.Context) (string, bool, error) {
	if s.override != "" {
		return s.override, true, nil
	}
	v, ok, err := s.store.Get(ctx, s.key)
	if err != nil {
		return "", false, fmt.Errorf("failed to read session: %w", err)
	}
	if !ok || v == "" {
		return "", false, nil
	}
	return v, true, nil
}

// Save はトークンを永続化する。
func (s *Session) Save(ctx context.Context, token string) error {
	token = stripBearer(strings.TrimSpace(token))
	if token == "" {
		return fmt.Errorf("empty token")
	}
	if err := s.store.Set(ctx, s.key, token); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Clear は永続化されたトークンと上書きトークンを削除する。
func (s *Session) Clear(ctx context.Context) error {
	s.override = ""
	if err := s.store.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func stripBearer(s string) string {
	if len(s) >= 7 && strings.EqualFold(s[:7], "bearer ") {
		return strings.TrimSpace(s[7:])
	}
	return s
}
