// Package store はAPIクライアントの上に購読可能な状態を提供する。
// ローカル状態はリモート操作が成功した後にのみ変更する。
package store

import (
	"context"
	"log/slog"

	"github.com/hitoshi/todoctl/internal/model"
	"github.com/hitoshi/todoctl/internal/observable"
)

// AuthAPI はAuthStoreが利用する認証系APIのインターフェース。
type AuthAPI interface {
	Login(ctx context.Context, in model.LoginInput) (*model.AuthResponse, error)
	Register(ctx context.Context, in model.RegisterInput) (*model.AuthResponse, error)
	Logout(ctx context.Context) error
	Token(ctx context.Context) (string, bool, error)
	Me(ctx context.Context) (*model.User, error)
}

// AuthStore は現在のユーザーを購読可能な値として公開する。未ログイン時はnil。
type AuthStore struct {
	api    AuthAPI
	logger *slog.Logger
	user   *observable.Value[*model.User]
}

// NewAuthStore はAuthStoreを生成する。
func NewAuthStore(api AuthAPI, logger *slog.Logger) *AuthStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthStore{
		api:    api,
		logger: logger,
		user:   observable.New[*model.User](nil, observable.WithClone(cloneUser)),
	}
}

// Initialize は永続化されたセッションがあればユーザー情報を取得して復元する。
// 取得に失敗した場合（通信エラー、認証拒否のいずれも）はログアウト処理を行う。
func (s *AuthStore) Initialize(ctx context.Context) {
	_, ok, err := s.api.Token(ctx)
	if err != nil {
		s.logger.Warn("セッションの読み出しに失敗しました", slog.String("error", err.Error()))
		s.Logout(ctx)
		return
	}
	if !ok {
		return
	}

	user, err := s.api.Me(ctx)
	if err != nil {
		s.logger.Warn("セッションの復元に失敗しました",
			slog.String("error", err.Error()),
			slog.Bool("unauthorized", model.IsUnauthorized(err)),
		)
		s.Logout(ctx)
		return
	}
	s.user.Set(user)
}

// Login はログインし、返されたユーザーを現在のユーザーにする。
func (s *AuthStore) Login(ctx context.Context, in model.LoginInput) error {
	resp, err := s.api.Login(ctx, in)
	if err != nil {
		s.logger.Error("ログインに失敗しました", slog.String("error", err.Error()))
		return err
	}
	s.user.Set(&resp.User)
	return nil
}

// Register はユーザー登録し、Loginと同様に現在のユーザーを設定する。
func (s *AuthStore) Register(ctx context.Context, in model.RegisterInput) error {
	resp, err := s.api.Register(ctx, in)
	if err != nil {
		s.logger.Error("ユーザー登録に失敗しました", slog.String("error", err.Error()))
		return err
	}
	s.user.Set(&resp.User)
	return nil
}

// Logout はセッションを削除し、現在のユーザーをnilにする。
// セッション削除の失敗はログに出力するのみで、常に成功する。
func (s *AuthStore) Logout(ctx context.Context) {
	if err := s.api.Logout(ctx); err != nil {
		s.logger.Warn("セッションの削除に失敗しました", slog.String("error", err.Error()))
	}
	s.user.Set(nil)
}

// Current は現在のユーザーを返す。未ログインの場合はnil。
func (s *AuthStore) Current() *model.User {
	return s.user.Get()
}

// Subscribe はユーザーの変更を購読する。現在値で即座に1回呼び出される。
func (s *AuthStore) Subscribe(fn func(*model.User)) (unsubscribe func()) {
	return s.user.Subscribe(fn)
}

func cloneUser(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
