package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hitoshi/todoctl/internal/model"
)

// Login はログインし、返されたトークンを現在のセッションとして保存する。
func (c *Client) Login(ctx context.Context, in model.LoginInput) (*model.AuthResponse, error) {
	var resp model.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", "/auth/login", nil, in, &resp); err != nil {
		return nil, err
	}
	if err := c.persist(ctx, resp.Token); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register はユーザー登録し、Loginと同様にトークンを保存する。
func (c *Client) Register(ctx context.Context, in model.RegisterInput) (*model.AuthResponse, error) {
	var resp model.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", "/auth/register", nil, in, &resp); err != nil {
		return nil, err
	}
	if err := c.persist(ctx, resp.Token); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout は保存されたセッションを削除する。ネットワーク通信は行わない。
func (c *Client) Logout(ctx context.Context) error {
	if c.session == nil {
		return nil
	}
	return c.session.Clear(ctx)
}

// Token は現在保存されているトークンを返す。未ログインの場合はokがfalse。
func (c *Client) Token(ctx context.Context) (string, bool, error) {
	if c.session == nil {
		return "", false, nil
	}
	return c.session.Token(ctx)
}

// Me は現在のトークンに紐づくユーザー情報を取得する。
// セッションがない場合はリクエストせずにErrNoSessionを返す。
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	if _, ok, err := c.Token(ctx); err != nil {
		return nil, err
	} else if !ok {
		return nil, model.ErrNoSession
	}
	var user model.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", "/auth/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) persist(ctx context.Context, token string) error {
	if c.session == nil {
		return nil
	}
	if err := c.session.Save(ctx, token); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}
	return nil
}
