package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/hitoshi/todoctl/internal/model"
)

// ListTodos はフィルタ条件に一致するToDoを取得する。
// filterがnilの場合は条件なしで取得する。未指定のフィールドはクエリに含めない。
func (c *Client) ListTodos(ctx context.Context, filter *model.TodoFilter) ([]model.Todo, error) {
	var query url.Values
	if filter != nil {
		if err := filter.Validate(); err != nil {
			return nil, err
		}
		query = filter.Query()
	}
	todos := []model.Todo{}
	if err := c.do(ctx, http.MethodGet, "/todos", "/todos", query, nil, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}

// CreateTodo はToDoを作成する。ID、作成日時、所有者はサーバーが割り当てる。
func (c *Client) CreateTodo(ctx context.Context, in model.CreateTodoInput) (*model.Todo, error) {
	var todo model.Todo
	if err := c.do(ctx, http.MethodPost, "/todos", "/todos", nil, in, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

// UpdateTodo はToDoを部分更新し、更新後の表現を返す。
func (c *Client) UpdateTodo(ctx context.Context, id string, in model.UpdateTodoInput) (*model.Todo, error) {
	if id == "" {
		return nil, errEmptyID
	}
	var todo model.Todo
	if err := c.do(ctx, http.MethodPatch, "/todos/{id}", todoPath(id), nil, in, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

// DeleteTodo はToDoを削除する。成功時のボディは読み捨てる。
func (c *Client) DeleteTodo(ctx context.Context, id string) error {
	if id == "" {
		return errEmptyID
	}
	return c.do(ctx, http.MethodDelete, "/todos/{id}", todoPath(id), nil, nil, nil)
}

// ListCategories はカテゴリ一覧を取得する。重複の除去は行わない。
func (c *Client) ListCategories(ctx context.Context) ([]string, error) {
	categories := []string{}
	if err := c.do(ctx, http.MethodGet, "/todos/categories", "/todos/categories", nil, nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}
