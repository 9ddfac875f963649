// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"net/url"
	"strconv"
)

// Todo はリモートサービスが管理するToDo項目を表す。
// ID、UserID、CreatedAtはサーバーが割り当て、クライアントからは変更しない。
type Todo struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Completed bool    `json:"completed"`
	CreatedAt string  `json:"createdAt"`         // ISO-8601（サーバー付与）
	DueDate   *string `json:"dueDate,omitempty"` // ISO-8601
	Category  *string `json:"category,omitempty"`
	UserID    string  `json:"userId"`
}

// CreateTodoInput はToDo作成リクエストのペイロード。
type CreateTodoInput struct {
	Title     string  `json:"title"`
	Completed bool    `json:"completed"`
	DueDate   *string `json:"dueDate,omitempty"`
	Category  *string `json:"category,omitempty"`
}

// UpdateTodoInput は部分更新のペイロード。
// nilのフィールドはJSONに含めず、サーバー側の値を維持する。
type UpdateTodoInput struct {
	Title     *string `json:"title,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
	DueDate   *string `json:"dueDate,omitempty"`
	Category  *string `json:"category,omitempty"`
}

// IsEmpty は更新対象のフィールドが1つもない場合にtrueを返す。
func (in UpdateTodoInput) IsEmpty() bool {
	return in.Title == nil && in.Completed == nil && in.DueDate == nil && in.Category == nil
}

// SortKey は一覧の並び替えキー。
type SortKey string

const (
	SortByCreatedAt SortKey = "createdAt"
	SortByDueDate   SortKey = "dueDate"
	SortByTitle     SortKey = "title"
)

// SortOrder は並び順。
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// TodoFilter は一覧取得時のクエリ条件を表す。
// ゼロ値のフィールドは「指定なし」として扱い、クエリに含めない。
type TodoFilter struct {
	Completed *bool     `json:"completed,omitempty"`
	Category  string    `json:"category,omitempty"`
	Search    string    `json:"search,omitempty"`
	SortBy    SortKey   `json:"sortBy,omitempty"`
	SortOrder SortOrder `json:"sortOrder,omitempty"`
}

// Validate はSortBy/SortOrderが定義済みの値かを検証する。
func (f TodoFilter) Validate() error {
	switch f.SortBy {
	case "", SortByCreatedAt, SortByDueDate, SortByTitle:
	default:
		return fmt.Errorf("%w: sortBy=%q", ErrInvalidFilter, f.SortBy)
	}
	switch f.SortOrder {
	case "", SortAsc, SortDesc:
	default:
		return fmt.Errorf("%w: sortOrder=%q", ErrInvalidFilter, f.SortOrder)
	}
	return nil
}

// Query はフィルタをクエリパラメータにエンコードする。
// 未指定のフィールドは含めない。
func (f TodoFilter) Query() url.Values {
	q := url.Values{}
	if f.Completed != nil {
		q.Set("completed", strconv.FormatBool(*f.Completed))
	}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.SortBy != "" {
		q.Set("sortBy", string(f.SortBy))
	}
	if f.SortOrder != "" {
		q.Set("sortOrder", string(f.SortOrder))
	}
	return q
}

// ParseTodoFilter はクエリパラメータからTodoFilterを復元する。
// completedが真偽値として解釈できない場合はエラーを返す。
func ParseTodoFilter(q url.Values) (TodoFilter, error) {
	f := TodoFilter{
		Category:  q.Get("category"),
		Search:    q.Get("search"),
		SortBy:    SortKey(q.Get("sortBy")),
		SortOrder: SortOrder(q.Get("sortOrder")),
	}
	if v := q.Get("completed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return TodoFilter{}, fmt.Errorf("%w: completed=%q", ErrInvalidFilter, v)
		}
		f.Completed = &b
	}
	if err := f.Validate(); err != nil {
		return TodoFilter{}, err
	}
	return f, nil
}

// StringPtr は文字列のポインタを返す。
func StringPtr(s string) *string { return &s }

// BoolPtr は真偽値のポインタを返す。
func BoolPtr(b bool) *bool { return &b }
