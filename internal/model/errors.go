// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
	"net/http"
)

// DefaultErrorMessage はサービスがメッセージを返さなかった場合のフォールバック。
const DefaultErrorMessage = "server error"

// APIError はサービスが非2xxで拒否したリクエストを表す。
// Messageはレスポンスボディのmessageフィールド、なければDefaultErrorMessage。
type APIError struct {
	StatusCode int
	Message    string
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%d] %s", e.StatusCode, e.Message)
}

// NewAPIError はAPIErrorを生成する。空のメッセージはフォールバックに置き換える。
func NewAPIError(statusCode int, message string) *APIError {
	if message == "" {
		message = DefaultErrorMessage
	}
	return &APIError{StatusCode: statusCode, Message: message}
}

// 定義済みエラー
var (
	// ErrNoSession は永続化されたセッショントークンがない場合のエラー。
	ErrNoSession = errors.New("no session")
	// ErrTodoNotFound はローカルのコレクションに対象のToDoがない場合のエラー。
	ErrTodoNotFound = errors.New("todo not found")
	// ErrInvalidFilter はフィルタの値が定義外の場合のエラー。
	ErrInvalidFilter = errors.New("invalid filter")
)

// IsUnauthorized はエラーが401/403の拒否かを判定する。
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
}

// IsNotFound はエラーが404の拒否、またはErrTodoNotFoundかを判定する。
func IsNotFound(err error) bool {
	if errors.Is(err, ErrTodoNotFound) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
