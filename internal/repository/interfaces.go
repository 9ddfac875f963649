// Package repository はセッショントークンの永続化を提供する。
// メモリ、JSONファイル、SQLite、PostgreSQLの各バックエンドを持つ。
package repository

import "context"

// SessionStore はキー単位で文字列値を永続化するインターフェース。
// クライアントの「永続ストレージ」を抽象化したもの。
type SessionStore interface {
	// Get は指定キーの値を取得する。存在しない場合はokがfalseになる。
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set は指定キーに値を保存する。既存の値は上書きする。
	Set(ctx context.Context, key, value string) error
	// Delete は指定キーを削除する。存在しない場合もエラーにしない。
	Delete(ctx context.Context, key string) error
}
