// Package model はドメインモデルを定義する。
package model

// User はサービスが発行したユーザー情報を表す。
// クライアントからは変更しない。
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// LoginInput はログインリクエストのペイロード。
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterInput はユーザー登録リクエストのペイロード。
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// AuthResponse はログイン・登録成功時のレスポンス。
type AuthResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}
