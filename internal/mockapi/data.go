package mockapi

import "github.com/hitoshi/todoctl/internal/model"

// MockToken はビジュアルリグレッションテストで使う固定トークン。
const MockToken = "mock-token"

// SeedUser はシードデータのユーザー。パスワードはSeedPassword。
var SeedUser = model.User{
	ID:    "user-1",
	Email: "test@example.com",
	Name:  "Test User",
}

// SeedPassword はSeedUserのパスワード。
const SeedPassword = "password123"

// SeedTodos はシードデータのToDo一覧を返す。呼び出しごとに新しいスライスを返す。
func SeedTodos() []model.Todo {
	return []model.Todo{
		{
			ID:        "todo-1",
			Title:     "프로젝트 기획하기",
			Completed: false,
			Category:  model.StringPtr("업무"),
			CreatedAt: "2024-03-20T09:00:00.000Z",
			UserID:    SeedUser.ID,
		},
		{
			ID:        "todo-2",
			Title:     "운동하기",
			Completed: true,
			Category:  model.StringPtr("개인"),
			CreatedAt: "2024-03-20T10:00:00.000Z",
			UserID:    SeedUser.ID,
		},
		{
			ID:        "todo-3",
			Title:     "장보기",
			Completed: false,
			Category:  model.StringPtr("집안일"),
			CreatedAt: "2024-03-20T12:00:00.000Z",
			UserID:    SeedUser.ID,
		},
	}
}

// SeedCategories はシードデータのカテゴリ一覧を返す。
func SeedCategories() []string {
	return []string{"업무", "개인", "집안일", "공부"}
}
