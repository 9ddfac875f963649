package store

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/hitoshi/todoctl/internal/model"
	"github.com/hitoshi/todoctl/internal/observable"
)

// TodoAPI はTodoStoreが利用するToDo系APIのインターフェース。
type TodoAPI interface {
	ListTodos(ctx context.Context, filter *model.TodoFilter) ([]model.Todo, error)
	CreateTodo(ctx context.Context, in model.CreateTodoInput) (*model.Todo, error)
	UpdateTodo(ctx context.Context, id string, in model.UpdateTodoInput) (*model.Todo, error)
	DeleteTodo(ctx context.Context, id string) error
	ListCategories(ctx context.Context) ([]string, error)
}

// TodoStore はToDo一覧とフィルタを独立した購読可能な値として公開する。
// 自動更新やポーリングは行わない。
//
// 変更操作（Load、Add、Remove、Update、ToggleComplete）はストアごとに直列化され、
// 同時に実行中の変更は常に1つだけになる。
type TodoStore struct {
	api    TodoAPI
	logger *slog.Logger

	mu     sync.Mutex // 変更操作の直列化
	todos  *observable.Value[[]model.Todo]
	filter *observable.Value[model.TodoFilter]
}

// NewTodoStore はTodoStoreを生成する。
func NewTodoStore(api TodoAPI, logger *slog.Logger) *TodoStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &TodoStore{
		api:    api,
		logger: logger,
		todos:  observable.New([]model.Todo{}, observable.WithClone(cloneTodos)),
		filter: observable.New(model.TodoFilter{}, observable.WithClone(cloneFilter)),
	}
}

// Load はfilterに一致するToDoを取得し、一覧全体を置き換える。
// ローカルで加えた変更はすべて上書きされる。
func (s *TodoStore) Load(ctx context.Context, filter *model.TodoFilter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	todos, err := s.api.ListTodos(ctx, filter)
	if err != nil {
		s.logger.Error("ToDo一覧の取得に失敗しました", slog.String("error", err.Error()))
		return err
	}
	s.todos.Set(todos)
	return nil
}

// Reload は現在のフィルタでLoadする。
func (s *TodoStore) Reload(ctx context.Context) error {
	f := s.filter.Get()
	return s.Load(ctx, &f)
}

// Add はToDoを作成し、サーバーが返した表現を一覧の末尾に追加する。
func (s *TodoStore) Add(ctx context.Context, in model.CreateTodoInput) (*model.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	todo, err := s.api.CreateTodo(ctx, in)
	if err != nil {
		s.logger.Error("ToDoの作成に失敗しました", slog.String("error", err.Error()))
		return nil, err
	}
	s.todos.Update(func(todos []model.Todo) []model.Todo {
		return append(todos, *todo)
	})
	out := cloneTodo(*todo)
	return &out, nil
}

// Remove はToDoを削除し、一致するエントリを一覧から取り除く。
// 一覧に存在しないIDの場合、ローカルでは何もしない。
func (s *TodoStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.api.DeleteTodo(ctx, id); err != nil {
		s.logger.Error("ToDoの削除に失敗しました",
			slog.String("todo_id", id),
			slog.String("error", err.Error()),
		)
		return err
	}
	if indexOf(s.todos.Get(), id) < 0 {
		s.logger.Debug("削除対象のToDoが一覧にありません", slog.String("todo_id", id))
		return nil
	}
	s.todos.Update(func(todos []model.Todo) []model.Todo {
		return slices.DeleteFunc(todos, func(t model.Todo) bool { return t.ID == id })
	})
	return nil
}

// Update はToDoを部分更新し、一致するエントリをサーバーが返した表現で置き換える。
// 一覧に存在しないIDの場合、一覧は変更しない。
func (s *TodoStore) Update(ctx context.Context, id string, in model.UpdateTodoInput) (*model.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(ctx, id, in)
}

// ToggleComplete は現在の一覧からIDに一致するToDoを探し、完了フラグを反転する。
// 一覧に存在しない場合は通信せずにmodel.ErrTodoNotFoundを返す。
func (s *TodoStore) ToggleComplete(ctx context.Context, id string) (*model.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	todos := s.todos.Get()
	i := indexOf(todos, id)
	if i < 0 {
		s.logger.Warn("切り替え対象のToDoが一覧にありません", slog.String("todo_id", id))
		return nil, model.ErrTodoNotFound
	}
	return s.update(ctx, id, model.UpdateTodoInput{Completed: model.BoolPtr(!todos[i].Completed)})
}

func (s *TodoStore) update(ctx context.Context, id string, in model.UpdateTodoInput) (*model.Todo, error) {
	updated, err := s.api.UpdateTodo(ctx, id, in)
	if err != nil {
		s.logger.Error("ToDoの更新に失敗しました",
			slog.String("todo_id", id),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	if indexOf(s.todos.Get(), id) >= 0 {
		s.todos.Update(func(todos []model.Todo) []model.Todo {
			if i := indexOf(todos, id); i >= 0 {
				todos[i] = *updated
			}
			return todos
		})
	}
	out := cloneTodo(*updated)
	return &out, nil
}

// Categories はカテゴリ一覧を取得する。キャッシュは行わない。
func (s *TodoStore) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.api.ListCategories(ctx)
	if err != nil {
		s.logger.Error("カテゴリ一覧の取得に失敗しました", slog.String("error", err.Error()))
		return nil, err
	}
	return categories, nil
}

// Todos は現在の一覧のスナップショットを返す。
func (s *TodoStore) Todos() []model.Todo {
	return s.todos.Get()
}

// Subscribe は一覧の変更を購読する。購読者には一覧の複製が渡される。
func (s *TodoStore) Subscribe(fn func([]model.Todo)) (unsubscribe func()) {
	return s.todos.Subscribe(fn)
}

// SetFilter はフィルタを設定する。一覧の再取得は行わない。
func (s *TodoStore) SetFilter(f model.TodoFilter) {
	s.filter.Set(f)
}

// Filter は現在のフィルタを返す。
func (s *TodoStore) Filter() model.TodoFilter {
	return s.filter.Get()
}

// SubscribeFilter はフィルタの変更を購読する。
func (s *TodoStore) SubscribeFilter(fn func(model.TodoFilter)) (unsubscribe func()) {
	return s.filter.Subscribe(fn)
}

func indexOf(todos []model.Todo, id string) int {
	return slices.IndexFunc(todos, func(t model.Todo) bool { return t.ID == id })
}

func cloneTodos(todos []model.Todo) []model.Todo {
	if todos == nil {
		return []model.Todo{}
	}
	out := make([]model.Todo, len(todos))
	for i, t := range todos {
		out[i] = cloneTodo(t)
	}
	return out
}

func cloneTodo(t model.Todo) model.Todo {
	if t.DueDate != nil {
		t.DueDate = model.StringPtr(*t.DueDate)
	}
	if t.Category != nil {
		t.Category = model.StringPtr(*t.Category)
	}
	return t
}

func cloneFilter(f model.TodoFilter) model.TodoFilter {
	if f.Completed != nil {
		f.Completed = model.BoolPtr(*f.Completed)
	}
	return f
}
