package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hitoshi/todoctl/internal/model"
)

func newTodosCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "todos",
		Aliases: []string{"todo"},
		Short:   "ToDoの一覧・作成・更新・削除",
	}
	cmd.AddCommand(newTodosListCmd(app))
	cmd.AddCommand(newTodosAddCmd(app))
	cmd.AddCommand(newTodosUpdateCmd(app))
	cmd.AddCommand(newTodosToggleCmd(app))
	cmd.AddCommand(newTodosRemoveCmd(app))
	cmd.AddCommand(newTodosCategoriesCmd(app))
	return cmd
}

func newTodosListCmd(app *App) *cobra.Command {
	var (
		completed bool
		filter    model.TodoFilter
		sortBy    string
		sortOrder string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "フィルタに一致するToDoを一覧表示する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("completed") {
				filter.Completed = model.BoolPtr(completed)
			}
			filter.SortBy = model.SortKey(sortBy)
			filter.SortOrder = model.SortOrder(sortOrder)
			if err := filter.Validate(); err != nil {
				return writeErr(cmd, err)
			}

			return app.withClient(cmd.Context(), func(ctx context.Context, env *clientEnv) error {
				env.todos.SetFilter(filter)
				if err := env.todos.Reload(ctx); err != nil {
					return writeErr(cmd, err)
				}
				return writeOut(cmd, app, env.todos.Todos())
			})
		},
	}
	cmd.Flags().BoolVar(&completed, "completed", false, "Only completed (true) or open (false) todos")
	cmd.Flags().StringVar(&filter.Category, "category", "", "Category")
	cmd.Flags().StringVar(&filter.Search, "search", "", "Search text")
	cmd.Flags().StringVar(&sortBy, "sort-by", "", "Sort key (createdAt|dueDate|title)")
	cmd.Flags().StringVar(&sortOrder, "sort-order", "", "Sort order (asc|desc)")
	return cmd
}

func newTodosAddCmd(app *App) *cobra.Command {
	var (
		in       model.CreateTodoInput
		dueDate  string
		category string
	)
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "ToDoを作成する",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Title = args[0]
			if in.Title == "" {
				return writeErr(cmd, errors.New("title is required"))
			}
			if dueDate != "" {
				in.DueDate = model.StringPtr(dueDate)
			}
			if category != "" {
				in.Category = model.StringPtr(category)
			}

			return app.withClient(cmd.Context(), func(ctx context.Context, env *clientEnv) error {
				todo, err := env.todos.Add(ctx, in)
				if err != nil {
					return writeErr(cmd, err)
				}
				return writeOut(cmd, app, todo)
			})
		},
	}
	cmd.Flags().BoolVar(&in.Completed, "completed", false, "Create as completed")
	cmd.Flags().StringVar(&dueDate, "due", "", "Due date (ISO-8601)")
	cmd.Flags().StringVar(&category, "category", "", "Category")
	return cmd
}

func newTodosUpdateCmd(app *App) *cobra.Command {
	var (
		title     string
		completed bool
		dueDate   string
		category  string
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "ToDoを部分更新する（指定したフィールドのみ送信する）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in model.UpdateTodoInput
			flags := cmd.Flags()
			if flags.Changed("title") {
				in.Title = model.StringPtr(title)
			}
			if flags.Changed("completed") {
				in.Completed = model.BoolPtr(completed)
			}
			if flags.Changed("due") {
				in.DueDate = model.StringPtr(dueDate)
			}
			if flags.Changed("category") {
				in.Category = model.StringPtr(category)
			}
			if in.IsEmpty() {
				return writeErr(cmd, errors.New("nothing to update; pass --title, --completed, --due or --category"))
			}

			return app.withClient(cmd.Context(), func(ctx context.Context, env *clientEnv) error {
				todo, err := env.todos.Update(ctx, args[0], in)
				if err != nil {
					return writeErr(cmd, err)
				}
				return writeOut(cmd, app, todo)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().BoolVar(&completed, "completed", false, "Completed flag")
	cmd.Flags().StringVar(&dueDate, "due", "", "Due date (ISO-8601)")
	cmd.Flags().StringVar(&category, "category", "", "Category")
	return cmd
}

func newTodosToggleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "toggle <id>",
		Aliases: []string{"done"},
		Short:   "ToDoの完了フラグを反転する",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withClient(cmd.Context(), func(ctx context.Context, env *clientEnv) error {
				// 現在の完了フラグは一覧から読むため、先に読み込む
				if err := env.todos.Load(ctx, nil); err != nil {
					return writeErr(cmd, err)
				}
				todo, err := env.todos.ToggleComplete(ctx, args[0])
				if errors.Is(err, model.ErrTodoNotFound) {
					return writeErr(cmd, fmt.Errorf("%w: %s", err, args[0]))
				}
				if err != nil {
					return writeErr(cmd, err)
				}
				return writeOut(cmd, app, todo)
			})
		},
	}
}

func newTodosRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "ToDoを削除する",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withClient(cmd.Context(), func(ctx context.Context, env *clientEnv) error {
				if err := env.todos.Remove(ctx, args[0]); err != nil {
					return writeErr(cmd, err)
				}
				return writeOut(cmd, app, message{Message: "削除しました", ID: args[0]})
			})
		},
	}
}

func newTodosCategoriesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "カテゴリ一覧を表示する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withClient(cmd.Context(), func(ctx context.Context, env *clientEnv) error {
				categories, err := env.todos.Categories(ctx)
				if err != nil {
					return writeErr(cmd, err)
				}
				return writeOut(cmd, app, categories)
			})
		},
	}
}
