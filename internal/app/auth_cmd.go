package app

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/hitoshi/todoctl/internal/model"
)

func newAuthCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "ログイン・ユーザー登録・ログアウト",
	}
	cmd.AddCommand(newAuthLoginCmd(app))
	cmd.AddCommand(newAuthRegisterCmd(app))
	cmd.AddCommand(newAuthLogoutCmd(app))
	cmd.AddCommand(newAuthWhoamiCmd(app))
	return cmd
}

func newAuthLoginCmd(app *App) *cobra.Command {
	var in model.LoginInput
	cmd := &cobra.Command{
		Use:   "login",
		Short: "ログインしてトークンを保存する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Email, in.Password = credentialsFromEnv(cmd, in.Email, in.Password)
			if in.Email == "" || in.Password == "" {
				return writeErr(cmd, errors.New("missing --email or --password"))
			}
			return app.withClient(cmd.Context(), func(ctx context.Context, env *clientEnv) error {
				if err := env.auth.Login(ctx, in); err != nil {
					return writeErr(cmd, err)
				}
				return writeOut(cmd, app, env.auth.Current())
			})
		},
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "Email address (default: TODOCTL_EMAIL)")
	cmd.Flags().StringVar(&in.Password, "password", "", "Password (default: TODOCTL_PASSWORD)")
	return cmd
}

func newAuthRegisterCmd(app *App) *cobra.Command {
	var in model.RegisterInput
	cmd := &cobra.Command{
		Use:   "register",
		Short: "ユーザー登録してトークンを保存する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Email, in.Password = credentialsFromEnv(cmd, in.Email, in.Password)
			if in.Email == "" || in.Password == "" || in.Name == "" {
				return writeErr(cmd, errors.New("missing --email, --password or --name"))
			}
			return app.withClient(cmd.Context(), func(ctx context.Context, env *clientEnv) error {
				if err := env.auth.Register(ctx, in); err != nil {
					return writeErr(cmd, err)
				}
				return writeOut(cmd, app, env.auth.Current())
			})
		},
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "Email address (default: TODOCTL_EMAIL)")
	cmd.Flags().StringVar(&in.Password, "password", "", "Password (default: TODOCTL_PASSWORD)")
	cmd.Flags().StringVar(&in.Name, "name", "", "Display name")
	return cmd
}

// credentialsFromEnv はフラグが指定されていない場合に TODOCTL_EMAIL / TODOCTL_PASSWORD を使う。
// 環境変数の値はフラグのデフォルト値にしない（ヘルプに表示されるため）。
func credentialsFromEnv(cmd *cobra.Command, email, password string) (string, string) {
	if !cmd.Flags().Changed("email") {
		email = os.Getenv("TODOCTL_EMAIL")
	}
	if !cmd.Flags().Changed("password") {
		password = os.Getenv("TODOCTL_PASSWORD")
	}
	return email, password
}

func newAuthLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "保存済みのトークンを削除する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withClient(cmd.Context(), func(ctx context.Context, env *clientEnv) error {
				env.auth.Logout(ctx)
				return writeOut(cmd, app, message{Message: "ログアウトしました"})
			})
		},
	}
}

func newAuthWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "保存済みのセッションを復元し、現在のユーザーを表示する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withClient(cmd.Context(), func(ctx context.Context, env *clientEnv) error {
				env.auth.Initialize(ctx)
				user := env.auth.Current()
				if user == nil {
					return writeErr(cmd, model.ErrNoSession)
				}
				return writeOut(cmd, app, user)
			})
		},
	}
}
