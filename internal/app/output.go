package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/hitoshi/todoctl/internal/model"
)

const (
	formatJSON = "json"
	formatText = "text"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	pendingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	accentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	mutedStyle    = lipgloss.NewStyle().Faint(true)
	doneStyle     = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	boxChecked    = "☑"
	boxUnchecked  = "☐"
	emptyTodoText = "ToDoはありません"
)

// writeOut は--formatに従って結果を出力する。
// text形式に対応していない値はJSONで出力する。
func writeOut(cmd *cobra.Command, app *App, v any) error {
	w := cmd.OutOrStdout()
	if app.Format == formatText {
		if ok, err := writeText(w, v); ok {
			return err
		}
	}
	return writeJSON(w, v, app.PrettyJSON)
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(b))
	return err
}

func writeText(w io.Writer, v any) (bool, error) {
	switch x := v.(type) {
	case []model.Todo:
		_, err := fmt.Fprintln(w, renderTodos(x))
		return true, err
	case *model.Todo:
		_, err := fmt.Fprintln(w, renderTodo(*x))
		return true, err
	case *model.User:
		_, err := fmt.Fprintln(w, renderUser(x))
		return true, err
	case []string:
		lines := make([]string, len(x))
		for i, s := range x {
			lines[i] = "• " + accentStyle.Render(s)
		}
		_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
		return true, err
	case message:
		_, err := fmt.Fprintln(w, successStyle.Render("✔ "+x.Message))
		return true, err
	}
	return false, nil
}

// message は結果のない操作の出力。
type message struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

func renderTodos(todos []model.Todo) string {
	if len(todos) == 0 {
		return mutedStyle.Render(emptyTodoText)
	}
	done := 0
	lines := make([]string, 0, len(todos)+1)
	for _, t := range todos {
		if t.Completed {
			done++
		}
		lines = append(lines, renderTodo(t))
	}
	lines = append(lines, mutedStyle.Render(fmt.Sprintf("%d/%d 完了", done, len(todos))))
	return strings.Join(lines, "\n")
}

func renderTodo(t model.Todo) string {
	box, title := pendingStyle.Render(boxUnchecked), titleStyle.Render(t.Title)
	if t.Completed {
		box, title = successStyle.Render(boxChecked), doneStyle.Render(t.Title)
	}
	parts := []string{box, title}
	if t.Category != nil && *t.Category != "" {
		parts = append(parts, accentStyle.Render("#"+*t.Category))
	}
	if t.DueDate != nil && *t.DueDate != "" {
		parts = append(parts, mutedStyle.Render("期限 "+*t.DueDate))
	}
	parts = append(parts, mutedStyle.Render("("+t.ID+")"))
	return strings.Join(parts, " ")
}

func renderUser(u *model.User) string {
	return titleStyle.Render(u.Name) + " " + mutedStyle.Render("<"+u.Email+">") + " " + mutedStyle.Render("("+u.ID+")")
}
