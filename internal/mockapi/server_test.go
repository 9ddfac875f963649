package mockapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/todoctl/internal/model"
)

func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	srv := httptest.NewServer(New(cfg))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("レスポンスのデコードに失敗: %v", err)
	}
	return v
}

func TestLogin_FixedToken(t *testing.T) {
	srv := newTestServer(t, Config{Seed: true, FixedToken: MockToken})

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/auth/login", "",
		model.LoginInput{Email: "test@example.com", Password: "password123"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	got := decode[model.AuthResponse](t, resp)
	if got.Token != MockToken {
		t.Errorf("token = %q, want %q", got.Token, MockToken)
	}
	if got.User != SeedUser {
		t.Errorf("user = %+v, want %+v", got.User, SeedUser)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	srv := newTestServer(t, Config{Seed: true})

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/auth/login", "",
		model.LoginInput{Email: "test@example.com", Password: "nope"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	body := decode[map[string]string](t, resp)
	if body["message"] == "" {
		t.Error("エラーレスポンスに message が含まれていない")
	}
}

func TestRegister_IssuesJWTAcceptedByMe(t *testing.T) {
	srv := newTestServer(t, Config{Secret: "s3cret"})

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/auth/register", "",
		model.RegisterInput{Email: "new@example.com", Password: "pw", Name: "New"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	auth := decode[model.AuthResponse](t, resp)
	if strings.Count(auth.Token, ".") != 2 {
		t.Errorf("JWT形式のトークンであるべき: %q", auth.Token)
	}

	me := doJSON(t, http.MethodGet, srv.URL+"/api/auth/me", auth.Token, nil)
	if me.StatusCode != http.StatusOK {
		t.Fatalf("me status = %d, want 200", me.StatusCode)
	}
	if got := decode[model.User](t, me); got.ID != auth.User.ID {
		t.Errorf("me.id = %q, want %q", got.ID, auth.User.ID)
	}

	dup := doJSON(t, http.MethodPost, srv.URL+"/api/auth/register", "",
		model.RegisterInput{Email: "new@example.com", Password: "pw", Name: "New"})
	if dup.StatusCode != http.StatusConflict {
		t.Errorf("重複登録の status = %d, want 409", dup.StatusCode)
	}
}

func TestMe_ExpiredToken(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	srv := newTestServer(t, Config{Now: clock, TokenTTL: time.Hour})

	auth := decode[model.AuthResponse](t, doJSON(t, http.MethodPost, srv.URL+"/api/auth/register", "",
		model.RegisterInput{Email: "a@example.com", Password: "pw", Name: "A"}))

	mu.Lock()
	now = now.Add(2 * time.Hour)
	mu.Unlock()
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/auth/me", auth.Token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("期限切れトークンの status = %d, want 401", resp.StatusCode)
	}
}

func TestTodos_RequireAuth(t *testing.T) {
	srv := newTestServer(t, Config{Seed: true})

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/todos", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestListTodos_FilterAndSort(t *testing.T) {
	srv := newTestServer(t, Config{Seed: true, FixedToken: MockToken})

	all := decode[[]model.Todo](t, doJSON(t, http.MethodGet, srv.URL+"/api/todos", MockToken, nil))
	if len(all) != 3 {
		t.Fatalf("件数 = %d, want 3", len(all))
	}

	open := decode[[]model.Todo](t, doJSON(t, http.MethodGet, srv.URL+"/api/todos?completed=false", MockToken, nil))
	if len(open) != 2 {
		t.Errorf("completed=false の件数 = %d, want 2", len(open))
	}

	sorted := decode[[]model.Todo](t, doJSON(t, http.MethodGet,
		srv.URL+"/api/todos?sortBy=createdAt&sortOrder=desc", MockToken, nil))
	if sorted[0].ID != "todo-3" || sorted[2].ID != "todo-1" {
		t.Errorf("降順ソート結果 = %s,%s,%s", sorted[0].ID, sorted[1].ID, sorted[2].ID)
	}

	bad := doJSON(t, http.MethodGet, srv.URL+"/api/todos?sortBy=priority", MockToken, nil)
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("不正なsortByの status = %d, want 400", bad.StatusCode)
	}
}

func TestTodoCRUD(t *testing.T) {
	srv := newTestServer(t, Config{Seed: true, FixedToken: MockToken})

	created := doJSON(t, http.MethodPost, srv.URL+"/api/todos", MockToken,
		model.CreateTodoInput{Title: "write report", Category: model.StringPtr("work")})
	if created.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", created.StatusCode)
	}
	todo := decode[model.Todo](t, created)
	if todo.ID == "" || todo.CreatedAt == "" || todo.UserID != SeedUser.ID {
		t.Fatalf("サーバー付与フィールドが不正: %+v", todo)
	}

	patched := doJSON(t, http.MethodPatch, srv.URL+"/api/todos/"+todo.ID, MockToken,
		model.UpdateTodoInput{Completed: model.BoolPtr(true)})
	if patched.StatusCode != http.StatusOK {
		t.Fatalf("patch status = %d, want 200", patched.StatusCode)
	}
	updated := decode[model.Todo](t, patched)
	if !updated.Completed || updated.Title != "write report" {
		t.Errorf("部分更新の結果が不正: %+v", updated)
	}

	del := doJSON(t, http.MethodDelete, srv.URL+"/api/todos/"+todo.ID, MockToken, nil)
	if del.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", del.StatusCode)
	}
	again := doJSON(t, http.MethodDelete, srv.URL+"/api/todos/"+todo.ID, MockToken, nil)
	if again.StatusCode != http.StatusNotFound {
		t.Errorf("2回目のdelete status = %d, want 404", again.StatusCode)
	}
}

func TestCategories_IncludesUserCategories(t *testing.T) {
	srv := newTestServer(t, Config{Seed: true, FixedToken: MockToken})

	doJSON(t, http.MethodPost, srv.URL+"/api/todos", MockToken,
		model.CreateTodoInput{Title: "x", Category: model.StringPtr("work")})

	got := decode[[]string](t, doJSON(t, http.MethodGet, srv.URL+"/api/todos/categories", MockToken, nil))
	want := append(SeedCategories(), "work")
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("categories = %v, want %v", got, want)
	}
}

func TestCORS_Preflight(t *testing.T) {
	srv := newTestServer(t, Config{AllowedOrigins: []string{"http://localhost:5173"}})

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/todos", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestMetricsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "mock_probe_total", Help: "probe"}))
	srv := newTestServer(t, Config{Gatherer: reg})

	resp := doJSON(t, http.MethodGet, srv.URL+"/metrics", "", nil)
	b, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(b), "mock_probe_total") {
		t.Error("/metrics にレジストリの内容が含まれていない")
	}
}
