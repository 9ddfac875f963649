// Package mockapi はテストとビジュアルリグレッション用のモックToDo APIを提供する。
// データはメモリ上にのみ保持し、プロセス終了で破棄される。
package mockapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"

	"github.com/hitoshi/todoctl/internal/metrics"
	"github.com/hitoshi/todoctl/internal/model"
)

// Config はモックAPIの設定。
type Config struct {
	// Secret はJWT署名鍵。空の場合は固定の開発用鍵を使う。
	Secret string
	// FixedToken が設定されている場合、SeedUserのログインはこのトークンを返す。
	FixedToken string
	// TokenTTL は発行するJWTの有効期間（デフォルト: 72時間）。
	TokenTTL time.Duration
	// AllowedOrigins はCORSで許可するオリジン。
	AllowedOrigins []string
	// Seed がtrueの場合、シードデータを投入する。
	Seed bool
	// Gatherer が設定されている場合、/metrics を公開する。
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
	// Now は現在時刻の取得関数（テスト用）。
	Now func() time.Time
}

type userRecord struct {
	user     model.User
	password string
}

// Server はインメモリのモックAPIサーバー。
type Server struct {
	mu         sync.Mutex
	users      map[string]*userRecord // email -> record
	todos      []model.Todo
	categories []string

	tokens  *tokenIssuer
	logger  *slog.Logger
	now     func() time.Time
	handler http.Handler
}

// New はServerを生成する。
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 72 * time.Hour
	}
	if cfg.Secret == "" {
		cfg.Secret = "devsecret"
	}

	s := &Server{
		users:  make(map[string]*userRecord),
		logger: cfg.Logger,
		now:    cfg.Now,
		tokens: &tokenIssuer{
			secret:      []byte(cfg.Secret),
			ttl:         cfg.TokenTTL,
			fixed:       cfg.FixedToken,
			fixedUserID: SeedUser.ID,
			now:         cfg.Now,
		},
	}
	if cfg.Seed {
		s.users[SeedUser.Email] = &userRecord{user: SeedUser, password: SeedPassword}
		s.todos = SeedTodos()
		s.categories = SeedCategories()
	}
	s.handler = s.routes(cfg)
	return s
}

// ServeHTTP はhttp.Handlerを実装する。
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// routes はchiルーターを構築する。全エンドポイントは /api 配下。
func (s *Server) routes(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(newRecoveryMiddleware(s.logger))
	r.Use(newLoggingMiddleware(s.logger))

	if cfg.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(cfg.Gatherer))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/register", s.handleRegister)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/auth/me", s.handleMe)

			r.Route("/todos", func(r chi.Router) {
				r.Get("/", s.handleListTodos)
				r.Post("/", s.handleCreateTodo)
				r.Get("/categories", s.handleCategories)
				r.Patch("/{id}", s.handleUpdateTodo)
				r.Delete("/{id}", s.handleDeleteTodo)
			})
		})
	})

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:4173"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}

func (s *Server) userByID(id string) (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.users {
		if rec.user.ID == id {
			return rec.user, true
		}
	}
	return model.User{}, false
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in model.LoginInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	rec, ok := s.users[strings.ToLower(in.Email)]
	s.mu.Unlock()
	if !ok || rec.password != in.Password {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	s.respondAuth(w, http.StatusOK, rec.user)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in model.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" || strings.TrimSpace(in.Name) == "" {
		writeError(w, http.StatusBadRequest, "email, password and name are required")
		return
	}

	s.mu.Lock()
	if _, exists := s.users[email]; exists {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "email already registered")
		return
	}
	user := model.User{ID: "user-" + uuid.NewString(), Email: email, Name: strings.TrimSpace(in.Name)}
	s.users[email] = &userRecord{user: user, password: in.Password}
	s.mu.Unlock()

	s.respondAuth(w, http.StatusCreated, user)
}

func (s *Server) respondAuth(w http.ResponseWriter, code int, user model.User) {
	token, err := s.tokens.issue(user.ID)
	if err != nil {
		s.logger.Error("トークンの発行に失敗しました", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, code, model.AuthResponse{User: user, Token: token})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := s.userByID(userIDFromContext(r.Context()))
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleListTodos(w http.ResponseWriter, r *http.Request) {
	filter, err := model.ParseTodoFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID := userIDFromContext(r.Context())

	s.mu.Lock()
	result := make([]model.Todo, 0, len(s.todos))
	for _, t := range s.todos {
		if t.UserID == userID && matches(t, filter) {
			result = append(result, t)
		}
	}
	s.mu.Unlock()

	sortTodos(result, filter.SortBy, filter.SortOrder)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCreateTodo(w http.ResponseWriter, r *http.Request) {
	var in model.CreateTodoInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if strings.TrimSpace(in.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	todo := model.Todo{
		ID:        "todo-" + uuid.NewString(),
		Title:     in.Title,
		Completed: in.Completed,
		CreatedAt: s.now().UTC().Format("2006-01-02T15:04:05.000Z"),
		DueDate:   in.DueDate,
		Category:  in.Category,
		UserID:    userIDFromContext(r.Context()),
	}

	s.mu.Lock()
	s.todos = append(s.todos, todo)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, todo)
}

func (s *Server) handleUpdateTodo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var in model.UpdateTodoInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		writeError(w, http.StatusBadRequest, "title must not be empty")
		return
	}
	userID := userIDFromContext(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.todos {
		t := &s.todos[i]
		if t.ID != id || t.UserID != userID {
			continue
		}
		if in.Title != nil {
			t.Title = *in.Title
		}
		if in.Completed != nil {
			t.Completed = *in.Completed
		}
		if in.DueDate != nil {
			t.DueDate = in.DueDate
		}
		if in.Category != nil {
			t.Category = in.Category
		}
		writeJSON(w, http.StatusOK, *t)
		return
	}
	writeError(w, http.StatusNotFound, "todo not found")
}

func (s *Server) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	userID := userIDFromContext(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.todos {
		if t.ID == id && t.UserID == userID {
			s.todos = append(s.todos[:i], s.todos[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound, "todo not found")
}

// handleCategories は既定のカテゴリにユーザーのToDoで使われているカテゴリを加えて返す。
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	s.mu.Lock()
	seen := make(map[string]bool)
	categories := make([]string, 0, len(s.categories))
	for _, c := range s.categories {
		if !seen[c] {
			seen[c] = true
			categories = append(categories, c)
		}
	}
	for _, t := range s.todos {
		if t.UserID == userID && t.Category != nil && *t.Category != "" && !seen[*t.Category] {
			seen[*t.Category] = true
			categories = append(categories, *t.Category)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, categories)
}

func matches(t model.Todo, f model.TodoFilter) bool {
	if f.Completed != nil && t.Completed != *f.Completed {
		return false
	}
	if f.Category != "" && (t.Category == nil || *t.Category != f.Category) {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

// sortTodos はキーと順序で安定ソートする。キー未指定の場合は作成順を維持する。
// dueDateがないToDoは順序に関わらず末尾に置く。
func sortTodos(todos []model.Todo, by model.SortKey, order model.SortOrder) {
	if by == "" {
		return
	}
	desc := order == model.SortDesc
	sort.SliceStable(todos, func(i, j int) bool {
		a, b := todos[i], todos[j]
		switch by {
		case model.SortByTitle:
			if desc {
				return a.Title > b.Title
			}
			return a.Title < b.Title
		case model.SortByDueDate:
			if a.DueDate == nil || b.DueDate == nil {
				return a.DueDate != nil && b.DueDate == nil
			}
			if desc {
				return *a.DueDate > *b.DueDate
			}
			return *a.DueDate < *b.DueDate
		default:
			if desc {
				return a.CreatedAt > b.CreatedAt
			}
			return a.CreatedAt < b.CreatedAt
		}
	})
}
