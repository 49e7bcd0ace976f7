package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"todoapp/internal/auth"
	dom "todoapp/internal/domain"
	"todoapp/internal/handlers"
	"todoapp/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeUserRepo is an in-memory repo.UserRepo with the same error contract as
// the Postgres implementation: pgx.ErrNoRows for absent rows, PgError 23505
// for a duplicate email.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]dom.User // by id
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]dom.User{}}
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (dom.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return dom.User{}, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (dom.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return dom.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (r *fakeUserRepo) Create(_ context.Context, email, hashedPassword string) (dom.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return dom.User{}, &pgconn.PgError{Code: "23505"}
		}
	}
	u := dom.User{
		ID:             uuid.NewString(),
		Email:          email,
		HashedPassword: hashedPassword,
		CreatedAt:      time.Now().UTC(),
	}
	r.users[u.ID] = u
	return u, nil
}

type fakeTaskRow struct {
	task dom.Task
	seq  int
}

// fakeTaskRepo is an in-memory repo.TaskRepo. Ordering matches the SQL
// implementation: created_at descending with a stable secondary key.
type fakeTaskRepo struct {
	mu    sync.Mutex
	rows  map[string]*fakeTaskRow // by id
	nowFn func() time.Time
	seq   int
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{rows: map[string]*fakeTaskRow{}, nowFn: func() time.Time { return time.Now().UTC() }}
}

func (r *fakeTaskRepo) Create(_ context.Context, userID, title string, description *string) (dom.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.nowFn()
	r.seq++
	t := dom.Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		UserID:      userID,
		IsCompleted: false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.rows[t.ID] = &fakeTaskRow{task: t, seq: r.seq}
	return t, nil
}

func (r *fakeTaskRepo) GetByID(_ context.Context, userID, id string) (dom.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.task.UserID != userID {
		return dom.Task{}, pgx.ErrNoRows
	}
	return row.task, nil
}

func (r *fakeTaskRepo) owned(userID string) []*fakeTaskRow {
	var out []*fakeTaskRow
	for _, row := range r.rows {
		if row.task.UserID == userID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].task.CreatedAt.Equal(out[j].task.CreatedAt) {
			return out[i].task.CreatedAt.After(out[j].task.CreatedAt)
		}
		return out[i].seq > out[j].seq
	})
	return out
}

func (r *fakeTaskRepo) List(_ context.Context, userID string, offset, limit int) ([]dom.Task, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.owned(userID)
	total := int64(len(rows))
	if offset >= len(rows) {
		return nil, total, nil
	}
	rows = rows[offset:]
	if limit < len(rows) {
		rows = rows[:limit]
	}
	out := make([]dom.Task, len(rows))
	for i, row := range rows {
		out[i] = row.task
	}
	return out, total, nil
}

func (r *fakeTaskRepo) Count(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.owned(userID))), nil
}

func (r *fakeTaskRepo) Update(_ context.Context, userID, id string, title, description *string) (dom.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.task.UserID != userID {
		return dom.Task{}, pgx.ErrNoRows
	}
	if title != nil {
		row.task.Title = *title
	}
	if description != nil {
		row.task.Description = description
	}
	row.task.UpdatedAt = r.nowFn()
	return row.task, nil
}

func (r *fakeTaskRepo) ToggleCompletion(_ context.Context, userID, id string) (dom.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.task.UserID != userID {
		return dom.Task{}, pgx.ErrNoRows
	}
	row.task.IsCompleted = !row.task.IsCompleted
	row.task.UpdatedAt = r.nowFn()
	return row.task, nil
}

func (r *fakeTaskRepo) Delete(_ context.Context, userID, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.task.UserID != userID {
		return false, nil
	}
	delete(r.rows, id)
	return true, nil
}

// newTestRouter wires real services and handlers over the in-memory repos,
// matching the route layout in internal/app.
func newTestRouter(t *testing.T) (*gin.Engine, *fakeTaskRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	issuer := auth.NewTokenIssuer("test-secret", time.Minute)
	users := newFakeUserRepo()
	tasks := newFakeTaskRepo()
	userSvc := service.NewUserService(users)
	taskSvc := service.NewTaskService(tasks, nil)

	authHandler := handlers.NewAuthHandler(issuer, userSvc)
	taskHandler := handlers.NewTaskHandler(taskSvc)

	r := gin.New()
	api := r.Group("/api/v1")
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/auth/me", auth.RequireToken(issuer), authHandler.Me)

	protected := api.Group("", auth.RequireToken(issuer))
	protected.GET("/tasks", taskHandler.List)
	protected.POST("/tasks", taskHandler.Create)
	protected.GET("/tasks/:id", taskHandler.GetByID)
	protected.PUT("/tasks/:id", taskHandler.Update)
	protected.DELETE("/tasks/:id", taskHandler.Delete)
	protected.PATCH("/tasks/:id/complete", taskHandler.ToggleCompletion)
	return r, tasks
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func registerUser(t *testing.T, r *gin.Engine, email, password string) {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": email, "password": password})
	if w.Code != http.StatusOK {
		t.Fatalf("register %s: status %d, body %s", email, w.Code, w.Body.String())
	}
}

func loginUser(t *testing.T, r *gin.Engine, email, password string) string {
	t.Helper()
	form := url.Values{"username": {email}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: status %d, body %s", email, w.Code, w.Body.String())
	}
	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.TokenType != "bearer" {
		t.Fatalf("token_type = %q, want bearer", resp.TokenType)
	}
	return resp.AccessToken
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return m
}
