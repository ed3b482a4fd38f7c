package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/Dip11/medic-media-coding-test-backend/internal/domain"
	"github.com/Dip11/medic-media-coding-test-backend/internal/repository"
	"github.com/Dip11/medic-media-coding-test-backend/internal/service/auth"
	"github.com/Dip11/medic-media-coding-test-backend/internal/service/task"
	"github.com/Dip11/medic-media-coding-test-backend/pkg/config"
)

// memoryRepository implements the user and task repositories in memory and
// counts mutations so tests can assert rejected requests had no side effects.
type memoryRepository struct {
	nextUserID int64
	nextTaskID int64
	users      map[int64]*domain.User
	tasks      map[int64]*domain.Task
	mutations  int
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		nextUserID: 1,
		nextTaskID: 1,
		users:      make(map[int64]*domain.User),
		tasks:      make(map[int64]*domain.Task),
	}
}

func (m *memoryRepository) CreateUser(_ context.Context, user *domain.User) error {
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	m.mutations++
	user.ID = m.nextUserID
	m.nextUserID++
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	m.users[user.ID] = user
	return nil
}

func (m *memoryRepository) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryRepository) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memoryRepository) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	if user, ok := m.users[id]; ok {
		stamp := at
		user.LastLoginAt = &stamp
	}
	return nil
}

func (m *memoryRepository) ListTasksByOwner(_ context.Context, ownerID int64, taskSort *repository.TaskSort) ([]domain.Task, error) {
	out := make([]domain.Task, 0)
	for _, t := range m.tasks {
		if t.CreatedBy == ownerID {
			out = append(out, *t)
		}
	}
	if taskSort != nil {
		sort.Slice(out, func(i, j int) bool {
			var less bool
			switch taskSort.Field {
			case repository.SortFieldTitle:
				less = out[i].Title < out[j].Title
			default:
				less = out[i].ID < out[j].ID
			}
			if taskSort.Direction == repository.SortDesc {
				return !less
			}
			return less
		})
	}
	return out, nil
}

func (m *memoryRepository) CreateTask(_ context.Context, t *domain.Task) error {
	m.mutations++
	t.ID = m.nextTaskID
	m.nextTaskID++
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	stored := *t
	m.tasks[t.ID] = &stored
	return nil
}

func (m *memoryRepository) UpdateTask(_ context.Context, ownerID, id int64, title string, detail *string, dueDate time.Time) (*domain.Task, error) {
	t, ok := m.tasks[id]
	if !ok || t.CreatedBy != ownerID {
		return nil, repository.ErrNotFound
	}
	m.mutations++
	t.Title = title
	t.Detail = detail
	t.DueDate = dueDate
	t.UpdatedAt = time.Now().UTC()
	copied := *t
	return &copied, nil
}

func (m *memoryRepository) DeleteTask(_ context.Context, ownerID, id int64) (*domain.Task, error) {
	t, ok := m.tasks[id]
	if !ok || t.CreatedBy != ownerID {
		return nil, repository.ErrNotFound
	}
	m.mutations++
	delete(m.tasks, id)
	return t, nil
}

func newTestRouter(t *testing.T) (*Router, *memoryRepository) {
	t.Helper()
	repo := newMemoryRepository()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.APIConfig{JWTSecret: "router-test-secret", TokenTTL: time.Hour}
	authSvc := auth.New(repo, log, cfg)
	taskSvc := task.New(repo, nil, log)
	router := NewRouter(log, authSvc, taskSvc, nil, NewMemoryRateLimiter(), nil)
	t.Cleanup(router.Close)
	return router, repo
}

func doJSON(t *testing.T, router *Router, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func registerAndLogin(t *testing.T, router *Router, email string) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/users/register", "", map[string]string{
		"email": email, "password": "Testing123!", "firstName": "Test",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("register %s: status %d body %s", email, rec.Code, rec.Body.String())
	}
	rec = doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": email, "password": "Testing123!",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", email, rec.Code, rec.Body.String())
	}
	var payload struct {
		AuthToken string `json:"authToken"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if payload.AuthToken == "" {
		t.Fatal("expected authToken in login response")
	}
	return payload.AuthToken
}

func TestRegisterResponseNeverContainsPassword(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/api/users/register", "", map[string]string{
		"email": "safe@example.com", "password": "Testing123!",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	var fields map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &fields); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	for key := range fields {
		if key == "password" || key == "passwordHash" {
			t.Fatalf("response leaks credential field %q", key)
		}
	}
	if fields["email"] != "safe@example.com" {
		t.Fatalf("unexpected body: %v", fields)
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	router, repo := newTestRouter(t)
	body := map[string]string{"email": "dup@example.com", "password": "pw"}
	if rec := doJSON(t, router, http.MethodPost, "/api/users/register", "", body); rec.Code != http.StatusOK {
		t.Fatalf("first register: %d", rec.Code)
	}
	rec := doJSON(t, router, http.MethodPost, "/api/users/register", "", body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body %s", rec.Code, rec.Body.String())
	}
	if len(repo.users) != 1 {
		t.Fatalf("expected the original registration intact, have %d users", len(repo.users))
	}
}

func TestLoginFailuresShareStatusAndBody(t *testing.T) {
	router, _ := newTestRouter(t)
	registerAndLogin(t, router, "known@example.com")

	wrongPassword := doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "known@example.com", "password": "nope",
	})
	unknownEmail := doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ghost@example.com", "password": "nope",
	})
	if wrongPassword.Code != http.StatusNotFound || unknownEmail.Code != http.StatusNotFound {
		t.Fatalf("expected both 404, got %d and %d", wrongPassword.Code, unknownEmail.Code)
	}
	if wrongPassword.Body.String() != unknownEmail.Body.String() {
		t.Fatalf("failure bodies differ: %s vs %s", wrongPassword.Body.String(), unknownEmail.Body.String())
	}
}

func TestProfileRequiresValidToken(t *testing.T) {
	router, _ := newTestRouter(t)
	token := registerAndLogin(t, router, "me@example.com")

	rec := doJSON(t, router, http.MethodGet, "/api/auth/profile", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("profile: %d body %s", rec.Code, rec.Body.String())
	}
	var profile struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile.Email != "me@example.com" {
		t.Fatalf("unexpected profile: %s", rec.Body.String())
	}

	if rec := doJSON(t, router, http.MethodGet, "/api/auth/profile", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: expected 401, got %d", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodGet, "/api/auth/profile", "garbage", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbled token: expected 401, got %d", rec.Code)
	}
}

func TestRejectedRequestsHaveNoSideEffects(t *testing.T) {
	router, repo := newTestRouter(t)
	before := repo.mutations

	rec := doJSON(t, router, http.MethodPost, "/api/tasks", "garbled.token.here", map[string]string{"title": "sneaky"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if repo.mutations != before {
		t.Fatalf("store mutated by a rejected request: %d -> %d", before, repo.mutations)
	}
	if len(repo.tasks) != 0 {
		t.Fatalf("unexpected task persisted: %+v", repo.tasks)
	}
}

func TestTaskCRUDRoundTrip(t *testing.T) {
	router, _ := newTestRouter(t)
	token := registerAndLogin(t, router, "crud@example.com")

	rec := doJSON(t, router, http.MethodPost, "/api/tasks", token, map[string]string{
		"title": "A", "detail": "d", "dueDate": "2024-01-01",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create: %d body %s", rec.Code, rec.Body.String())
	}
	var created domain.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.ID == 0 || created.Title != "A" || created.Detail == nil || *created.Detail != "d" {
		t.Fatalf("unexpected created task: %s", rec.Body.String())
	}
	if created.DueDate.Format(time.DateOnly) != "2024-01-01" {
		t.Fatalf("unexpected due date: %v", created.DueDate)
	}

	rec = doJSON(t, router, http.MethodPut, fmt.Sprintf("/api/tasks/%d", created.ID), token, map[string]string{
		"title": "B", "detail": "d", "dueDate": "2024-01-02",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/api/tasks", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d", rec.Code)
	}
	var listing struct {
		Data []domain.Task `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listing.Data) != 1 || listing.Data[0].Title != "B" {
		t.Fatalf("listing should show the update: %s", rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", created.ID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: %d body %s", rec.Code, rec.Body.String())
	}
	var deleted domain.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &deleted); err != nil {
		t.Fatalf("decode deleted: %v", err)
	}
	if deleted.ID != created.ID || deleted.Title != "B" {
		t.Fatalf("unexpected snapshot: %s", rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/api/tasks", token, nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listing.Data) != 0 {
		t.Fatalf("expected empty listing after delete: %s", rec.Body.String())
	}
}

func TestTaskMutationsOnMissingIDReturn404(t *testing.T) {
	router, _ := newTestRouter(t)
	token := registerAndLogin(t, router, "missing@example.com")

	rec := doJSON(t, router, http.MethodPut, "/api/tasks/9999", token, map[string]string{"title": "B"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("update missing: expected 404, got %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodDelete, "/api/tasks/9999", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("delete missing: expected 404, got %d", rec.Code)
	}
}

func TestTaskListingIsTenantIsolated(t *testing.T) {
	router, _ := newTestRouter(t)
	alphaToken := registerAndLogin(t, router, "alpha@example.com")
	betaToken := registerAndLogin(t, router, "beta@example.com")

	if rec := doJSON(t, router, http.MethodPost, "/api/tasks", alphaToken, map[string]string{"title": "alpha task"}); rec.Code != http.StatusOK {
		t.Fatalf("alpha create: %d", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodPost, "/api/tasks", betaToken, map[string]string{"title": "beta task"}); rec.Code != http.StatusOK {
		t.Fatalf("beta create: %d", rec.Code)
	}

	for _, tc := range []struct {
		token string
		want  string
	}{
		{alphaToken, "alpha task"},
		{betaToken, "beta task"},
	} {
		rec := doJSON(t, router, http.MethodGet, "/api/tasks", tc.token, nil)
		var listing struct {
			Data []domain.Task `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
			t.Fatalf("decode listing: %v", err)
		}
		if len(listing.Data) != 1 || listing.Data[0].Title != tc.want {
			t.Fatalf("expected only %q, got %s", tc.want, rec.Body.String())
		}
	}
}

func TestTaskListingSortParams(t *testing.T) {
	router, _ := newTestRouter(t)
	token := registerAndLogin(t, router, "sorted@example.com")
	for _, title := range []string{"banana", "apple", "cherry"} {
		if rec := doJSON(t, router, http.MethodPost, "/api/tasks", token, map[string]string{"title": title}); rec.Code != http.StatusOK {
			t.Fatalf("create %s: %d", title, rec.Code)
		}
	}

	rec := doJSON(t, router, http.MethodGet, "/api/tasks?sortBy=title&sortDir=DESC", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("sorted list: %d body %s", rec.Code, rec.Body.String())
	}
	var listing struct {
		Data []domain.Task `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listing.Data) != 3 || listing.Data[0].Title != "cherry" || listing.Data[2].Title != "apple" {
		t.Fatalf("unexpected order: %s", rec.Body.String())
	}

	if rec := doJSON(t, router, http.MethodGet, "/api/tasks?sortBy=password&sortDir=ASC", token, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown sort column: expected 400, got %d", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodGet, "/api/tasks?sortBy=title&sortDir=SIDEWAYS", token, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown sort direction: expected 400, got %d", rec.Code)
	}
}

func TestRateLimitOnLogin(t *testing.T) {
	router, _ := newTestRouter(t)
	registerAndLogin(t, router, "limited@example.com")

	var lastStatus int
	for i := 0; i < rateLimitLogin+1; i++ {
		rec := doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email": "limited@example.com", "password": "Testing123!",
		})
		lastStatus = rec.Code
	}
	if lastStatus != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after exceeding the window, got %d", lastStatus)
	}
}
