package task

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/Dip11/medic-media-coding-test-backend/internal/domain"
	"github.com/Dip11/medic-media-coding-test-backend/internal/repository"
	"github.com/Dip11/medic-media-coding-test-backend/internal/ws"
)

// ErrTitleRequired is surfaced to the HTTP layer as a bad request.
var ErrTitleRequired = errors.New("title is required")

// Event types pushed to subscribed clients.
const (
	EventCreated = "task.created"
	EventUpdated = "task.updated"
	EventDeleted = "task.deleted"
)

// Input holds the mutable task fields, shared by create and update since
// updates are full-field replacements.
type Input struct {
	Title   string
	Detail  *string
	DueDate time.Time
}

// Service orchestrates task CRUD for an authenticated owner.
type Service struct {
	tasks  repository.TaskRepository
	hub    *ws.Hub
	logger *slog.Logger
}

// New constructs a Service. A nil hub disables event publishing.
func New(tasks repository.TaskRepository, hub *ws.Hub, logger *slog.Logger) Service {
	return Service{tasks: tasks, hub: hub, logger: logger}
}

// List returns the owner's tasks, optionally sorted.
func (s Service) List(ctx context.Context, ownerID int64, sort *repository.TaskSort) ([]domain.Task, error) {
	return s.tasks.ListTasksByOwner(ctx, ownerID, sort)
}

// Create persists a new task for the owner. An unspecified due date defaults
// to the creation date.
func (s Service) Create(ctx context.Context, ownerID int64, input Input) (*domain.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	dueDate := input.DueDate
	if dueDate.IsZero() {
		dueDate = time.Now().UTC()
	}
	task := &domain.Task{
		Title:     title,
		Detail:    input.Detail,
		DueDate:   dueDate,
		CreatedBy: ownerID,
	}
	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	s.logger.Info("task created", "task_id", task.ID, "user_id", ownerID)
	s.publish(EventCreated, task)
	return task, nil
}

// Update replaces the task's title, detail, and due date. A task that does not
// exist, or that belongs to another user, fails with repository.ErrNotFound.
func (s Service) Update(ctx context.Context, ownerID, id int64, input Input) (*domain.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	dueDate := input.DueDate
	if dueDate.IsZero() {
		dueDate = time.Now().UTC()
	}
	task, err := s.tasks.UpdateTask(ctx, ownerID, id, title, input.Detail, dueDate)
	if err != nil {
		return nil, err
	}
	s.logger.Info("task updated", "task_id", task.ID, "user_id", ownerID)
	s.publish(EventUpdated, task)
	return task, nil
}

// Delete removes the owner's task and returns its last state.
func (s Service) Delete(ctx context.Context, ownerID, id int64) (*domain.Task, error) {
	task, err := s.tasks.DeleteTask(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("task deleted", "task_id", task.ID, "user_id", ownerID)
	s.publish(EventDeleted, task)
	return task, nil
}

func (s Service) publish(eventType string, task *domain.Task) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"type": eventType,
		"task": task,
	})
	if err != nil {
		s.logger.Warn("failed to encode task event", "type", eventType, "error", err)
		return
	}
	s.hub.Broadcast(task.CreatedBy, payload)
}
