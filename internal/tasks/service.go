package tasks

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/selleropsapp/sellerops-backend/pkg/db/models"
	"github.com/selleropsapp/sellerops-backend/pkg/enums"
	pkgerrors "github.com/selleropsapp/sellerops-backend/pkg/errors"
	"github.com/selleropsapp/sellerops-backend/pkg/logger"
)

// ServiceParams groups dependencies for the task service.
type ServiceParams struct {
	Logger *logger.Logger
	Tasks  Repository
}

// Service implements the operational task workflows: creation, completion
// with evidence, admin verification, and the overdue sweep.
type Service struct {
	logg  *logger.Logger
	tasks Repository
	now   func() time.Time
}

// NewService builds the task service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Tasks == nil {
		return nil, errors.New("tasks repository is required")
	}
	return &Service{
		logg:  params.Logger,
		tasks: params.Tasks,
		now:   time.Now,
	}, nil
}

// CreateTaskInput carries a new task request. Admin gating happens at the
// route; the creator id is stamped here.
type CreateTaskInput struct {
	Title       string
	Description *string
	Type        string
	AssigneeID  uuid.UUID
	DueAt       time.Time
	CreatedBy   uuid.UUID
}

// CreateTask validates and stores a new pending task.
func (s *Service) CreateTask(ctx context.Context, input CreateTaskInput) (*models.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "task title is required")
	}
	taskType, err := enums.ParseTaskType(input.Type)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "task type")
	}
	if input.AssigneeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "task assignee is required")
	}
	if input.DueAt.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "task due date is required")
	}
	if input.CreatedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "task creator is required")
	}

	assignee := input.AssigneeID
	task := &models.Task{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Type:        taskType,
		Status:      enums.TaskStatusPending,
		AssigneeID:  &assignee,
		DueAt:       input.DueAt.UTC(),
		CreatedBy:   input.CreatedBy,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing task")
	}

	s.logg.Info(s.logg.WithField(ctx, "task_id", task.ID.String()), "task created")
	return task, nil
}

// CompleteTask closes a task with its evidence URL. Only the assignee or an
// admin may complete it.
func (s *Service) CompleteTask(ctx context.Context, taskID, actorID uuid.UUID, actorIsAdmin bool, attachmentURL string) (*models.Task, error) {
	if strings.TrimSpace(attachmentURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "attachment url is required")
	}

	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading task")
	}
	if task == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "task not found")
	}
	if !actorIsAdmin && (task.AssigneeID == nil || *task.AssigneeID != actorID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the assignee or an admin can complete this task")
	}
	if task.Status == enums.TaskStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "task is already completed")
	}

	at := s.now().UTC()
	if err := s.tasks.Complete(ctx, taskID, actorID, strings.TrimSpace(attachmentURL), at); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "completing task")
	}

	s.logg.Info(s.logg.WithField(ctx, "task_id", taskID.String()), "task completed")
	return s.tasks.FindByID(ctx, taskID)
}

// VerifyTask records the admin sign-off on a completed task.
func (s *Service) VerifyTask(ctx context.Context, taskID, adminID uuid.UUID) (*models.Task, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading task")
	}
	if task == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "task not found")
	}
	if task.Status != enums.TaskStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodePrecondition, "only completed tasks can be verified")
	}

	if err := s.tasks.Verify(ctx, taskID, adminID, s.now().UTC()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying task")
	}

	s.logg.Info(s.logg.WithField(ctx, "task_id", taskID.String()), "task verified")
	return s.tasks.FindByID(ctx, taskID)
}

// GetTask returns one task or NOT_FOUND.
func (s *Service) GetTask(ctx context.Context, taskID uuid.UUID) (*models.Task, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading task")
	}
	if task == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "task not found")
	}
	return task, nil
}

// ListTasks returns tasks matching the query.
func (s *Service) ListTasks(ctx context.Context, query ListQuery) ([]models.Task, error) {
	rows, err := s.tasks.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing tasks")
	}
	return rows, nil
}

// SweepOverdue marks past-due pending tasks as overdue and returns the count.
func (s *Service) SweepOverdue(ctx context.Context) (int64, error) {
	changed, err := s.tasks.MarkOverdue(ctx, s.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sweeping overdue tasks")
	}
	if changed > 0 {
		s.logg.Info(s.logg.WithField(ctx, "count", changed), "tasks marked overdue")
	}
	return changed, nil
}
