package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/selleropsapp/sellerops-backend/api/middleware"
	"github.com/selleropsapp/sellerops-backend/api/responses"
	"github.com/selleropsapp/sellerops-backend/api/validators"
	"github.com/selleropsapp/sellerops-backend/internal/tasks"
	"github.com/selleropsapp/sellerops-backend/pkg/enums"
	pkgerrors "github.com/selleropsapp/sellerops-backend/pkg/errors"
	"github.com/selleropsapp/sellerops-backend/pkg/logger"
)

type createTaskRequest struct {
	Title       string    `json:"title" validate:"required"`
	Description *string   `json:"description,omitempty"`
	Type        string    `json:"type" validate:"required"`
	AssigneeID  uuid.UUID `json:"assigneeId" validate:"required"`
	DueAt       time.Time `json:"dueAt" validate:"required"`
}

type completeTaskRequest struct {
	AttachmentURL string `json:"attachmentUrl" validate:"required,url"`
}

// TaskCreate opens a new pending task for an operator. Admin only.
func TaskCreate(svc *tasks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "task service unavailable"))
			return
		}

		actorID, err := actorUUID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createTaskRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		task, err := svc.CreateTask(r.Context(), tasks.CreateTaskInput{
			Title:       body.Title,
			Description: body.Description,
			Type:        body.Type,
			AssigneeID:  body.AssigneeID,
			DueAt:       body.DueAt,
			CreatedBy:   actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newTaskView(task))
	}
}

// TaskList filters tasks by status and assignee.
func TaskList(svc *tasks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "task service unavailable"))
			return
		}

		query := tasks.ListQuery{}

		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status := enums.TaskStatus(raw)
			if !status.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown task status").WithDetails(map[string]any{"status": raw}))
				return
			}
			query.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("assigneeId")); raw != "" {
			assigneeID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid assignee id"))
				return
			}
			query.AssigneeID = &assigneeID
		}

		var err error
		query.Limit, err = validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query.Offset, err = validators.ParseQueryInt(r, "offset", 0, 0, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListTasks(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newTaskViews(list))
	}
}

// TaskGet returns a single task by id.
func TaskGet(svc *tasks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "task service unavailable"))
			return
		}

		taskID, err := pathUUID(r, "taskID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		task, err := svc.GetTask(r.Context(), taskID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newTaskView(task))
	}
}

// TaskComplete closes a task with its proof attachment. The assignee or an
// admin may complete.
func TaskComplete(svc *tasks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "task service unavailable"))
			return
		}

		taskID, err := pathUUID(r, "taskID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actorID, err := actorUUID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body completeTaskRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actorIsAdmin := middleware.RoleFromContext(r.Context()) == string(enums.UserRoleAdmin)
		task, err := svc.CompleteTask(r.Context(), taskID, actorID, actorIsAdmin, body.AttachmentURL)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newTaskView(task))
	}
}

// TaskVerify is the admin sign-off after reviewing a completed task.
func TaskVerify(svc *tasks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "task service unavailable"))
			return
		}

		taskID, err := pathUUID(r, "taskID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		adminID, err := actorUUID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		task, err := svc.VerifyTask(r.Context(), taskID, adminID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newTaskView(task))
	}
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid id")
	}
	return id, nil
}

func actorUUID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "missing actor identity")
	}
	return id, nil
}
