package handlers

import (
	"net/http"
	"time"

	"taskReminder/internal/handlers/dto"
	"taskReminder/internal/logger"
	"taskReminder/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TaskHandler struct {
	TaskService TaskService
	Reminders   ReminderTrigger
	Location    *time.Location
}

func NewTaskHandler(taskService TaskService, reminders ReminderTrigger, loc *time.Location) *TaskHandler {
	if loc == nil {
		loc = time.Local
	}
	return &TaskHandler{
		TaskService: taskService,
		Reminders:   reminders,
		Location:    loc,
	}
}

func (h *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP: health check")
	healthCheck(w, h.TaskService.HealthCheck(r.Context()))
}

// ListTasks returns every task with its urgency. Loading the list also nudges the reminder runner.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	tasks := h.TaskService.ListTasks(r.Context())
	if h.Reminders != nil {
		h.Reminders.Trigger()
	}

	logger.Debug("HTTP_OUT: tasks listed",
		zap.Int("count", len(tasks)),
		zap.Duration("ms", time.Since(start)))

	responseWithJSON(w, http.StatusOK, toPayload("tasks", dto.FromTaskList(tasks, h.TaskService.Now())))
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var request dto.CreateTaskRequest
	if !decodeJSON(w, r, &request, false) {
		return
	}
	if err := validateRequest(&request); err != nil {
		handleError(w, r, err, "create_task")
		return
	}

	dueDate, err := parseDueDate(request.DueDate, h.Location)
	if err != nil {
		handleError(w, r, err, "create_task")
		return
	}

	if !h.TaskService.VerifyPin(r.Context(), request.Pin) {
		handleError(w, r, service.NewInvalidPin(), "create_task")
		return
	}

	created, err := h.TaskService.CreateTask(r.Context(), service.CreateTaskInput{
		Title:          request.Title,
		Subject:        request.Subject,
		Description:    request.Description,
		DueDate:        dueDate,
		SubmissionLink: request.SubmissionLink,
		Images:         request.Images,
	})
	if err != nil {
		handleError(w, r, err, "create_task")
		return
	}

	logger.Info("HTTP_OUT: task created",
		zap.String("task_id", created.ID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithJSON(w, http.StatusCreated, toPayload("task", dto.FromTask(created, h.TaskService.Now())))
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil || id == uuid.Nil {
		logger.Warn("HTTP: bad task id",
			zap.String("id", chi.URLParam(r, "id")),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	var request dto.PinRequest
	if !decodeJSON(w, r, &request, true) {
		return
	}
	if request.Pin == "" {
		request.Pin = r.Header.Get("X-Pin")
	}

	if !h.TaskService.VerifyPin(r.Context(), request.Pin) {
		handleError(w, r, service.NewInvalidPin(), "delete_task")
		return
	}

	if err := h.TaskService.DeleteTask(r.Context(), id); err != nil {
		handleError(w, r, err, "delete_task")
		return
	}

	logger.Info("HTTP_OUT: task deleted",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusNoContent))

	responseWithJSON(w, http.StatusNoContent)
}

func (h *TaskHandler) VerifyPin(w http.ResponseWriter, r *http.Request) {
	var request dto.PinRequest
	if !decodeJSON(w, r, &request, false) {
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("valid", h.TaskService.VerifyPin(r.Context(), request.Pin)))
}
