package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	appI18n "github.com/intervox/intervox/internal/i18n"
	"github.com/intervox/intervox/internal/model"
	"github.com/intervox/intervox/internal/tasklog"
)

func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, apiResponse{Data: h.coord.List()})
}

func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var spec model.TaskSpec
	if err := decodeBody(r, &spec); err != nil {
		respondError(w, r, err)
		return
	}
	if spec.CreatedBy == "" {
		spec.CreatedBy = model.UserFromContext(r.Context()).ID
	}

	task, err := h.coord.Create(spec)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, apiResponse{
		Data:   task,
		Notice: appI18n.T(r.Context(), "TaskCreated"),
	})
}

func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	view, err := h.coord.View(chi.URLParam(r, "taskID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, apiResponse{Data: view})
}

func (h *Handler) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var patch model.TaskPatch
	if err := decodeBody(r, &patch); err != nil {
		respondError(w, r, err)
		return
	}

	task, err := h.coord.Update(chi.URLParam(r, "taskID"), patch)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, apiResponse{
		Data:   task,
		Notice: appI18n.T(r.Context(), "TaskUpdated"),
	})
}

type assignRequest struct {
	CandidateIDs []string `json:"candidateIds"`
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	task, err := h.coord.Assign(chi.URLParam(r, "taskID"), req.CandidateIDs)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, apiResponse{
		Data:   task,
		Notice: appI18n.Tp(r.Context(), "CandidatesAssigned", len(req.CandidateIDs)),
	})
}

func (h *Handler) handleArchiveTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.coord.Archive(chi.URLParam(r, "taskID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, apiResponse{
		Data:   task,
		Notice: appI18n.T(r.Context(), "TaskArchived"),
	})
}

func (h *Handler) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.coord.Complete(chi.URLParam(r, "taskID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, apiResponse{
		Data:   task,
		Notice: appI18n.T(r.Context(), "TaskUpdated"),
	})
}

func (h *Handler) handleMyTasks(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	tasks := h.coord.TasksForCandidate(user.ID)

	// The client renders interview content alongside each task.
	views := make([]model.TaskView, 0, len(tasks))
	for _, task := range tasks {
		view, err := h.coord.View(task.ID)
		if err != nil {
			continue
		}
		views = append(views, view)
	}
	respondJSON(w, http.StatusOK, apiResponse{Data: views})
}

type submitRequest struct {
	Answers []model.Answer `json:"answers"`
}

func (h *Handler) handleSubmitResponse(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	user := model.UserFromContext(r.Context())
	sub, err := h.coord.SubmitResponse(r.Context(), chi.URLParam(r, "taskID"), user.ID, req.Answers)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, apiResponse{
		Data:   sub,
		Notice: appI18n.T(r.Context(), "SubmissionReceived"),
	})
}

func (h *Handler) handleTaskSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.coord.SubmissionsForTask(chi.URLParam(r, "taskID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, apiResponse{Data: subs})
}

func (h *Handler) handleSearchTasks(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, apiResponse{Data: h.coord.Search(r.URL.Query().Get("q"))})
}

func (h *Handler) handleOverdueTasks(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, apiResponse{Data: h.coord.Overdue(time.Now())})
}

func (h *Handler) handleTaskStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, apiResponse{Data: h.coord.Statistics()})
}

type bulkAssignRequest struct {
	TaskIDs      []string `json:"taskIds"`
	CandidateIDs []string `json:"candidateIds"`
}

func (h *Handler) handleBulkAssign(w http.ResponseWriter, r *http.Request) {
	var req bulkAssignRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, apiResponse{
		Data: h.coord.BulkAssign(req.TaskIDs, req.CandidateIDs),
	})
}

type bulkArchiveRequest struct {
	TaskIDs []string `json:"taskIds"`
}

func (h *Handler) handleBulkArchive(w http.ResponseWriter, r *http.Request) {
	var req bulkArchiveRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, apiResponse{
		Data: h.coord.BulkArchive(req.TaskIDs),
	})
}

func (h *Handler) handleListLog(w http.ResponseWriter, r *http.Request) {
	tasks := h.tasklog.List()
	if typ := r.URL.Query().Get("type"); typ != "" {
		tasks = h.tasklog.ByType(model.TaskType(typ))
	} else if status := r.URL.Query().Get("status"); status != "" {
		tasks = h.tasklog.ByStatus(model.TaskStatus(status))
	}
	respondJSON(w, http.StatusOK, apiResponse{Data: tasks})
}

func (h *Handler) handleLogStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, apiResponse{Data: h.tasklog.Stats()})
}

func (h *Handler) handleLogCleanup(w http.ResponseWriter, r *http.Request) {
	maxAge := tasklog.DefaultMaxAge
	if days := r.URL.Query().Get("maxAgeDays"); days != "" {
		n, err := strconv.Atoi(days)
		if err != nil || n < 1 {
			respondError(w, r, model.ErrValidation)
			return
		}
		maxAge = time.Duration(n) * 24 * time.Hour
	}

	removed, err := h.tasklog.Cleanup(maxAge)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, apiResponse{
		Data:   map[string]int{"removed": removed},
		Notice: appI18n.Tp(r.Context(), "TasksCleaned", removed),
	})
}
