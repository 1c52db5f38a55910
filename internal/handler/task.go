package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"upkeep/internal/auth"
	"upkeep/internal/model"
	"upkeep/internal/storage"
	"upkeep/internal/store"
	"upkeep/internal/ws"
)

// Sign-off images are capped at 10 MiB; attachments are not.
const maxImageSizeBytes = 10 << 20

const multipartMemory = 32 << 20

type TaskHandler struct {
	taskStore *store.TaskStore
	files     storage.Store
	hub       *ws.Hub
	logger    *slog.Logger
}

func NewTaskHandler(ts *store.TaskStore, files storage.Store, hub *ws.Hub, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{taskStore: ts, files: files, hub: hub, logger: logger}
}

func (h *TaskHandler) broadcast(userID int64, ev ws.Event) {
	if h.hub != nil {
		h.hub.Broadcast(userID, ev)
	}
}

type taskRequest struct {
	Title             string     `json:"title"`
	Category          string     `json:"category"`
	FrequencyInterval int        `json:"frequency_interval"`
	FrequencyUnit     string     `json:"frequency_unit"`
	Notes             string     `json:"notes"`
	LastDoneAt        *time.Time `json:"last_done_at"`
}

// fields normalizes and validates the request, returning a rejection
// message when it is malformed.
func (r *taskRequest) fields() (store.TaskFields, string) {
	f := store.TaskFields{
		Title:             strings.TrimSpace(r.Title),
		FrequencyInterval: r.FrequencyInterval,
		FrequencyUnit:     r.FrequencyUnit,
		LastDoneAt:        r.LastDoneAt,
	}
	if f.Title == "" {
		return f, "title is required"
	}
	if f.FrequencyInterval < 1 {
		return f, "frequency_interval must be an integer >= 1"
	}
	if !model.ValidUnit(f.FrequencyUnit) {
		return f, "frequency_unit must be one of day, week, month, year"
	}
	if c := strings.TrimSpace(r.Category); c != "" {
		f.Category = &c
	}
	if n := strings.TrimSpace(r.Notes); n != "" {
		f.Notes = &n
	}
	return f, ""
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	f, reject := req.fields()
	if reject != "" {
		writeError(w, http.StatusBadRequest, reject)
		return
	}

	userID := auth.UserID(r.Context())
	task, err := h.taskStore.Create(userID, f)
	if err != nil {
		writeStoreError(w, h.logger, err, "create task")
		return
	}

	h.broadcast(userID, ws.NewEvent("task", "created", task.ID))
	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	var category *string
	if c := r.URL.Query().Get("category"); c != "" {
		category = &c
	}

	tasks, err := h.taskStore.List(auth.UserID(r.Context()), category)
	if err != nil {
		writeStoreError(w, h.logger, err, "list tasks")
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	task, err := h.taskStore.GetByID(auth.UserID(r.Context()), id)
	if err != nil {
		writeStoreError(w, h.logger, err, "get task")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	f, reject := req.fields()
	if reject != "" {
		writeError(w, http.StatusBadRequest, reject)
		return
	}

	userID := auth.UserID(r.Context())
	task, err := h.taskStore.Update(userID, id, f)
	if err != nil {
		writeStoreError(w, h.logger, err, "update task")
		return
	}

	h.broadcast(userID, ws.NewEvent("task", "updated", id))
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	userID := auth.UserID(r.Context())
	if err := h.taskStore.Delete(userID, id); err != nil {
		writeStoreError(w, h.logger, err, "delete task")
		return
	}

	h.broadcast(userID, ws.NewEvent("task", "deleted", id))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *TaskHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.taskStore.ListCategories(auth.UserID(r.Context()))
	if err != nil {
		writeStoreError(w, h.logger, err, "list categories")
		return
	}
	if categories == nil {
		categories = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"categories": categories})
}

// SignOff records that the task was just performed. The optional image is
// validated before anything is stored; the stored file is handed to the
// single task-update/completion-insert transaction.
func (h *TaskHandler) SignOff(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	userID := auth.UserID(r.Context())

	if _, err := h.taskStore.GetByID(userID, id); err != nil {
		writeStoreError(w, h.logger, err, "get task for sign-off")
		return
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	var notes *string
	if n := strings.TrimSpace(r.FormValue("notes")); n != "" {
		notes = &n
	}

	var image *storage.Stored
	file, header, err := r.FormFile("image")
	if err == nil && header.Size > 0 {
		defer file.Close()

		contentType := header.Header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "image/") {
			writeError(w, http.StatusUnsupportedMediaType, "only image uploads are supported for sign-off")
			return
		}
		if header.Size > maxImageSizeBytes {
			writeError(w, http.StatusRequestEntityTooLarge, "image size exceeds 10MB limit")
			return
		}

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read image")
			return
		}

		image, err = h.files.Save(r.Context(), data, header.Filename, contentType, userID, storage.FolderCompletions)
		if err != nil {
			h.logger.Error("store sign-off image", "error", err)
			writeError(w, http.StatusInternalServerError, "image upload failed")
			return
		}
	}

	task, completion, err := h.taskStore.SignOff(userID, id, notes, image)
	if err != nil {
		// A stored image is orphaned here if the task vanished mid-flight.
		writeStoreError(w, h.logger, err, "sign off task")
		return
	}

	h.resolveCompletion(r, completion)
	h.broadcast(userID, ws.NewEvent("task", "completed", id))
	writeJSON(w, http.StatusOK, map[string]any{"task": task, "completion": completion})
}

func (h *TaskHandler) ListCompletions(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	completions, err := h.taskStore.ListCompletions(auth.UserID(r.Context()), id)
	if err != nil {
		writeStoreError(w, h.logger, err, "list completions")
		return
	}
	if completions == nil {
		completions = []model.Completion{}
	}
	for i := range completions {
		h.resolveCompletion(r, &completions[i])
	}
	writeJSON(w, http.StatusOK, completions)
}

func (h *TaskHandler) resolveCompletion(r *http.Request, c *model.Completion) {
	if c.ImagePath == nil {
		return
	}
	url := h.files.Resolve(r.Context(), *c.ImagePath)
	c.ImageURL = &url
}
