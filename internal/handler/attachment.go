package handler

import (
	"io"
	"net/http"

	"upkeep/internal/auth"
	"upkeep/internal/model"
	"upkeep/internal/storage"
	"upkeep/internal/ws"
)

// Upload stores a reference document (manual, warranty, receipt) against a
// task. Any file type is accepted; only sign-off images are restricted.
func (h *TaskHandler) Upload(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	userID := auth.UserID(r.Context())

	if _, err := h.taskStore.GetByID(userID, id); err != nil {
		writeStoreError(w, h.logger, err, "get task for attachment")
		return
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	contentType := header.Header.Get("Content-Type")
	stored, err := h.files.Save(r.Context(), data, header.Filename, contentType, userID, storage.FolderAttachments)
	if err != nil {
		h.logger.Error("store attachment", "error", err)
		writeError(w, http.StatusInternalServerError, "file upload failed")
		return
	}

	att, err := h.taskStore.CreateAttachment(userID, id, stored)
	if err != nil {
		writeStoreError(w, h.logger, err, "create attachment")
		return
	}

	h.resolveAttachment(r, att)
	h.broadcast(userID, ws.NewEvent("attachment", "created", att.ID))
	writeJSON(w, http.StatusCreated, att)
}

func (h *TaskHandler) ListAttachments(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	attachments, err := h.taskStore.ListAttachments(auth.UserID(r.Context()), id)
	if err != nil {
		writeStoreError(w, h.logger, err, "list attachments")
		return
	}
	if attachments == nil {
		attachments = []model.Attachment{}
	}
	for i := range attachments {
		h.resolveAttachment(r, &attachments[i])
	}
	writeJSON(w, http.StatusOK, attachments)
}

func (h *TaskHandler) resolveAttachment(r *http.Request, a *model.Attachment) {
	a.URL = h.files.Resolve(r.Context(), a.FilePath)
}
