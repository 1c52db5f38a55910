package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"upkeep/internal/model"
)

func uploadRequest(t *testing.T, env *testEnv, userID, taskID int64, filename, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, nil, "file", filename, contentType, data)
	req := authedRequest(http.MethodPost, "/api/tasks/0/attachments", body, userID)
	req.Header.Set("Content-Type", ct)
	req.SetPathValue("id", fmt.Sprint(taskID))
	rec := httptest.NewRecorder()
	env.taskH.Upload(rec, req)
	return rec
}

func TestUploadAttachment(t *testing.T) {
	env := newTestEnv(t)
	userID := env.createUser(t, "alice@example.com")
	task := createTask(t, env, userID, "Service boiler")

	rec := uploadRequest(t, env, userID, task.ID, "manual.pdf", "application/pdf", []byte("%PDF-1.4"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var att model.Attachment
	decodeBody(t, rec, &att)
	if att.OriginalFilename != "manual.pdf" {
		t.Errorf("original_filename = %q", att.OriginalFilename)
	}
	if att.MimeType != "application/pdf" {
		t.Errorf("mime_type = %q", att.MimeType)
	}
	if !strings.HasPrefix(att.URL, "/uploads/") {
		t.Errorf("url = %q, want /uploads/ path", att.URL)
	}
}

func TestUploadAttachmentMissingFile(t *testing.T) {
	env := newTestEnv(t)
	userID := env.createUser(t, "alice@example.com")
	task := createTask(t, env, userID, "Service boiler")

	body, ct := multipartBody(t, map[string]string{"note": "oops"}, "", "", "", nil)
	req := authedRequest(http.MethodPost, "/api/tasks/0/attachments", body, userID)
	req.Header.Set("Content-Type", ct)
	req.SetPathValue("id", fmt.Sprint(task.ID))
	rec := httptest.NewRecorder()
	env.taskH.Upload(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUploadAttachmentForeignTask(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice@example.com")
	bob := env.createUser(t, "bob@example.com")
	task := createTask(t, env, alice, "Service boiler")

	failing := &failingStore{}
	env.taskH.files = failing

	rec := uploadRequest(t, env, bob, task.ID, "manual.pdf", "application/pdf", []byte("%PDF"))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if failing.saves != 0 {
		t.Errorf("storage Save called %d times for foreign task", failing.saves)
	}
}

func TestListAttachments(t *testing.T) {
	env := newTestEnv(t)
	userID := env.createUser(t, "alice@example.com")
	task := createTask(t, env, userID, "Service boiler")

	req := authedRequest(http.MethodGet, "/api/tasks/0/attachments", nil, userID)
	req.SetPathValue("id", fmt.Sprint(task.ID))
	rec := httptest.NewRecorder()
	env.taskH.ListAttachments(rec, req)
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("empty body = %q, want []", got)
	}

	uploadRequest(t, env, userID, task.ID, "manual.pdf", "application/pdf", []byte("%PDF"))
	uploadRequest(t, env, userID, task.ID, "receipt.png", "image/png", []byte("png"))

	req = authedRequest(http.MethodGet, "/api/tasks/0/attachments", nil, userID)
	req.SetPathValue("id", fmt.Sprint(task.ID))
	rec = httptest.NewRecorder()
	env.taskH.ListAttachments(rec, req)

	var attachments []model.Attachment
	decodeBody(t, rec, &attachments)
	if len(attachments) != 2 {
		t.Fatalf("attachments = %d, want 2", len(attachments))
	}
	for _, a := range attachments {
		if a.URL == "" {
			t.Errorf("attachment %d has no url", a.ID)
		}
	}
}
