package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"upkeep/internal/auth"
	"upkeep/internal/config"
	"upkeep/internal/database"
	"upkeep/internal/storage"
	"upkeep/internal/store"
)

type testEnv struct {
	db       *sql.DB
	users    *store.UserStore
	sessions *store.SessionStore
	tasks    *store.TaskStore
	files    storage.Store
	taskH    *TaskHandler
	authH    *AuthHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.Default()
	cfg := &config.Config{Env: config.EnvDevelopment, UploadDir: t.TempDir()}
	files, err := storage.New(cfg, logger)
	if err != nil {
		t.Fatalf("init storage: %v", err)
	}

	users := store.NewUserStore(db)
	sessions := store.NewSessionStore(db)
	tasks := store.NewTaskStore(db)

	return &testEnv{
		db:       db,
		users:    users,
		sessions: sessions,
		tasks:    tasks,
		files:    files,
		taskH:    NewTaskHandler(tasks, files, nil, logger),
		authH:    NewAuthHandler(users, sessions, false, logger),
	}
}

func (e *testEnv) createUser(t *testing.T, email string) int64 {
	t.Helper()
	u, _, err := e.users.Upsert(email, "x")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.ID
}

// authedRequest builds a request carrying the identity the auth middleware
// would have attached.
func authedRequest(method, target string, body io.Reader, userID int64) *http.Request {
	req := httptest.NewRequest(method, target, body)
	return req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: userID}))
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewReader(data)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// multipartBody assembles a form with the given text fields plus, when
// filename is non-empty, one file part under fileField.
func multipartBody(t *testing.T, fields map[string]string, fileField, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if filename != "" {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, filename))
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

// failingStore counts Save attempts and refuses them all.
type failingStore struct {
	saves int
}

func (f *failingStore) Save(ctx context.Context, data []byte, originalFilename, mimeType string, userID int64, folder string) (*storage.Stored, error) {
	f.saves++
	return nil, fmt.Errorf("backend unavailable")
}

func (f *failingStore) Resolve(ctx context.Context, ref string) string {
	return ref
}
