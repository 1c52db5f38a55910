// Package storage persists uploaded files and resolves stored references
// to retrievable URLs. One backend is chosen at startup: S3-compatible
// object storage when configured, the local filesystem otherwise. Local
// storage is refused in production so user uploads never land on
// ephemeral disk by accident.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"

	"upkeep/internal/config"
)

// Folders namespace stored files by how they entered the system.
const (
	FolderCompletions = "completions"
	FolderAttachments = "attachments"
)

// ErrNotConfigured means the process runs in production with no remote
// storage configuration.
var ErrNotConfigured = errors.New("object storage is not configured")

// Stored describes a persisted upload. Path is the location reference to
// persist: a servable relative path for local files, an opaque object key
// for remote ones. Callers must pass it through Resolve before display.
type Stored struct {
	Path             string `json:"path"`
	OriginalFilename string `json:"original_filename"`
	MimeType         string `json:"mime_type"`
	SizeBytes        int64  `json:"size_bytes"`
}

// Store is the file storage gateway.
type Store interface {
	// Save persists data under a fresh collision-resistant key namespaced
	// by user and folder. Existing keys are never overwritten.
	Save(ctx context.Context, data []byte, originalFilename, mimeType string, userID int64, folder string) (*Stored, error)
	// Resolve exchanges a stored location reference for a retrievable URL.
	// It degrades by returning ref unchanged when no URL can be produced.
	Resolve(ctx context.Context, ref string) string
}

// New selects the backend for this deployment from configuration presence.
func New(cfg *config.Config, logger *slog.Logger) (Store, error) {
	if cfg.S3.Configured() {
		return newS3Store(cfg.S3, logger), nil
	}
	if cfg.Production() {
		return nil, ErrNotConfigured
	}
	return newLocalStore(cfg.UploadDir), nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

func sanitizeFilename(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// newKey builds a storage key from the current time, a random token, and
// the sanitized original filename.
func newKey(originalFilename string) string {
	return fmt.Sprintf("%d-%s-%s", time.Now().UnixMilli(), uuid.New(), sanitizeFilename(originalFilename))
}

func orOctetStream(mimeType string) string {
	if mimeType == "" {
		return "application/octet-stream"
	}
	return mimeType
}
