package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// localStore writes uploads beneath a directory on local disk. References
// are relative paths under /uploads/, served directly by the HTTP layer.
type localStore struct {
	dir string
}

func newLocalStore(dir string) *localStore {
	return &localStore{dir: dir}
}

func (l *localStore) Save(ctx context.Context, data []byte, originalFilename, mimeType string, userID int64, folder string) (*Stored, error) {
	name := newKey(originalFilename)
	subdir := filepath.Join(l.dir, strconv.FormatInt(userID, 10), folder)
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	// O_EXCL: a key is written at most once.
	f, err := os.OpenFile(filepath.Join(subdir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, fmt.Errorf("write upload file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close upload file: %w", err)
	}

	return &Stored{
		Path:             fmt.Sprintf("/uploads/%d/%s/%s", userID, folder, name),
		OriginalFilename: originalFilename,
		MimeType:         orOctetStream(mimeType),
		SizeBytes:        int64(len(data)),
	}, nil
}

// Resolve is the identity for local references: they are already servable
// relative paths.
func (l *localStore) Resolve(ctx context.Context, ref string) string {
	return ref
}
