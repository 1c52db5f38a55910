package store

import (
	"database/sql"
	"fmt"
	"time"

	"upkeep/internal/model"
	"upkeep/internal/recurrence"
	"upkeep/internal/storage"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

// TaskFields carries the caller-supplied attributes for create and update.
// Validation happens at the handler edge; the store recomputes next_due_at
// from these fields on every write.
type TaskFields struct {
	Title             string
	Category          *string
	FrequencyInterval int
	FrequencyUnit     string
	Notes             *string
	LastDoneAt        *time.Time
}

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var category, notes sql.NullString
	var lastDoneAt sql.NullTime

	err := scanner.Scan(
		&t.ID, &t.UserID, &t.Title, &category, &t.FrequencyInterval,
		&t.FrequencyUnit, &notes, &lastDoneAt, &t.NextDueAt,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if category.Valid {
		t.Category = &category.String
	}
	if notes.Valid {
		t.Notes = &notes.String
	}
	if lastDoneAt.Valid {
		v := lastDoneAt.Time
		t.LastDoneAt = &v
	}
	return &t, nil
}

const taskCols = `id, user_id, title, category, frequency_interval, frequency_unit, notes, last_done_at, next_due_at, created_at, updated_at`

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func (s *TaskStore) Create(userID int64, f TaskFields) (*model.Task, error) {
	nextDue := recurrence.NextDue(f.LastDoneAt, f.FrequencyInterval, f.FrequencyUnit)

	result, err := s.db.Exec(
		`INSERT INTO tasks (user_id, title, category, frequency_interval, frequency_unit, notes, last_done_at, next_due_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, f.Title, nullString(f.Category), f.FrequencyInterval, f.FrequencyUnit,
		nullString(f.Notes), nullTime(f.LastDoneAt), nextDue,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(userID, id)
}

// GetByID returns the task only if it belongs to userID; otherwise
// ErrNotFound.
func (s *TaskStore) GetByID(userID, id int64) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *TaskStore) Update(userID, id int64, f TaskFields) (*model.Task, error) {
	nextDue := recurrence.NextDue(f.LastDoneAt, f.FrequencyInterval, f.FrequencyUnit)

	result, err := s.db.Exec(
		`UPDATE tasks SET title = ?, category = ?, frequency_interval = ?, frequency_unit = ?,
		 notes = ?, last_done_at = ?, next_due_at = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ?`,
		f.Title, nullString(f.Category), f.FrequencyInterval, f.FrequencyUnit,
		nullString(f.Notes), nullTime(f.LastDoneAt), nextDue, id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.GetByID(userID, id)
}

// Delete removes the task; completions and attachments go with it via
// cascading foreign keys.
func (s *TaskStore) Delete(userID, id int64) error {
	result, err := s.db.Exec(`DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the user's tasks ordered soonest-due first, never-scheduled
// last, newest-created breaking ties. A non-nil category filters to exact
// matches.
func (s *TaskStore) List(userID int64, category *string) ([]model.Task, error) {
	query := `SELECT ` + taskCols + ` FROM tasks WHERE user_id = ?`
	args := []any{userID}
	if category != nil {
		query += ` AND category = ?`
		args = append(args, *category)
	}
	query += ` ORDER BY next_due_at IS NULL, next_due_at ASC, created_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// ListCategories returns the user's distinct non-empty categories, trimmed
// and ascending.
func (s *TaskStore) ListCategories(userID int64) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT TRIM(category) FROM tasks
		 WHERE user_id = ? AND category IS NOT NULL AND TRIM(category) != ''
		 ORDER BY 1 ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// --- Completions ---

func scanCompletion(scanner interface{ Scan(...any) error }) (*model.Completion, error) {
	var c model.Completion
	var notes, imagePath, imageFilename, imageMimeType sql.NullString
	var imageSize sql.NullInt64

	err := scanner.Scan(&c.ID, &c.TaskID, &c.CompletedAt, &notes, &imagePath, &imageFilename, &imageMimeType, &imageSize)
	if err != nil {
		return nil, err
	}

	if notes.Valid {
		c.Notes = &notes.String
	}
	if imagePath.Valid {
		c.ImagePath = &imagePath.String
	}
	if imageFilename.Valid {
		c.ImageFilename = &imageFilename.String
	}
	if imageMimeType.Valid {
		c.ImageMimeType = &imageMimeType.String
	}
	if imageSize.Valid {
		c.ImageSizeBytes = &imageSize.Int64
	}
	return &c, nil
}

const completionCols = `id, task_id, completed_at, notes, image_path, image_filename, image_mime_type, image_size_bytes`

// SignOff records that the task was just performed: within one transaction
// it stamps last_done_at with the current time, recomputes next_due_at, and
// inserts the completion row. The image, if any, was already stored by the
// caller; a zero-row update (task deleted concurrently) aborts with
// ErrNotFound and leaves the stored file orphaned, an accepted leak.
func (s *TaskStore) SignOff(userID, taskID int64, notes *string, image *storage.Stored) (*model.Task, *model.Completion, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var interval int
	var unit string
	err = tx.QueryRow(
		`SELECT frequency_interval, frequency_unit FROM tasks WHERE id = ? AND user_id = ?`,
		taskID, userID,
	).Scan(&interval, &unit)
	if err == sql.ErrNoRows {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get task for sign-off: %w", err)
	}

	// One timestamp serves as last_done_at, completed_at, and the
	// recurrence base, so the three can never disagree.
	now := time.Now().UTC()
	nextDue := recurrence.AddInterval(now, interval, unit)

	result, err := tx.Exec(
		`UPDATE tasks SET last_done_at = ?, next_due_at = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ?`,
		now, nextDue, taskID, userID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("update task for sign-off: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil, ErrNotFound
	}

	var imagePath, imageFilename, imageMimeType sql.NullString
	var imageSize sql.NullInt64
	if image != nil {
		imagePath = sql.NullString{String: image.Path, Valid: true}
		imageFilename = sql.NullString{String: image.OriginalFilename, Valid: true}
		imageMimeType = sql.NullString{String: image.MimeType, Valid: true}
		imageSize = sql.NullInt64{Int64: image.SizeBytes, Valid: true}
	}

	ins, err := tx.Exec(
		`INSERT INTO task_completions (task_id, completed_at, notes, image_path, image_filename, image_mime_type, image_size_bytes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		taskID, now, nullString(notes), imagePath, imageFilename, imageMimeType, imageSize,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("insert completion: %w", err)
	}
	completionID, err := ins.LastInsertId()
	if err != nil {
		return nil, nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit sign-off: %w", err)
	}

	task, err := s.GetByID(userID, taskID)
	if err != nil {
		return nil, nil, err
	}
	row := s.db.QueryRow(`SELECT `+completionCols+` FROM task_completions WHERE id = ?`, completionID)
	completion, err := scanCompletion(row)
	if err != nil {
		return nil, nil, fmt.Errorf("get completion: %w", err)
	}
	return task, completion, nil
}

// ListCompletions returns the task's completions newest-first, or
// ErrNotFound when the task is not the caller's.
func (s *TaskStore) ListCompletions(userID, taskID int64) ([]model.Completion, error) {
	if _, err := s.GetByID(userID, taskID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(
		`SELECT `+completionCols+` FROM task_completions WHERE task_id = ? ORDER BY completed_at DESC, id DESC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	var completions []model.Completion
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		completions = append(completions, *c)
	}
	return completions, rows.Err()
}

// --- Attachments ---

func scanAttachment(scanner interface{ Scan(...any) error }) (*model.Attachment, error) {
	var a model.Attachment
	err := scanner.Scan(&a.ID, &a.TaskID, &a.FilePath, &a.OriginalFilename, &a.MimeType, &a.SizeBytes, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

const attachmentCols = `id, task_id, file_path, original_filename, mime_type, size_bytes, created_at`

// CreateAttachment links an already-stored file to the caller's task.
func (s *TaskStore) CreateAttachment(userID, taskID int64, file *storage.Stored) (*model.Attachment, error) {
	if _, err := s.GetByID(userID, taskID); err != nil {
		return nil, err
	}

	result, err := s.db.Exec(
		`INSERT INTO attachments (task_id, file_path, original_filename, mime_type, size_bytes)
		 VALUES (?, ?, ?, ?, ?)`,
		taskID, file.Path, file.OriginalFilename, file.MimeType, file.SizeBytes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert attachment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+attachmentCols+` FROM attachments WHERE id = ?`, id)
	a, err := scanAttachment(row)
	if err != nil {
		return nil, fmt.Errorf("get attachment: %w", err)
	}
	return a, nil
}

// ListAttachments returns the task's attachments newest-first, or
// ErrNotFound when the task is not the caller's.
func (s *TaskStore) ListAttachments(userID, taskID int64) ([]model.Attachment, error) {
	if _, err := s.GetByID(userID, taskID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(
		`SELECT `+attachmentCols+` FROM attachments WHERE task_id = ? ORDER BY created_at DESC, id DESC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	var attachments []model.Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		attachments = append(attachments, *a)
	}
	return attachments, rows.Err()
}
