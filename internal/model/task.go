package model

import "time"

// Frequency units accepted for a task's recurrence rule.
const (
	UnitDay   = "day"
	UnitWeek  = "week"
	UnitMonth = "month"
	UnitYear  = "year"
)

// ValidUnit reports whether unit is one of the accepted frequency units.
func ValidUnit(unit string) bool {
	switch unit {
	case UnitDay, UnitWeek, UnitMonth, UnitYear:
		return true
	}
	return false
}

type Task struct {
	ID                int64      `json:"id"`
	UserID            int64      `json:"user_id"`
	Title             string     `json:"title"`
	Category          *string    `json:"category"`
	FrequencyInterval int        `json:"frequency_interval"`
	FrequencyUnit     string     `json:"frequency_unit"`
	Notes             *string    `json:"notes"`
	LastDoneAt        *time.Time `json:"last_done_at"`
	NextDueAt         time.Time  `json:"next_due_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Completion is an immutable record that a task was performed. The four
// image fields are either all set or all nil.
type Completion struct {
	ID             int64     `json:"id"`
	TaskID         int64     `json:"task_id"`
	CompletedAt    time.Time `json:"completed_at"`
	Notes          *string   `json:"notes"`
	ImagePath      *string   `json:"image_path"`
	ImageFilename  *string   `json:"image_filename"`
	ImageMimeType  *string   `json:"image_mime_type"`
	ImageSizeBytes *int64    `json:"image_size_bytes"`
	// ImageURL is the resolved, retrievable form of ImagePath. Populated on
	// read paths only, never persisted.
	ImageURL *string `json:"image_url,omitempty"`
}

type Attachment struct {
	ID               int64     `json:"id"`
	TaskID           int64     `json:"task_id"`
	FilePath         string    `json:"file_path"`
	OriginalFilename string    `json:"original_filename"`
	MimeType         string    `json:"mime_type"`
	SizeBytes        int64     `json:"size_bytes"`
	CreatedAt        time.Time `json:"created_at"`
	// URL is the resolved form of FilePath. Populated on read paths only.
	URL string `json:"url,omitempty"`
}
