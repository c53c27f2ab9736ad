package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	TitleMinLength  = 3
	TitleMaxLength  = 100
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// TimestampLayout is the wire format used for task dates.
const TimestampLayout = "02/01/2006 15:04:05"

// Task represents a single entry in the task list.
type Task struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	CreatedAt   Timestamp `json:"createDate"`
	IsCompleted bool      `json:"isCompleted"`
}

// Timestamp is a time.Time serialized with TimestampLayout.
type Timestamp struct {
	time.Time
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.Format(TimestampLayout) + `"`), nil
}

// UnmarshalJSON accepts TimestampLayout and falls back to RFC 3339.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		return fmt.Errorf("invalid date format")
	}
	if parsed, err := time.Parse(TimestampLayout, raw); err == nil {
		t.Time = parsed
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return fmt.Errorf("unable to parse %q as timestamp", raw)
	}
	t.Time = parsed
	return nil
}

// Page is one page of tasks along with the paging metadata.
type Page struct {
	Tasks       []Task `json:"tasks"`
	TotalCount  int    `json:"totalCount"`
	PageNumber  int    `json:"pageNumber"`
	PageSize    int    `json:"pageSize"`
	TotalPages  int    `json:"totalPages"`
	HasPrevious bool   `json:"hasPreviousPage"`
	HasNext     bool   `json:"hasNextPage"`
}

// NewPage derives the paging metadata from the total count of matching tasks.
func NewPage(tasks []Task, totalCount, pageNumber, pageSize int) Page {
	if tasks == nil {
		tasks = []Task{}
	}
	totalPages := 0
	if pageSize > 0 {
		totalPages = (totalCount + pageSize - 1) / pageSize
	}
	return Page{
		Tasks:       tasks,
		TotalCount:  totalCount,
		PageNumber:  pageNumber,
		PageSize:    pageSize,
		TotalPages:  totalPages,
		HasPrevious: pageNumber > 1,
		HasNext:     pageNumber < totalPages,
	}
}

// OptionalString trims v and reports nil when nothing is left.
func OptionalString(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
