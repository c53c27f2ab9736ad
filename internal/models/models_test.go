package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewPageDerivesMetadata(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		number    int
		size      int
		wantPages int
		wantPrev  bool
		wantNext  bool
	}{
		{name: "second of two pages", total: 15, number: 2, size: 10, wantPages: 2, wantPrev: true, wantNext: false},
		{name: "first of two pages", total: 15, number: 1, size: 10, wantPages: 2, wantPrev: false, wantNext: true},
		{name: "exact fit", total: 20, number: 1, size: 20, wantPages: 1},
		{name: "empty", total: 0, number: 1, size: 20, wantPages: 0},
		{name: "beyond last page", total: 5, number: 3, size: 5, wantPages: 1, wantPrev: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := NewPage(nil, tt.total, tt.number, tt.size)
			if page.TotalPages != tt.wantPages {
				t.Fatalf("TotalPages = %d, want %d", page.TotalPages, tt.wantPages)
			}
			if page.HasPrevious != tt.wantPrev {
				t.Fatalf("HasPrevious = %v, want %v", page.HasPrevious, tt.wantPrev)
			}
			if page.HasNext != tt.wantNext {
				t.Fatalf("HasNext = %v, want %v", page.HasNext, tt.wantNext)
			}
			if page.Tasks == nil {
				t.Fatalf("Tasks must never be nil")
			}
		})
	}
}

func TestTaskJSONShape(t *testing.T) {
	created := time.Date(2024, time.March, 5, 14, 7, 9, 0, time.UTC)
	task := Task{ID: 7, Title: "Buy milk", CreatedAt: Timestamp{created}}

	raw, err := json.Marshal(task)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"id":7,"title":"Buy milk","description":null,"createDate":"05/03/2024 14:07:09","isCompleted":false}`
	if string(raw) != want {
		t.Fatalf("Marshal() = %s, want %s", raw, want)
	}

	var decoded Task
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !decoded.CreatedAt.Equal(created) {
		t.Fatalf("CreatedAt = %v, want %v", decoded.CreatedAt, created)
	}
}

func TestTimestampFallsBackToRFC3339(t *testing.T) {
	var ts Timestamp
	if err := json.Unmarshal([]byte(`"2024-03-05T14:07:09Z"`), &ts); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if ts.Day() != 5 || ts.Month() != time.March {
		t.Fatalf("unexpected date %v", ts.Time)
	}
	if err := json.Unmarshal([]byte(`"yesterday"`), &ts); err == nil {
		t.Fatalf("expected error for unparseable date")
	}
}

func TestOptionalString(t *testing.T) {
	blank := "   "
	padded := "  notes "
	if OptionalString(nil) != nil {
		t.Fatalf("nil input must stay nil")
	}
	if OptionalString(&blank) != nil {
		t.Fatalf("blank input must collapse to nil")
	}
	if got := OptionalString(&padded); got == nil || *got != "notes" {
		t.Fatalf("OptionalString(%q) = %v, want notes", padded, got)
	}
}
