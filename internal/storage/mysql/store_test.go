package mysql

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap/zaptest"

	"tasklist/internal/storage"
)

func TestClassifyUsesErrorNumber(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want storage.Kind
	}{
		{name: "not found", err: &mysql.MySQLError{Number: 50001, Message: "Task not found"}, want: storage.KindNotFound},
		{name: "title", err: &mysql.MySQLError{Number: 50002, Message: "Title must be between 3 and 100 characters"}, want: storage.KindValidation},
		{name: "duplicate", err: &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, want: storage.KindStore},
		{name: "bad connection", err: mysql.ErrInvalidConn, want: storage.KindStore},
		{name: "plain", err: errors.New("boom"), want: storage.KindStore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.err); got.Kind != tt.want {
				t.Fatalf("classify() kind = %v, want %v", got.Kind, tt.want)
			}
		})
	}
}

func TestNormalizeDSNForcesParseTime(t *testing.T) {
	cfg, err := normalizeDSN("user:pass@tcp(localhost:3306)/tasks")
	if err != nil {
		t.Fatalf("normalizeDSN() error = %v", err)
	}
	if !cfg.ParseTime {
		t.Fatalf("ParseTime must be enabled")
	}
	if cfg.Loc != time.UTC {
		t.Fatalf("Loc = %v, want UTC", cfg.Loc)
	}
	if cfg.DBName != "tasks" {
		t.Fatalf("DBName = %q, want tasks", cfg.DBName)
	}

	if _, err := normalizeDSN("not a dsn"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestStoreAgainstDatabase(t *testing.T) {
	dsn := os.Getenv("TASKLIST_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TASKLIST_TEST_MYSQL_DSN not set")
	}
	ctx := context.Background()
	store, err := Open(ctx, dsn, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	created, err := store.Create(ctx, "  Buy milk  ", nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	got, err := store.Get(ctx, created.ID)
	if err != nil || got == nil || got.Title != "Buy milk" {
		t.Fatalf("Get() = %+v, %v", got, err)
	}

	if _, err := store.Create(ctx, "ab", nil); err == nil {
		t.Fatalf("expected validation error")
	} else if _, ok := storage.AsValidation(err); !ok {
		t.Fatalf("Create() error = %v, want validation", err)
	}

	tasks, total, err := store.List(ctx, storage.ListQuery{PageNumber: 1, PageSize: 100})
	if err != nil || total < 1 || len(tasks) < 1 {
		t.Fatalf("List() = %d tasks, total %d, err %v", len(tasks), total, err)
	}

	deleted, err := store.Delete(ctx, created.ID)
	if err != nil || !deleted {
		t.Fatalf("Delete() = %v, %v", deleted, err)
	}
	deleted, err = store.Delete(ctx, created.ID)
	if err != nil || deleted {
		t.Fatalf("second Delete() = %v, %v", deleted, err)
	}
}
