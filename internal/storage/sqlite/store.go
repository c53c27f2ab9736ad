package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"tasklist/internal/models"
	"tasklist/internal/storage"
)

// Statements standing in for the stored procedures of the server backends.
const (
	spCountTasks = `SELECT COUNT(*) FROM tasks WHERE (? IS NULL OR is_completed = ?)`

	spGetAllTasks = `SELECT id, title, description, created_at, is_completed
        FROM tasks WHERE (? IS NULL OR is_completed = ?)
        ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?`

	spGetTaskByID = `SELECT id, title, description, created_at, is_completed FROM tasks WHERE id = ?`

	spCreateTask = `INSERT INTO tasks(title, description) VALUES(trim(?), ?)`

	spUpdateTask = `UPDATE tasks SET title = trim(?), description = ?, is_completed = ? WHERE id = ?`

	spDeleteTask = `DELETE FROM tasks WHERE id = ?`
)

// Store wraps access to the SQLite database and implements storage.TaskStore.
type Store struct {
	provider *storage.SQLProvider
	logger   *zap.Logger
}

var _ storage.TaskStore = (*Store)(nil)

// Open initializes a new SQLite store and installs the schema.
func Open(dsn string, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("empty database path")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if !strings.HasPrefix(dsn, "file:") {
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
		dsn = fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=ON", dsn)
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{provider: storage.NewSQLProvider(conn), logger: logger.Named("sqlite")}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	return s.provider.Close()
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            title TEXT NOT NULL,
            description TEXT NULL,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            is_completed BOOLEAN NOT NULL DEFAULT 0
        );`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_completed_created ON tasks(is_completed, created_at);`,
		`CREATE TRIGGER IF NOT EXISTS trg_tasks_title_insert
            BEFORE INSERT ON tasks
            FOR EACH ROW WHEN length(trim(NEW.title)) < 3 OR length(trim(NEW.title)) > 100
            BEGIN
                SELECT RAISE(ABORT, 'TL002: Title must be between 3 and 100 characters');
            END;`,
		`CREATE TRIGGER IF NOT EXISTS trg_tasks_title_update
            BEFORE UPDATE OF title ON tasks
            FOR EACH ROW WHEN length(trim(NEW.title)) < 3 OR length(trim(NEW.title)) > 100
            BEGIN
                SELECT RAISE(ABORT, 'TL002: Title must be between 3 and 100 characters');
            END;`,
	}

	for _, stmt := range stmts {
		if _, err := s.provider.DB().Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// List returns one page of tasks in creation order together with the
// number of tasks matching the filter.
func (s *Store) List(ctx context.Context, q storage.ListQuery) ([]models.Task, int, error) {
	if err := storage.CheckPage(q); err != nil {
		return nil, 0, err
	}
	conn, err := s.provider.Open(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer conn.Close()

	filter := storage.NullBool(q.Completed)

	var total int
	if err := conn.QueryRowContext(ctx, spCountTasks, filter, filter).Scan(&total); err != nil {
		return nil, 0, s.translate("count tasks", err)
	}

	rows, err := conn.QueryContext(ctx, spGetAllTasks, filter, filter, q.PageSize, q.Offset())
	if err != nil {
		return nil, 0, s.translate("list tasks", err)
	}
	defer rows.Close()

	tasks := make([]models.Task, 0, q.PageSize)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, s.translate("list tasks", err)
	}

	s.logger.Debug("tasks listed",
		zap.Int("count", len(tasks)), zap.Int("page", q.PageNumber), zap.Int("total", total))
	return tasks, total, nil
}

// Get retrieves a task by id; a missing task yields nil without error.
func (s *Store) Get(ctx context.Context, id int64) (*models.Task, error) {
	conn, err := s.provider.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	t, err := scanTask(conn.QueryRowContext(ctx, spGetTaskByID, id))
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Warn("task not found", zap.Int64("id", id))
		return nil, nil
	}
	if err != nil {
		return nil, s.translate("get task", err)
	}
	return &t, nil
}

// Create inserts a new task; the title bounds are enforced by trigger.
func (s *Store) Create(ctx context.Context, title string, description *string) (models.Task, error) {
	conn, err := s.provider.Open(ctx)
	if err != nil {
		return models.Task{}, err
	}
	defer conn.Close()

	res, err := conn.ExecContext(ctx, spCreateTask, title, storage.NullString(description))
	if err != nil {
		return models.Task{}, s.translate("insert task", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Task{}, s.translate("task id", err)
	}

	t, err := scanTask(conn.QueryRowContext(ctx, spGetTaskByID, id))
	if err != nil {
		return models.Task{}, s.translate("read created task", err)
	}
	s.logger.Info("task created", zap.Int64("id", t.ID))
	return t, nil
}

// Update overwrites the mutable fields of a task; a missing task yields nil.
func (s *Store) Update(ctx context.Context, id int64, title string, description *string, isCompleted bool) (*models.Task, error) {
	conn, err := s.provider.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	res, err := conn.ExecContext(ctx, spUpdateTask, title, storage.NullString(description), isCompleted, id)
	if err != nil {
		return nil, s.translate("update task", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, s.translate("update task", err)
	}
	if affected == 0 {
		s.logger.Warn("task not found for update", zap.Int64("id", id))
		return nil, nil
	}

	t, err := scanTask(conn.QueryRowContext(ctx, spGetTaskByID, id))
	if err != nil {
		return nil, s.translate("read updated task", err)
	}
	s.logger.Info("task updated", zap.Int64("id", id))
	return &t, nil
}

// Delete removes a task by id and reports whether a row was removed.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	conn, err := s.provider.Open(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	res, err := conn.ExecContext(ctx, spDeleteTask, id)
	if err != nil {
		return false, s.translate("delete task", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, s.translate("delete task", err)
	}
	if affected == 0 {
		s.logger.Warn("task not found for deletion", zap.Int64("id", id))
		return false, nil
	}
	s.logger.Info("task deleted", zap.Int64("id", id))
	return true, nil
}

// translate classifies a driver error. Trigger aborts carry the contract
// code as a message prefix.
func (s *Store) translate(op string, err error) error {
	code, message := "", ""
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintTrigger {
		if c, m, ok := storage.SplitCodedMessage(sqliteErr.Error()); ok {
			code, message = c, m
		}
	}
	classified := storage.Classify(code, message, err)
	if classified.Kind == storage.KindStore {
		s.logger.Error("database error", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%s: %w", op, classified)
	}
	return classified
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (models.Task, error) {
	var (
		t           models.Task
		description sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Title, &description, &t.CreatedAt.Time, &t.IsCompleted); err != nil {
		return models.Task{}, err
	}
	t.Description = storage.StringPtr(description)
	return t, nil
}
