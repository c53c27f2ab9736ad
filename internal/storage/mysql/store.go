package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"tasklist/internal/models"
	"tasklist/internal/storage"
)

// Store calls the task stored procedures installed in MySQL.
type Store struct {
	provider *storage.SQLProvider
	logger   *zap.Logger
}

var _ storage.TaskStore = (*Store)(nil)

func Open(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg, err := normalizeDSN(dsn)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", storage.ErrConnection, err)
	}

	s := &Store{provider: storage.NewSQLProvider(db), logger: logger.Named("mysql")}
	if err := s.installProcedures(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// normalizeDSN forces the driver options the store depends on.
func normalizeDSN(dsn string) (*mysql.Config, error) {
	cfg, err := mysql.ParseDSN(strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	if cfg.Loc == nil {
		cfg.Loc = time.UTC
	}
	return cfg, nil
}

var procedures = map[string]string{
	"sp_GetAllTasks": `CREATE PROCEDURE sp_GetAllTasks(IN p_page_number INT, IN p_page_size INT, IN p_completed BOOLEAN)
BEGIN
	DECLARE v_offset INT DEFAULT (p_page_number - 1) * p_page_size;
	SELECT COUNT(*) AS total_count FROM tasks WHERE p_completed IS NULL OR is_completed = p_completed;
	SELECT id, title, description, create_date, is_completed FROM tasks
	 WHERE p_completed IS NULL OR is_completed = p_completed
	 ORDER BY create_date ASC, id ASC
	 LIMIT p_page_size OFFSET v_offset;
END`,
	"sp_GetTaskById": `CREATE PROCEDURE sp_GetTaskById(IN p_id BIGINT)
BEGIN
	SELECT id, title, description, create_date, is_completed FROM tasks WHERE id = p_id;
END`,
	"sp_CreateTask": `CREATE PROCEDURE sp_CreateTask(IN p_title TEXT, IN p_description TEXT)
BEGIN
	DECLARE v_title TEXT DEFAULT TRIM(p_title);
	IF v_title IS NULL OR CHAR_LENGTH(v_title) < 3 OR CHAR_LENGTH(v_title) > 100 THEN
		SIGNAL SQLSTATE '45000' SET MYSQL_ERRNO = 50002, MESSAGE_TEXT = 'Title must be between 3 and 100 characters';
	END IF;
	INSERT INTO tasks (title, description) VALUES (v_title, p_description);
	SELECT id, title, description, create_date, is_completed FROM tasks WHERE id = LAST_INSERT_ID();
END`,
	"sp_UpdateTask": `CREATE PROCEDURE sp_UpdateTask(IN p_id BIGINT, IN p_title TEXT, IN p_description TEXT, IN p_is_completed BOOLEAN)
BEGIN
	DECLARE v_title TEXT DEFAULT TRIM(p_title);
	IF NOT EXISTS (SELECT 1 FROM tasks WHERE id = p_id) THEN
		SIGNAL SQLSTATE '45000' SET MYSQL_ERRNO = 50001, MESSAGE_TEXT = 'Task not found';
	END IF;
	IF v_title IS NULL OR CHAR_LENGTH(v_title) < 3 OR CHAR_LENGTH(v_title) > 100 THEN
		SIGNAL SQLSTATE '45000' SET MYSQL_ERRNO = 50002, MESSAGE_TEXT = 'Title must be between 3 and 100 characters';
	END IF;
	UPDATE tasks SET title = v_title, description = p_description, is_completed = p_is_completed WHERE id = p_id;
	SELECT id, title, description, create_date, is_completed FROM tasks WHERE id = p_id;
END`,
	"sp_DeleteTask": `CREATE PROCEDURE sp_DeleteTask(IN p_id BIGINT)
BEGIN
	DELETE FROM tasks WHERE id = p_id;
	IF ROW_COUNT() = 0 THEN
		SIGNAL SQLSTATE '45000' SET MYSQL_ERRNO = 50001, MESSAGE_TEXT = 'Task not found';
	END IF;
	SELECT 1 AS deleted;
END`,
}

func (s *Store) installProcedures(ctx context.Context) error {
	db := s.provider.DB()
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS tasks (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		title VARCHAR(100) NOT NULL,
		description TEXT NULL,
		create_date DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		is_completed BOOLEAN NOT NULL DEFAULT FALSE,
		INDEX idx_tasks_completed_created (is_completed, create_date)
	)`); err != nil {
		return fmt.Errorf("create tasks table: %w", err)
	}

	for _, name := range []string{"sp_GetAllTasks", "sp_GetTaskById", "sp_CreateTask", "sp_UpdateTask", "sp_DeleteTask"} {
		if _, err := db.ExecContext(ctx, "DROP PROCEDURE IF EXISTS "+name); err != nil {
			return fmt.Errorf("drop procedure %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, procedures[name]); err != nil {
			return fmt.Errorf("create procedure %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.provider.Close()
}

func (s *Store) List(ctx context.Context, q storage.ListQuery) ([]models.Task, int, error) {
	if err := storage.CheckPage(q); err != nil {
		return nil, 0, err
	}
	conn, err := s.provider.Open(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, `CALL sp_GetAllTasks(?, ?, ?)`,
		q.PageNumber, q.PageSize, storage.NullBool(q.Completed))
	if err != nil {
		return nil, 0, s.translate("list tasks", err)
	}
	defer rows.Close()

	var total int
	if rows.Next() {
		if err := rows.Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("scan total: %w", err)
		}
	}

	tasks := make([]models.Task, 0, q.PageSize)
	if rows.NextResultSet() {
		for rows.Next() {
			t, err := scanTask(rows)
			if err != nil {
				return nil, 0, fmt.Errorf("scan task: %w", err)
			}
			tasks = append(tasks, t)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, 0, s.translate("list tasks", err)
	}

	s.logger.Debug("tasks listed",
		zap.Int("count", len(tasks)), zap.Int("page", q.PageNumber), zap.Int("total", total))
	return tasks, total, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*models.Task, error) {
	conn, err := s.provider.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	t, err := scanTask(conn.QueryRowContext(ctx, `CALL sp_GetTaskById(?)`, id))
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Warn("task not found", zap.Int64("id", id))
		return nil, nil
	}
	if err != nil {
		return nil, s.translate("get task", err)
	}
	return &t, nil
}

func (s *Store) Create(ctx context.Context, title string, description *string) (models.Task, error) {
	conn, err := s.provider.Open(ctx)
	if err != nil {
		return models.Task{}, err
	}
	defer conn.Close()

	t, err := scanTask(conn.QueryRowContext(ctx, `CALL sp_CreateTask(?, ?)`, title, storage.NullString(description)))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, fmt.Errorf("create task: no data returned")
	}
	if err != nil {
		return models.Task{}, s.translate("create task", err)
	}
	s.logger.Info("task created", zap.Int64("id", t.ID))
	return t, nil
}

func (s *Store) Update(ctx context.Context, id int64, title string, description *string, isCompleted bool) (*models.Task, error) {
	conn, err := s.provider.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	t, err := scanTask(conn.QueryRowContext(ctx, `CALL sp_UpdateTask(?, ?, ?, ?)`,
		id, title, storage.NullString(description), isCompleted))
	if err == nil {
		s.logger.Info("task updated", zap.Int64("id", id))
		return &t, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		err = s.translate("update task", err)
		if !isNotFound(err) {
			return nil, err
		}
	}
	s.logger.Warn("task not found for update", zap.Int64("id", id))
	return nil, nil
}

func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	conn, err := s.provider.Open(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	var deleted int
	err = conn.QueryRowContext(ctx, `CALL sp_DeleteTask(?)`, id).Scan(&deleted)
	if err == nil {
		s.logger.Info("task deleted", zap.Int64("id", id))
		return deleted == 1, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		err = s.translate("delete task", err)
		if !isNotFound(err) {
			return false, err
		}
	}
	s.logger.Warn("task not found for deletion", zap.Int64("id", id))
	return false, nil
}

// translate classifies a driver error by its MYSQL_ERRNO.
func (s *Store) translate(op string, err error) error {
	classified := classify(err)
	if classified.Kind == storage.KindStore {
		s.logger.Error("database error", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%s: %w", op, classified)
	}
	return classified
}

func classify(err error) *storage.Error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return storage.Classify(storage.MySQLErrno[myErr.Number], myErr.Message, err)
	}
	return storage.Classify("", "", err)
}

func isNotFound(err error) bool {
	var se *storage.Error
	return errors.As(err, &se) && se.Kind == storage.KindNotFound
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
