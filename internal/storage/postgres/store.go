package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"tasklist/internal/models"
	"tasklist/internal/storage"
)

const taskColumns = `id, title, description, create_date, is_completed`

// Store calls the task functions installed in Postgres.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

var _ storage.TaskStore = (*Store)(nil)

func Open(ctx context.Context, databaseURL string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := installProcedures(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool, logger: logger.Named("postgres")}, nil
}

func installProcedures(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id BIGSERIAL PRIMARY KEY,
			title VARCHAR(100) NOT NULL,
			description TEXT NULL,
			create_date TIMESTAMPTZ NOT NULL DEFAULT now(),
			is_completed BOOLEAN NOT NULL DEFAULT FALSE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_completed_created ON tasks (is_completed, create_date);`,
		`CREATE OR REPLACE FUNCTION sp_check_title(p_title TEXT) RETURNS TEXT AS $$
		BEGIN
			IF p_title IS NULL OR char_length(btrim(p_title)) NOT BETWEEN 3 AND 100 THEN
				RAISE EXCEPTION 'Title must be between 3 and 100 characters' USING ERRCODE = 'TL002';
			END IF;
			RETURN btrim(p_title);
		END;
		$$ LANGUAGE plpgsql IMMUTABLE;`,
		`CREATE OR REPLACE FUNCTION sp_count_tasks(p_completed BOOLEAN) RETURNS BIGINT AS $$
			SELECT count(*) FROM tasks WHERE p_completed IS NULL OR is_completed = p_completed;
		$$ LANGUAGE sql STABLE;`,
		`CREATE OR REPLACE FUNCTION sp_get_all_tasks(p_page_number INT, p_page_size INT, p_completed BOOLEAN)
		RETURNS SETOF tasks AS $$
			SELECT * FROM tasks
			 WHERE p_completed IS NULL OR is_completed = p_completed
			 ORDER BY create_date ASC, id ASC
			 LIMIT p_page_size OFFSET (p_page_number - 1) * p_page_size;
		$$ LANGUAGE sql STABLE;`,
		`CREATE OR REPLACE FUNCTION sp_get_task_by_id(p_id BIGINT) RETURNS SETOF tasks AS $$
			SELECT * FROM tasks WHERE id = p_id;
		$$ LANGUAGE sql STABLE;`,
		`CREATE OR REPLACE FUNCTION sp_create_task(p_title TEXT, p_description TEXT) RETURNS SETOF tasks AS $$
		BEGIN
			RETURN QUERY INSERT INTO tasks (title, description)
				VALUES (sp_check_title(p_title), p_description)
				RETURNING *;
		END;
		$$ LANGUAGE plpgsql;`,
		`CREATE OR REPLACE FUNCTION sp_update_task(p_id BIGINT, p_title TEXT, p_description TEXT, p_is_completed BOOLEAN)
		RETURNS SETOF tasks AS $$
		BEGIN
			IF NOT EXISTS (SELECT 1 FROM tasks WHERE id = p_id) THEN
				RAISE EXCEPTION 'Task not found' USING ERRCODE = 'TL001';
			END IF;
			RETURN QUERY UPDATE tasks
				SET title = sp_check_title(p_title), description = p_description, is_completed = p_is_completed
				WHERE id = p_id
				RETURNING *;
		END;
		$$ LANGUAGE plpgsql;`,
		`CREATE OR REPLACE FUNCTION sp_delete_task(p_id BIGINT) RETURNS INT AS $$
		DECLARE
			removed INT;
		BEGIN
			DELETE FROM tasks WHERE id = p_id;
			GET DIAGNOSTICS removed = ROW_COUNT;
			IF removed = 0 THEN
				RAISE EXCEPTION 'Task not found' USING ERRCODE = 'TL001';
			END IF;
			RETURN removed;
		END;
		$$ LANGUAGE plpgsql;`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("install task procedures failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// acquire checks out a dedicated connection; callers must Release it.
func (s *Store) acquire(ctx context.Context) (*pgxpool.Conn, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		s.logger.Error("failed to open database connection", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", storage.ErrConnection, err)
	}
	return conn, nil
}

func (s *Store) List(ctx context.Context, q storage.ListQuery) ([]models.Task, int, error) {
	if err := storage.CheckPage(q); err != nil {
		return nil, 0, err
	}
	conn, err := s.acquire(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer conn.Release()

	var total int64
	if err := conn.QueryRow(ctx, `SELECT sp_count_tasks($1)`, q.Completed).Scan(&total); err != nil {
		return nil, 0, s.translate("count tasks", err)
	}

	rows, err := conn.Query(ctx,
		`SELECT `+taskColumns+` FROM sp_get_all_tasks($1, $2, $3)`,
		q.PageNumber, q.PageSize, q.Completed,
	)
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
		zap.Int("count", len(tasks)), zap.Int("page", q.PageNumber), zap.Int64("total", total))
	return tasks, int(total), nil
}

func (s *Store) Get(ctx context.Context, id int64) (*models.Task, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	t, err := scanTask(conn.QueryRow(ctx, `SELECT `+taskColumns+` FROM sp_get_task_by_id($1)`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		s.logger.Warn("task not found", zap.Int64("id", id))
		return nil, nil
	}
	if err != nil {
		return nil, s.translate("get task", err)
	}
	return &t, nil
}

func (s *Store) Create(ctx context.Context, title string, description *string) (models.Task, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return models.Task{}, err
	}
	defer conn.Release()

	t, err := scanTask(conn.QueryRow(ctx, `SELECT `+taskColumns+` FROM sp_create_task($1, $2)`, title, description))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Task{}, fmt.Errorf("create task: no data returned")
	}
	if err != nil {
		return models.Task{}, s.translate("create task", err)
	}
	s.logger.Info("task created", zap.Int64("id", t.ID))
	return t, nil
}

func (s *Store) Update(ctx context.Context, id int64, title string, description *string, isCompleted bool) (*models.Task, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	t, err := scanTask(conn.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM sp_update_task($1, $2, $3, $4)`,
		id, title, description, isCompleted,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		s.logger.Warn("task not found for update", zap.Int64("id", id))
		return nil, nil
	}
	if err != nil {
		err = s.translate("update task", err)
		if isNotFound(err) {
			s.logger.Warn("task not found for update", zap.Int64("id", id))
			return nil, nil
		}
		return nil, err
	}
	s.logger.Info("task updated", zap.Int64("id", id))
	return &t, nil
}

func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Release()

	var removed int
	if err := conn.QueryRow(ctx, `SELECT sp_delete_task($1)`, id).Scan(&removed); err != nil {
		err = s.translate("delete task", err)
		if isNotFound(err) {
			s.logger.Warn("task not found for deletion", zap.Int64("id", id))
			return false, nil
		}
		return false, err
	}
	s.logger.Info("task deleted", zap.Int64("id", id))
	return removed == 1, nil
}

// translate classifies a pgx error by its SQLSTATE.
func (s *Store) translate(op string, err error) error {
	classified := classify(err)
	if classified.Kind == storage.KindStore {
		s.logger.Error("database error", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%s: %w", op, classified)
	}
	return classified
}

func classify(err error) *storage.Error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return storage.Classify(pgErr.Code, pgErr.Message, err)
	}
	return storage.Classify("", "", err)
}

func isNotFound(err error) bool {
	var se *storage.Error
	return errors.As(err, &se) && se.Kind == storage.KindNotFound
}

func scanTask(row pgx.Row) (models.Task, error) {
	var t models.Task
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.CreatedAt.Time, &t.IsCompleted); err != nil {
		return models.Task{}, err
	}
	return t, nil
}
