// Package storage defines the task store contract shared by the database
// backends and the classification of backend errors.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"tasklist/internal/models"
)

// Error codes raised by the stored procedures (contract v1). Every backend
// reports these codes natively: SQLSTATE in Postgres, a message prefix from
// SQLite triggers and MYSQL_ERRNO in MySQL (see MySQLErrno).
const (
	CodeTaskNotFound = "TL001"
	CodeTitleLength  = "TL002"
)

// MySQLErrno maps the MySQL SIGNAL error numbers onto contract codes.
var MySQLErrno = map[uint16]string{
	50001: CodeTaskNotFound,
	50002: CodeTitleLength,
}

// ErrConnection marks failures to obtain a database connection.
var ErrConnection = errors.New("unable to connect to the database")

// Kind tags a classified store error.
type Kind int

const (
	KindStore Kind = iota
	KindNotFound
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	default:
		return "store"
	}
}

// Error is a backend error translated into the store taxonomy.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Kind == KindValidation {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Classify maps a contract code reported by a backend to a store error.
func Classify(code, message string, cause error) *Error {
	switch code {
	case CodeTaskNotFound:
		return &Error{Kind: KindNotFound, Message: "task not found", Err: cause}
	case CodeTitleLength:
		if message == "" {
			message = fmt.Sprintf("Title must be between %d and %d characters", models.TitleMinLength, models.TitleMaxLength)
		}
		return &Error{Kind: KindValidation, Field: "title", Message: message, Err: cause}
	default:
		return &Error{Kind: KindStore, Message: "store failure", Err: cause}
	}
}

// SplitCodedMessage separates "TL002: message" into its code and message.
func SplitCodedMessage(text string) (string, string, bool) {
	code, message, ok := strings.Cut(text, ":")
	if !ok || !strings.HasPrefix(code, "TL") || len(code) != len(CodeTaskNotFound) {
		return "", text, false
	}
	return code, strings.TrimSpace(message), true
}

// AsValidation reports whether err is a store-side validation failure.
func AsValidation(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) && se.Kind == KindValidation {
		return se, true
	}
	return nil, false
}

// ListQuery selects one page of tasks.
type ListQuery struct {
	PageNumber int
	PageSize   int
	Completed  *bool
}

// MaxOffset is the largest row offset the procedures accept (INT parameters).
const MaxOffset = math.MaxInt32

// Offset returns the number of rows to skip.
func (q ListQuery) Offset() int {
	if q.PageNumber < 1 {
		return 0
	}
	return (q.PageNumber - 1) * q.PageSize
}

// InRange reports whether the page can be addressed without overflowing
// the procedures' offset parameter.
func (q ListQuery) InRange() bool {
	if q.PageNumber < 1 || q.PageSize < 1 || q.PageNumber > MaxOffset {
		return false
	}
	return q.PageNumber-1 <= MaxOffset/q.PageSize
}

// CheckPage rejects pages that InRange refuses as a validation error.
func CheckPage(q ListQuery) error {
	if q.InRange() {
		return nil
	}
	return &Error{Kind: KindValidation, Field: "pageNumber", Message: "Page number is out of range"}
}

// TaskStore executes the task procedures against a backend.
type TaskStore interface {
	List(ctx context.Context, q ListQuery) ([]models.Task, int, error)
	Get(ctx context.Context, id int64) (*models.Task, error)
	Create(ctx context.Context, title string, description *string) (models.Task, error)
	Update(ctx context.Context, id int64, title string, description *string, isCompleted bool) (*models.Task, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Close() error
}

// SQLProvider hands out dedicated connections from a database/sql pool.
type SQLProvider struct {
	db *sql.DB
}

func NewSQLProvider(db *sql.DB) *SQLProvider {
	return &SQLProvider{db: db}
}

// Open returns a new connection; the caller must Close it.
func (p *SQLProvider) Open(ctx context.Context) (*sql.Conn, error) {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return conn, nil
}

// DB exposes the underlying pool for schema installation.
func (p *SQLProvider) DB() *sql.DB {
	return p.db
}

func (p *SQLProvider) Close() error {
	if p.db == nil {
		return nil
	}
	return p.db.Close()
}

// NullString converts an optional string into a nullable SQL parameter.
func NullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

// NullBool converts an optional filter into a nullable SQL parameter.
func NullBool(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}

// StringPtr converts a nullable column back into an optional string.
func StringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
