// Package store is the Postgres persistence layer. Soft-deleted rows carry
// their deletion time in deleted_at; live rows carry models.DeletedSentinel.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	apperrors "hris-cloud/internal/common/errors"
	"hris-cloud/internal/common/logger"
	"hris-cloud/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrNotFound          = errors.New("NOT_FOUND")
	ErrStatusConflict    = errors.New("STATUS_CONFLICT")
	ErrDuplicateEmployee = errors.New("DUPLICATE_EMPLOYEE")
)

const uniqueViolation = "23505"

type Store struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
	newID  func() string
}

func New(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.Component(log, "store"),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// DB exposes the pool for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

var live = models.DeletedSentinel

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func queryFailed(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeoutError("postgres", err)
	}
	return apperrors.NewDatabaseQueryFailedError(op, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func checkAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return queryFailed(op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return queryFailed("begin transaction", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warn("rollback failed", map[string]interface{}{"error": rbErr})
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return queryFailed("commit transaction", err)
	}
	return nil
}

func wrapNotFound(err error, what string) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}
