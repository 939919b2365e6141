package repository

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/procurekit/procurement-service/internal/requestid"
)

var (
	// ErrStaleStatus means a conditional status write found the ticket in a
	// different status than expected; a concurrent operation won the race.
	ErrStaleStatus = errors.New("repository: ticket status changed concurrently")
	// ErrDuplicateRequestID wraps requestid.ErrTaken so the generator retries.
	ErrDuplicateRequestID = fmt.Errorf("repository: duplicate request id: %w", requestid.ErrTaken)
)

const uniqueViolation = "23505"

// requestIDConstraint names the unique index on tickets.request_id.
const requestIDConstraint = "tickets_request_id_key"

// checkID rejects ids that cannot be a UUID key; such rows do not exist.
func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return pgx.ErrNoRows
	}
	return nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && (constraint == "" || pgErr.ConstraintName == constraint)
}
