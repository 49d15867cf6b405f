package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// Sentinel errors per the persistence error taxonomy: connection failures,
// integrity violations (unique/foreign key constraints), and not-found
// lookups are distinguished so callers can react differently (retry,
// surface a conflict, 404).
var (
	ErrConnection = errors.New("repository: connection error")
	ErrIntegrity  = errors.New("repository: integrity violation")
	ErrNotFound   = errors.New("repository: not found")
)

// classify maps a raw database/sql or lib/pq error onto the taxonomy above.
// It returns the bare sentinel; the original error is not wrapped. Errors
// that match no other class are reported as ErrConnection.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "23": // integrity_constraint_violation
			return ErrIntegrity
		case "08": // connection_exception
			return ErrConnection
		}
	}
	return ErrConnection
}
