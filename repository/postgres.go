package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"

	"github.com/devskill-org/wh-mpc/domain"
)

// PostgresRepository implements ClientRepository and DecisionRepository
// against a Postgres database, storing the Client dict form as JSON in a
// clients table and one row per decision in a decisions table, grounded on
// the teacher's transaction + upsert-by-timestamp pattern.
type PostgresRepository struct {
	db     *sql.DB
	logger *log.Logger
}

// NewPostgresRepository opens a connection pool against dsn.
func NewPostgresRepository(dsn string, logger *log.Logger) (*PostgresRepository, error) {
	if logger == nil {
		logger = log.Default()
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("repository: open: %w", classify(err))
	}
	return &PostgresRepository{db: db, logger: logger}, nil
}

// Close releases the underlying connection pool.
func (r *PostgresRepository) Close() error { return r.db.Close() }

// Create inserts a new client row.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.Client) error {
	payload, err := json.Marshal(c.ToDict())
	if err != nil {
		return fmt.Errorf("repository: marshal client: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO clients (id, payload) VALUES ($1, $2)
	`, c.ClientID, payload)
	if err != nil {
		return fmt.Errorf("repository: create client %d: %w", c.ClientID, classify(err))
	}
	return nil
}

// Reconstitute loads a client by id.
func (r *PostgresRepository) Reconstitute(ctx context.Context, id int) (*domain.Client, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM clients WHERE id = $1`, id).Scan(&payload)
	if err != nil {
		return nil, fmt.Errorf("repository: reconstitute client %d: %w", id, classify(err))
	}
	var dict domain.ClientDict
	if err := json.Unmarshal(payload, &dict); err != nil {
		return nil, fmt.Errorf("repository: unmarshal client %d: %w", id, err)
	}
	return domain.ClientFromDict(dict)
}

// ListAll loads every client.
func (r *PostgresRepository) ListAll(ctx context.Context) ([]*domain.Client, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT payload FROM clients ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("repository: list clients: %w", classify(err))
	}
	defer rows.Close()

	var out []*domain.Client
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("repository: scan client row: %w", classify(err))
		}
		var dict domain.ClientDict
		if err := json.Unmarshal(payload, &dict); err != nil {
			return nil, fmt.Errorf("repository: unmarshal client: %w", err)
		}
		c, err := domain.ClientFromDict(dict)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: list clients: %w", classify(err))
	}
	return out, nil
}

// Update replaces a client row's payload.
func (r *PostgresRepository) Update(ctx context.Context, c *domain.Client) error {
	payload, err := json.Marshal(c.ToDict())
	if err != nil {
		return fmt.Errorf("repository: marshal client: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `UPDATE clients SET payload = $2 WHERE id = $1`, c.ClientID, payload)
	if err != nil {
		return fmt.Errorf("repository: update client %d: %w", c.ClientID, classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("repository: update client %d: %w", c.ClientID, classify(err))
	}
	if n == 0 {
		return fmt.Errorf("repository: update client %d: %w", c.ClientID, ErrNotFound)
	}
	return nil
}

// Delete removes a client row.
func (r *PostgresRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: delete client %d: %w", id, classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("repository: delete client %d: %w", id, classify(err))
	}
	if n == 0 {
		return fmt.Errorf("repository: delete client %d: %w", id, ErrNotFound)
	}
	return nil
}

// CreateDecision upserts a decision row keyed by (client_id, at), mirroring
// the teacher's ON CONFLICT upsert-by-timestamp pattern.
func (r *PostgresRepository) CreateDecision(ctx context.Context, clientID int, at time.Time, power float64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("repository: begin tx: %w", classify(err))
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO decisions (client_id, at, power) VALUES ($1, $2, $3)
		ON CONFLICT (client_id, at) DO UPDATE SET power = EXCLUDED.power
	`, clientID, at, power)
	if err != nil {
		return fmt.Errorf("repository: create decision for client %d: %w", clientID, classify(err))
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("repository: commit decision for client %d: %w", clientID, classify(err))
	}
	r.logger.Printf("saved decision for client %d at %s", clientID, at)
	return nil
}

// ListInRange returns decisions for a client within [from, to], ordered by
// instant.
func (r *PostgresRepository) ListInRange(ctx context.Context, clientID int, from, to time.Time) ([]Decision, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, client_id, at, power FROM decisions
		WHERE client_id = $1 AND at >= $2 AND at <= $3
		ORDER BY at
	`, clientID, from, to)
	if err != nil {
		return nil, fmt.Errorf("repository: list decisions for client %d: %w", clientID, classify(err))
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var d Decision
		if err := rows.Scan(&d.ID, &d.ClientID, &d.At, &d.Power); err != nil {
			return nil, fmt.Errorf("repository: scan decision row: %w", classify(err))
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: list decisions for client %d: %w", clientID, classify(err))
	}
	return out, nil
}

// UpdateDecision replaces a decision row's power value.
func (r *PostgresRepository) UpdateDecision(ctx context.Context, d Decision) error {
	res, err := r.db.ExecContext(ctx, `UPDATE decisions SET power = $2 WHERE id = $1`, d.ID, d.Power)
	if err != nil {
		return fmt.Errorf("repository: update decision %d: %w", d.ID, classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("repository: update decision %d: %w", d.ID, classify(err))
	}
	if n == 0 {
		return fmt.Errorf("repository: update decision %d: %w", d.ID, ErrNotFound)
	}
	return nil
}

// DeleteDecision removes a decision row by id.
func (r *PostgresRepository) DeleteDecision(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM decisions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: delete decision %d: %w", id, classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("repository: delete decision %d: %w", id, classify(err))
	}
	if n == 0 {
		return fmt.Errorf("repository: delete decision %d: %w", id, ErrNotFound)
	}
	return nil
}
