// Package repository defines the persistence contracts for clients and
// decision logs (C15), plus a Postgres adapter grounded on the teacher's
// transaction + upsert-by-key pattern.
package repository

import (
	"context"
	"time"

	"github.com/devskill-org/wh-mpc/domain"
)

// Decision is one logged control decision: the heater power in watts
// delivered for a client at a given instant.
type Decision struct {
	ID       int64
	ClientID int
	At       time.Time
	Power    float64
}

// ClientRepository persists Client aggregates.
type ClientRepository interface {
	Create(ctx context.Context, c *domain.Client) error
	Reconstitute(ctx context.Context, id int) (*domain.Client, error)
	ListAll(ctx context.Context) ([]*domain.Client, error)
	Update(ctx context.Context, c *domain.Client) error
	Delete(ctx context.Context, id int) error
}

// DecisionRepository persists the per-client decision log.
type DecisionRepository interface {
	CreateDecision(ctx context.Context, clientID int, at time.Time, power float64) error
	ListInRange(ctx context.Context, clientID int, from, to time.Time) ([]Decision, error)
	UpdateDecision(ctx context.Context, d Decision) error
	DeleteDecision(ctx context.Context, id int64) error
}
