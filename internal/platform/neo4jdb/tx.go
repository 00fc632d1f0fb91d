package neo4jdb

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Tx is the slice of a Neo4j transaction the stores need. Both
// neo4j.ExplicitTransaction (edge layer opens/commits) and
// neo4j.ManagedTransaction (ExecuteRead/ExecuteWrite closures) satisfy it.
type Tx interface {
	Run(ctx context.Context, cypher string, params map[string]any) (neo4j.ResultWithContext, error)
}

var tracer trace.Tracer = otel.Tracer("github.com/avionde/odp-backend/internal/platform/neo4jdb")

// Run executes one statement and buffers all records. op names the span.
func Run(ctx context.Context, tx Tx, op, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("db.system", "neo4j"),
	))
	defer span.End()

	res, err := tx.Run(ctx, cypher, params)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	records, err := res.Collect(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("db.rows", len(records)))
	return records, nil
}

// Single is Run for statements expected to yield at most one row. Returns
// (nil, nil) when the statement matched nothing.
func Single(ctx context.Context, tx Tx, op, cypher string, params map[string]any) (*neo4j.Record, error) {
	records, err := Run(ctx, tx, op, cypher, params)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// Exec is Run for write statements whose result rows are irrelevant.
func Exec(ctx context.Context, tx Tx, op, cypher string, params map[string]any) error {
	_, err := Run(ctx, tx, op, cypher, params)
	return err
}

// WithWriteTx runs fn inside one write transaction with commit/rollback
// handled by the driver. Used by startup tasks and tests; request-scoped
// transactions are opened explicitly by the edge layer.
func (c *Client) WithWriteTx(ctx context.Context, fn func(tx Tx) error) error {
	session := c.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.Database,
	})
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(tx)
	})
	return err
}

// WithReadTx is WithWriteTx for read-only work.
func (c *Client) WithReadTx(ctx context.Context, fn func(tx Tx) error) error {
	session := c.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: c.Database,
	})
	defer session.Close(ctx)
	_, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(tx)
	})
	return err
}

// BeginTx opens an explicit transaction for the edge layer: one per inbound
// request, committed or rolled back by the caller. The returned session must
// be closed after the transaction finishes.
func (c *Client) BeginTx(ctx context.Context, mode neo4j.AccessMode) (neo4j.ExplicitTransaction, neo4j.SessionWithContext, error) {
	session := c.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: c.Database,
	})
	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		_ = session.Close(ctx)
		return nil, nil, err
	}
	return tx, session, nil
}
