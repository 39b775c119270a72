// Package pgstore provides a PostgreSQL implementation of contacts.Store.
// Contact rows are managed out-of-band (ops tooling, companion app); the
// engine only reads them.
package pgstore

import (
	"context"
	_ "embed"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/guardian/internal/contacts"
)

var tracer = otel.Tracer("github.com/linnemanlabs/guardian/internal/contacts/pgstore")

//go:embed schema.sql
var schema string

// Store reads emergency contacts from PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema and returns a ready Store over the given pool.
// The caller owns the pool lifecycle.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// List returns all contacts ordered by creation time.
func (s *Store) List(ctx context.Context) ([]contacts.Contact, error) {
	ctx, span := tracer.Start(ctx, "pgstore.List", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT id, name, phone, relationship, chat_opt_in
		 FROM emergency_contacts ORDER BY created_at`)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query contacts: %w", err)
	}
	defer rows.Close()

	var out []contacts.Contact
	for rows.Next() {
		var c contacts.Contact
		var relationship *string
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &relationship, &c.ChatOptIn); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		if relationship != nil {
			c.Relationship = *relationship
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}

	span.SetAttributes(attribute.Int("guardian.contacts.count", len(out)))
	return out, nil
}

// Upsert inserts or updates a contact row. Exposed for seeding and tests;
// the dispatch path never writes contacts.
func (s *Store) Upsert(ctx context.Context, c contacts.Contact) error {
	ctx, span := tracer.Start(ctx, "pgstore.Upsert", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO emergency_contacts (id, name, phone, relationship, chat_opt_in)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
			name         = EXCLUDED.name,
			phone        = EXCLUDED.phone,
			relationship = EXCLUDED.relationship,
			chat_opt_in  = EXCLUDED.chat_opt_in`,
		c.ID, c.Name, c.Phone, nullable(c.Relationship), c.ChatOptIn,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert contact: %w", err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
