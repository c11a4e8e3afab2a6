package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/toobased/socials-backend/internal/apperr"
	"github.com/toobased/socials-backend/internal/query"
)

func OpenPostgres(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	if connStr == "" {
		return nil, fmt.Errorf("postgres url is required")
	}
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := applyPostgresSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func applyPostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	schemaSQL, err := schemaFS.ReadFile("schema_postgres.sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	if _, err := pool.Exec(ctx, string(schemaSQL)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// PostgresCollection stores documents as JSONB and matches with containment.
type PostgresCollection[T Document] struct {
	pool  *pgxpool.Pool
	table string
}

func NewPostgresCollection[T Document](pool *pgxpool.Pool, table string) *PostgresCollection[T] {
	return &PostgresCollection[T]{pool: pool, table: table}
}

var _ Collection[Document] = (*PostgresCollection[Document])(nil)

func (c *PostgresCollection[T]) Find(ctx context.Context, filter query.Filter) ([]T, error) {
	return c.find(ctx, filter, 0)
}

func (c *PostgresCollection[T]) FindOne(ctx context.Context, filter query.Filter) (*T, error) {
	docs, err := c.find(ctx, filter, 1)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return &docs[0], nil
}

func (c *PostgresCollection[T]) FindByID(ctx context.Context, id string) (*T, error) {
	return c.FindOne(ctx, query.ByID(id))
}

func (c *PostgresCollection[T]) InsertOne(ctx context.Context, doc T) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s document: %w", c.table, err)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (id, doc) VALUES ($1, $2::jsonb)", c.table)
	if _, err := c.pool.Exec(ctx, stmt, doc.DocID(), string(payload)); err != nil {
		return apperr.Upstream("insert into "+c.table, err)
	}
	return nil
}

func (c *PostgresCollection[T]) UpdateByID(ctx context.Context, id string, doc T) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s document: %w", c.table, err)
	}
	stmt := fmt.Sprintf("UPDATE %s SET doc = $1::jsonb WHERE id = $2", c.table)
	tag, err := c.pool.Exec(ctx, stmt, string(payload), id)
	if err != nil {
		return apperr.Upstream("update "+c.table, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("%s %s", c.table, id)
	}
	return nil
}

func (c *PostgresCollection[T]) DeleteMany(ctx context.Context, filter query.Filter) (int64, error) {
	where, args, err := postgresWhere(filter)
	if err != nil {
		return 0, err
	}
	tag, err := c.pool.Exec(ctx, "DELETE FROM "+c.table+where, args...)
	if err != nil {
		return 0, apperr.Upstream("delete from "+c.table, err)
	}
	return tag.RowsAffected(), nil
}

func (c *PostgresCollection[T]) find(ctx context.Context, filter query.Filter, limit int) ([]T, error) {
	where, args, err := postgresWhere(filter)
	if err != nil {
		return nil, err
	}
	stmt := "SELECT doc::text FROM " + c.table + where + " ORDER BY seq"
	if limit > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := c.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, apperr.Upstream("find in "+c.table, err)
	}
	raws, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, apperr.Upstream("find in "+c.table, err)
	}

	docs := make([]T, 0, len(raws))
	for _, raw := range raws {
		var doc T
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("decode %s document: %w", c.table, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// postgresWhere expresses field equality as JSONB containment.
func postgresWhere(filter query.Filter) (string, []any, error) {
	if filter.IsAll() {
		return "", nil, nil
	}
	if err := checkFields(filter); err != nil {
		return "", nil, err
	}
	probe := make(map[string]any)
	for _, field := range filter.Fields() {
		probe[field.Name] = field.Value
	}
	payload, err := json.Marshal(probe)
	if err != nil {
		return "", nil, fmt.Errorf("encode filter: %w", err)
	}
	return " WHERE doc @> $1::jsonb", []any{string(payload)}, nil
}
