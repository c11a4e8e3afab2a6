package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/toobased/socials-backend/internal/apperr"
	"github.com/toobased/socials-backend/internal/query"
)

// SQLiteCollection stores documents as JSON text, one table per collection.
type SQLiteCollection[T Document] struct {
	db    *sql.DB
	table string
}

func NewSQLiteCollection[T Document](db *sql.DB, table string) *SQLiteCollection[T] {
	return &SQLiteCollection[T]{db: db, table: table}
}

var _ Collection[Document] = (*SQLiteCollection[Document])(nil)

func (c *SQLiteCollection[T]) Find(ctx context.Context, filter query.Filter) ([]T, error) {
	return c.find(ctx, filter, 0)
}

func (c *SQLiteCollection[T]) FindOne(ctx context.Context, filter query.Filter) (*T, error) {
	docs, err := c.find(ctx, filter, 1)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return &docs[0], nil
}

func (c *SQLiteCollection[T]) FindByID(ctx context.Context, id string) (*T, error) {
	return c.FindOne(ctx, query.ByID(id))
}

func (c *SQLiteCollection[T]) InsertOne(ctx context.Context, doc T) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s document: %w", c.table, err)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (id, doc) VALUES (?, ?)", c.table)
	if _, err := c.db.ExecContext(ctx, stmt, doc.DocID(), string(payload)); err != nil {
		return apperr.Upstream("insert into "+c.table, err)
	}
	return nil
}

func (c *SQLiteCollection[T]) UpdateByID(ctx context.Context, id string, doc T) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s document: %w", c.table, err)
	}
	stmt := fmt.Sprintf("UPDATE %s SET doc = ? WHERE id = ?", c.table)
	res, err := c.db.ExecContext(ctx, stmt, string(payload), id)
	if err != nil {
		return apperr.Upstream("update "+c.table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperr.Upstream("update "+c.table, err)
	}
	if affected == 0 {
		return apperr.NotFoundf("%s %s", c.table, id)
	}
	return nil
}

func (c *SQLiteCollection[T]) DeleteMany(ctx context.Context, filter query.Filter) (int64, error) {
	where, args, err := sqliteWhere(filter)
	if err != nil {
		return 0, err
	}
	res, err := c.db.ExecContext(ctx, "DELETE FROM "+c.table+where, args...)
	if err != nil {
		return 0, apperr.Upstream("delete from "+c.table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, apperr.Upstream("delete from "+c.table, err)
	}
	return affected, nil
}

func (c *SQLiteCollection[T]) find(ctx context.Context, filter query.Filter, limit int) ([]T, error) {
	where, args, err := sqliteWhere(filter)
	if err != nil {
		return nil, err
	}
	stmt := "SELECT doc FROM " + c.table + where + " ORDER BY seq"
	if limit > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := c.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, apperr.Upstream("find in "+c.table, err)
	}
	defer rows.Close()

	docs := make([]T, 0)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, apperr.Upstream("scan "+c.table, err)
		}
		var doc T
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("decode %s document: %w", c.table, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Upstream("find in "+c.table, err)
	}
	return docs, nil
}

// sqliteWhere translates a filter into a WHERE clause over the JSON document.
func sqliteWhere(filter query.Filter) (string, []any, error) {
	if filter.IsAll() {
		return "", nil, nil
	}
	if err := checkFields(filter); err != nil {
		return "", nil, err
	}

	fields := filter.Fields()
	conds := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields))
	for _, field := range fields {
		if field.Name == query.IDField {
			conds = append(conds, "id = ?")
		} else {
			conds = append(conds, fmt.Sprintf("json_extract(doc, '$.%s') = ?", field.Name))
		}
		args = append(args, sqliteValue(field.Value))
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// json_extract yields 1/0 for JSON booleans.
func sqliteValue(value any) any {
	if b, ok := value.(bool); ok {
		if b {
			return 1
		}
		return 0
	}
	return value
}
