package db

import (
	"context"
	"fmt"
	"regexp"

	"github.com/toobased/socials-backend/internal/query"
)

// Document is a stored entity that carries its own identifier.
type Document interface {
	DocID() string
}

// Collection is the contract every resource needs from storage.
//
// Find returns matches in storage order, which is insertion order for the
// SQL backends and unspecified for MongoDB. FindOne and FindByID report
// absence as a nil document with a nil error. UpdateByID replaces the whole
// document and fails with apperr.ErrNotFound when the id is unknown.
// DeleteMany removes every match and returns how many were removed.
type Collection[T Document] interface {
	Find(ctx context.Context, filter query.Filter) ([]T, error)
	FindOne(ctx context.Context, filter query.Filter) (*T, error)
	FindByID(ctx context.Context, id string) (*T, error)
	InsertOne(ctx context.Context, doc T) error
	UpdateByID(ctx context.Context, id string, doc T) error
	DeleteMany(ctx context.Context, filter query.Filter) (int64, error)
}

var fieldNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func checkFields(filter query.Filter) error {
	for _, field := range filter.Fields() {
		if !fieldNamePattern.MatchString(field.Name) {
			return fmt.Errorf("invalid filter field %q", field.Name)
		}
	}
	return nil
}
