// Package query describes which stored documents an operation applies to.
//
// A Filter is either All, which matches every document of a collection, or
// a set of fields compared by exact equality. Storage backends translate a
// Filter into their own predicate language.
package query

import (
	"strings"

	"github.com/google/uuid"

	"github.com/toobased/socials-backend/internal/apperr"
)

// IDField is the document field holding the identifier.
const IDField = "id"

type kind uint8

const (
	kindAll kind = iota
	kindFields
)

type Field struct {
	Name  string
	Value any
}

type Filter struct {
	kind   kind
	fields []Field
}

// All matches every document.
func All() Filter {
	return Filter{kind: kindAll}
}

// ByID matches the single document with the given identifier.
func ByID(id string) Filter {
	return Filter{kind: kindFields, fields: []Field{{Name: IDField, Value: id}}}
}

// Where builds an equality filter. With no fields it is All.
func Where(fields ...Field) Filter {
	if len(fields) == 0 {
		return All()
	}
	copied := make([]Field, len(fields))
	copy(copied, fields)
	return Filter{kind: kindFields, fields: copied}
}

func (f Filter) IsAll() bool {
	return f.kind == kindAll
}

func (f Filter) Fields() []Field {
	if f.kind == kindAll {
		return nil
	}
	out := make([]Field, len(f.fields))
	copy(out, f.fields)
	return out
}

// ID reports the identifier when the filter is an identifier-only match.
func (f Filter) ID() (string, bool) {
	if f.kind != kindFields || len(f.fields) != 1 || f.fields[0].Name != IDField {
		return "", false
	}
	id, ok := f.fields[0].Value.(string)
	return id, ok
}

// Builder collects the optional fields of a typed query.
type Builder struct {
	fields []Field
}

func (b *Builder) Add(name string, value any) {
	b.fields = append(b.fields, Field{Name: name, Value: value})
}

func (b *Builder) AddString(name string, value *string) {
	if value == nil {
		return
	}
	b.Add(name, *value)
}

func (b *Builder) Filter() Filter {
	return Where(b.fields...)
}

// ParseID validates an identifier and returns it in canonical form.
func ParseID(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", apperr.Validationf("missing id")
	}
	id, err := uuid.Parse(trimmed)
	if err != nil {
		return "", apperr.Validationf("malformed id %q", raw)
	}
	return id.String(), nil
}

// NewID generates a fresh identifier.
func NewID() string {
	return uuid.NewString()
}
