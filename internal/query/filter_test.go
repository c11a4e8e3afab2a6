package query

import (
	"errors"
	"testing"

	"github.com/toobased/socials-backend/internal/apperr"
)

func TestWhereWithoutFieldsIsAll(t *testing.T) {
	if !Where().IsAll() {
		t.Fatalf("expected empty Where to match all")
	}
	if !All().IsAll() {
		t.Fatalf("expected All to match all")
	}
	if len(All().Fields()) != 0 {
		t.Fatalf("expected All to have no fields")
	}
}

func TestByIDShortCircuits(t *testing.T) {
	id := NewID()
	f := ByID(id)
	if f.IsAll() {
		t.Fatalf("expected ByID to constrain")
	}
	got, ok := f.ID()
	if !ok || got != id {
		t.Fatalf("expected id %q, got %q (ok=%v)", id, got, ok)
	}

	multi := Where(Field{Name: IDField, Value: id}, Field{Name: "platform", Value: "vk"})
	if _, ok := multi.ID(); ok {
		t.Fatalf("expected multi-field filter not to report a single id")
	}
}

func TestFieldsAreCopied(t *testing.T) {
	fields := []Field{{Name: "status", Value: "active"}}
	f := Where(fields...)
	fields[0].Value = "paused"
	if f.Fields()[0].Value != "active" {
		t.Fatalf("expected filter to own its fields")
	}
}

func TestBuilderSkipsUnsetFields(t *testing.T) {
	var b Builder
	username := "bot"
	b.AddString("username", &username)
	b.AddString("platform", nil)
	f := b.Filter()
	fields := f.Fields()
	if len(fields) != 1 || fields[0].Name != "username" || fields[0].Value != "bot" {
		t.Fatalf("unexpected fields %+v", fields)
	}

	var empty Builder
	if !empty.Filter().IsAll() {
		t.Fatalf("expected empty builder to match all")
	}
}

func TestParseID(t *testing.T) {
	id, err := ParseID(" 6F9619FF-8B86-D011-B42D-00C04FC964FF ")
	if err != nil {
		t.Fatalf("parse id: %v", err)
	}
	if id != "6f9619ff-8b86-d011-b42d-00c04fc964ff" {
		t.Fatalf("expected canonical id, got %q", id)
	}

	for _, raw := range []string{"", "42", "not-a-uuid"} {
		if _, err := ParseID(raw); !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("expected validation error for %q, got %v", raw, err)
		}
	}
}
