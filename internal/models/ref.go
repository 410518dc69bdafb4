package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Ref points at another record. It is either unresolved (only ID is set) or
// resolved (Resolved holds the loaded record and ID its identifier).
type Ref[T any] struct {
	ID       uuid.UUID `db:"-" validate:"-"`
	Resolved *T        `db:"-" validate:"-"`
}

// NewRef returns an unresolved reference to id.
func NewRef[T any](id uuid.UUID) Ref[T] {
	return Ref[T]{ID: id}
}

// RefID dereferences r to the identifier of the referenced record
// regardless of whether it has been resolved.
func (r Ref[T]) RefID() uuid.UUID {
	return r.ID
}

// IsZero reports whether the reference is unset.
func (r Ref[T]) IsZero() bool {
	return r.ID == uuid.Nil
}

// IsResolved reports whether the referenced record has been loaded.
func (r Ref[T]) IsResolved() bool {
	return r.Resolved != nil
}

// Resolve attaches the loaded record.
func (r *Ref[T]) Resolve(v *T) {
	r.Resolved = v
}

// MarshalJSON writes the resolved record, or the bare id when unresolved.
func (r Ref[T]) MarshalJSON() ([]byte, error) {
	if r.Resolved != nil {
		return json.Marshal(r.Resolved)
	}
	if r.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(r.ID.String())
}

// UnmarshalJSON accepts an id string or an object carrying an "id" key.
func (r *Ref[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*r = Ref[T]{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return fmt.Errorf("invalid reference %q: %w", s, err)
		}
		*r = Ref[T]{ID: id}
		return nil
	default:
		var head struct {
			ID uuid.UUID `json:"id"`
		}
		if err := json.Unmarshal(data, &head); err != nil {
			return err
		}
		*r = Ref[T]{ID: head.ID}
		return nil
	}
}

// Scan implements sql.Scanner.
func (r *Ref[T]) Scan(src any) error {
	*r = Ref[T]{}
	if src == nil {
		return nil
	}
	return r.ID.Scan(src)
}

// Value implements driver.Valuer.
func (r Ref[T]) Value() (driver.Value, error) {
	if r.IsZero() {
		return nil, nil
	}
	return r.ID.String(), nil
}

// RefList is an ordered list of references stored as a uuid[] column.
type RefList[T any] []Ref[T]

// NewRefList builds an unresolved list from ids.
func NewRefList[T any](ids ...uuid.UUID) RefList[T] {
	l := make(RefList[T], 0, len(ids))
	for _, id := range ids {
		l = append(l, NewRef[T](id))
	}
	return l
}

// IDs returns the referenced identifiers in order.
func (l RefList[T]) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(l))
	for _, r := range l {
		ids = append(ids, r.RefID())
	}
	return ids
}

// Strings returns the referenced identifiers as strings.
func (l RefList[T]) Strings() []string {
	out := make([]string, 0, len(l))
	for _, r := range l {
		out = append(out, r.RefID().String())
	}
	return out
}

// Contains reports whether id is referenced.
func (l RefList[T]) Contains(id uuid.UUID) bool {
	for _, r := range l {
		if r.RefID() == id {
			return true
		}
	}
	return false
}

// HasDuplicates reports whether any id appears more than once.
func (l RefList[T]) HasDuplicates() bool {
	seen := make(map[uuid.UUID]struct{}, len(l))
	for _, r := range l {
		if _, ok := seen[r.RefID()]; ok {
			return true
		}
		seen[r.RefID()] = struct{}{}
	}
	return false
}

// Without returns a copy of l with every reference to id removed.
func (l RefList[T]) Without(id uuid.UUID) RefList[T] {
	out := make(RefList[T], 0, len(l))
	for _, r := range l {
		if r.RefID() != id {
			out = append(out, r)
		}
	}
	return out
}

// MarshalJSON encodes a nil list as an empty array.
func (l RefList[T]) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Ref[T](l))
}

// Scan implements sql.Scanner for uuid[] columns.
func (l *RefList[T]) Scan(src any) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return err
	}
	out := make(RefList[T], 0, len(arr))
	for _, s := range arr {
		id, err := uuid.Parse(s)
		if err != nil {
			return fmt.Errorf("invalid reference %q: %w", s, err)
		}
		out = append(out, NewRef[T](id))
	}
	*l = out
	return nil
}

// Value implements driver.Valuer; an empty list is stored as '{}'.
func (l RefList[T]) Value() (driver.Value, error) {
	return pq.StringArray(l.Strings()).Value()
}
