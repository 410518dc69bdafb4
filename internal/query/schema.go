package query

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sbilibin2017/musicon/internal/apperror"
)

// Kind is the type of a filterable column.
type Kind int

const (
	Text Kind = iota
	Number
	Bool
	Time
	UUID
	UUIDList // uuid[] column; equality means membership
)

// Field maps an API field name onto a column.
type Field struct {
	Name   string
	Column string
	Kind   Kind
	Hidden bool // left out of list output unless selected explicitly
}

// Schema describes the queryable fields of one table.
type Schema []Field

// Lookup finds a field by its API name.
func (s Schema) Lookup(name string) (Field, bool) {
	for _, f := range s {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// convert parses raw according to the field kind.
func (f Field) convert(raw string) (any, error) {
	var (
		v   any
		err error
	)
	switch f.Kind {
	case Number:
		v, err = strconv.ParseFloat(raw, 64)
	case Bool:
		v, err = strconv.ParseBool(raw)
	case Time:
		v, err = parseTime(raw)
	case UUID, UUIDList:
		var id uuid.UUID
		id, err = uuid.Parse(raw)
		v = id.String()
	default:
		v = raw
	}
	if err != nil {
		return nil, &apperror.CastError{Field: f.Name, Value: raw}
	}
	return v, nil
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func parseTime(raw string) (time.Time, error) {
	var err error
	for _, layout := range timeLayouts {
		var t time.Time
		if t, err = time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}
