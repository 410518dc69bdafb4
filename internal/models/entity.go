package models

import (
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Entity is a persisted record that may carry an owner and a public flag.
type Entity interface {
	EntityID() uuid.UUID
	Owner() Ref[User]
	Public() *bool
}

// Defaulter fills zero fields before a record is inserted.
type Defaulter interface {
	ApplyDefaults(now time.Time)
}

// Validatable performs checks that struct tags cannot express.
type Validatable interface {
	Validate() error
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Check runs tag validation on v and then its own Validate method, if any.
// v must be a pointer to a struct.
func Check(v any) error {
	if err := structValidator().Struct(v); err != nil {
		return err
	}
	if c, ok := v.(Validatable); ok {
		return c.Validate()
	}
	return nil
}
