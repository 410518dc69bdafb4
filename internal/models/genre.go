package models

import (
	"time"

	"github.com/google/uuid"
)

// Genre groups tracks by style.
// swagger:model Genre
type Genre struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name" validate:"required"`
	Description string    `json:"description" db:"description" validate:"required,min=5"`
	CreatedBy   Ref[User] `json:"createdBy" db:"created_by"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	Version     int       `json:"version" db:"version"`
}

func (g Genre) EntityID() uuid.UUID { return g.ID }
func (g Genre) Owner() Ref[User]    { return g.CreatedBy }
func (g Genre) Public() *bool       { return nil }
