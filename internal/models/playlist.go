package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/sbilibin2017/musicon/internal/apperror"
)

// Playlist is an ordered, owned collection of tracks. A nil Public is
// treated as visible to everyone.
// swagger:model Playlist
type Playlist struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	Name        string         `json:"name" db:"name" validate:"required"`
	Description string         `json:"description" db:"description" validate:"required,min=5"`
	IsPublic    *bool          `json:"public" db:"public"`
	Tracks      RefList[Track] `json:"tracks" db:"tracks"`
	CreatedBy   Ref[User]      `json:"createdBy" db:"created_by"`
	CreatedAt   time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time      `json:"updatedAt" db:"updated_at"`
	Version     int            `json:"version" db:"version"`
}

func (p Playlist) EntityID() uuid.UUID { return p.ID }
func (p Playlist) Owner() Ref[User]    { return p.CreatedBy }
func (p Playlist) Public() *bool       { return p.IsPublic }

// ApplyDefaults makes new playlists public unless stated otherwise.
func (p *Playlist) ApplyDefaults(time.Time) {
	if p.IsPublic == nil {
		public := true
		p.IsPublic = &public
	}
}

func (p *Playlist) Validate() error {
	if p.CreatedBy.IsZero() {
		return apperror.BadRequest("Invalid input data. A playlist must belong to a user")
	}
	if p.Tracks.HasDuplicates() {
		return apperror.BadRequest("Invalid input data. Duplicate tracks are not allowed")
	}
	return nil
}
