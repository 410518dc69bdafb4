package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/sbilibin2017/musicon/internal/apperror"
)

// Track is a published recording with its cover image and audio file URLs.
// swagger:model Track
type Track struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	Name        string         `json:"name" db:"name" validate:"required"`
	CoverImage  string         `json:"coverImage" db:"cover_image" validate:"required,url"`
	URL         string         `json:"url" db:"url" validate:"required,url"`
	ReleaseDate time.Time      `json:"releaseDate" db:"release_date"`
	Artists     RefList[User]  `json:"artists" db:"artists"`
	Genres      RefList[Genre] `json:"genres" db:"genres"`
	CreatedBy   Ref[User]      `json:"createdBy" db:"created_by"`
	CreatedAt   time.Time      `json:"createdAt" db:"created_at"`
	Version     int            `json:"version" db:"version"`
}

func (t Track) EntityID() uuid.UUID { return t.ID }
func (t Track) Owner() Ref[User]    { return t.CreatedBy }
func (t Track) Public() *bool       { return nil }

// ApplyDefaults releases a track now unless a date was given.
func (t *Track) ApplyDefaults(now time.Time) {
	if t.ReleaseDate.IsZero() {
		t.ReleaseDate = now
	}
}

func (t *Track) Validate() error {
	if t.Artists.HasDuplicates() {
		return apperror.BadRequest("Invalid input data. Duplicate artists are not allowed")
	}
	if t.Genres.HasDuplicates() {
		return apperror.BadRequest("Invalid input data. Duplicate genres are not allowed")
	}
	return nil
}

// StoredObjects lists the object storage URLs the track points at.
func (t *Track) StoredObjects() []string {
	return []string{t.CoverImage, t.URL}
}
