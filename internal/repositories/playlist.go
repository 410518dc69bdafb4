package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/musicon/internal/models"
)

// PlaylistRepository stores playlists and resolves their owner and tracks.
type PlaylistRepository struct {
	*Repository[models.Playlist]
	users  *Repository[models.User]
	tracks *Repository[models.Track]
}

func NewPlaylistRepository(db *sqlx.DB, txGetter func(ctx context.Context) *sqlx.Tx) *PlaylistRepository {
	return &PlaylistRepository{
		Repository: NewRepository[models.Playlist](db, txGetter, PlaylistsTable),
		users:      NewRepository[models.User](db, txGetter, UsersTable),
		tracks:     NewRepository[models.Track](db, txGetter, TracksTable),
	}
}

// Populate resolves the owner and the tracks of p.
func (r *PlaylistRepository) Populate(ctx context.Context, p *models.Playlist) error {
	if !p.CreatedBy.IsZero() {
		owner, err := r.users.FindByID(ctx, p.CreatedBy.RefID())
		switch {
		case err == nil:
			p.CreatedBy.Resolve(owner)
		case err != ErrNotFound:
			return err
		}
	}
	return resolveList(ctx, r.tracks, p.Tracks)
}

// TrackExists reports whether a track with the given id exists.
func (r *PlaylistRepository) TrackExists(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := r.tracks.CountExisting(ctx, []uuid.UUID{id})
	return n == 1, err
}
