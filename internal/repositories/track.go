package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/musicon/internal/models"
)

// TrackRepository stores tracks and resolves their artist and genre references.
type TrackRepository struct {
	*Repository[models.Track]
	users  *Repository[models.User]
	genres *Repository[models.Genre]
}

func NewTrackRepository(db *sqlx.DB, txGetter func(ctx context.Context) *sqlx.Tx) *TrackRepository {
	return &TrackRepository{
		Repository: NewRepository[models.Track](db, txGetter, TracksTable),
		users:      NewRepository[models.User](db, txGetter, UsersTable),
		genres:     NewRepository[models.Genre](db, txGetter, GenresTable),
	}
}

// Populate resolves the artists and genres of t. References to deleted
// records stay unresolved.
func (r *TrackRepository) Populate(ctx context.Context, t *models.Track) error {
	if err := resolveList(ctx, r.users, t.Artists); err != nil {
		return err
	}
	return resolveList(ctx, r.genres, t.Genres)
}

// MissingArtists reports how many of the referenced artists do not exist.
func (r *TrackRepository) MissingArtists(ctx context.Context, refs models.RefList[models.User]) (int, error) {
	return missing(ctx, r.users, refs.IDs())
}

// MissingGenres reports how many of the referenced genres do not exist.
func (r *TrackRepository) MissingGenres(ctx context.Context, refs models.RefList[models.Genre]) (int, error) {
	return missing(ctx, r.genres, refs.IDs())
}

func resolveList[T models.Entity](ctx context.Context, repo *Repository[T], refs models.RefList[T]) error {
	rows, err := repo.FindByIDs(ctx, refs.IDs())
	if err != nil {
		return err
	}
	byID := make(map[string]*T, len(rows))
	for i := range rows {
		byID[rows[i].EntityID().String()] = &rows[i]
	}
	for i := range refs {
		if row, ok := byID[refs[i].RefID().String()]; ok {
			refs[i].Resolve(row)
		}
	}
	return nil
}

func missing[T models.Entity](ctx context.Context, repo *Repository[T], ids []uuid.UUID) (int, error) {
	distinct := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		distinct[id] = struct{}{}
	}
	found, err := repo.CountExisting(ctx, ids)
	if err != nil {
		return 0, err
	}
	return len(distinct) - found, nil
}
