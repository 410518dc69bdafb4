package repositories

import (
	"context"
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/musicon/internal/logger"
	"github.com/sbilibin2017/musicon/internal/models"
	"github.com/sbilibin2017/musicon/internal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "pgx"), mock
}

var genreColumns = []string{"id", "name", "description", "created_by", "created_at", "version"}

func TestRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository[models.Genre](db, nil, GenresTable)

	id, owner := uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(
		"INSERT INTO genres (name, description, created_by) VALUES ($1, $2, $3) RETURNING *",
	)).
		WithArgs("Jazz", "Smooth sounds", owner.String()).
		WillReturnRows(sqlmock.NewRows(genreColumns).
			AddRow(id.String(), "Jazz", "Smooth sounds", owner.String(), now, 0))

	got, err := repo.Create(context.Background(), &models.Genre{
		Name:        "Jazz",
		Description: "Smooth sounds",
		CreatedBy:   models.NewRef[models.User](owner),
	})
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, owner, got.CreatedBy.RefID())
	assert.Equal(t, 0, got.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CreateWithoutOwner(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository[models.Genre](db, nil, GenresTable)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO genres")).
		WithArgs("Jazz", "Smooth sounds", nil).
		WillReturnRows(sqlmock.NewRows(genreColumns).
			AddRow(uuid.NewString(), "Jazz", "Smooth sounds", nil, time.Now(), 0))

	got, err := repo.Create(context.Background(), &models.Genre{Name: "Jazz", Description: "Smooth sounds"})
	require.NoError(t, err)
	assert.True(t, got.CreatedBy.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Update(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository[models.Playlist](db, nil, PlaylistsTable)

	id, owner, track := uuid.New(), uuid.New(), uuid.New()
	public := false
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(
		"UPDATE playlists SET name = $1, description = $2, public = $3, tracks = $4, created_by = $5, " +
			"version = version + 1, updated_at = NOW() WHERE id = $6 RETURNING *",
	)).
		WithArgs("Mix", "Sunday mix", false, `{"`+track.String()+`"}`, owner.String(), id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "public", "tracks", "created_by", "created_at", "updated_at", "version"}).
			AddRow(id.String(), "Mix", "Sunday mix", false, "{"+track.String()+"}", owner.String(), now, now, 3))

	got, err := repo.Update(context.Background(), &models.Playlist{
		ID:          id,
		Name:        "Mix",
		Description: "Sunday mix",
		IsPublic:    &public,
		Tracks:      models.NewRefList[models.Track](track),
		CreatedBy:   models.NewRef[models.User](owner),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, got.Version)
	assert.Equal(t, []uuid.UUID{track}, got.Tracks.IDs())
	require.NotNil(t, got.IsPublic)
	assert.False(t, *got.IsPublic)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdateNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository[models.Genre](db, nil, GenresTable)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE genres SET")).
		WillReturnRows(sqlmock.NewRows(genreColumns))

	_, err := repo.Update(context.Background(), &models.Genre{ID: uuid.New(), Name: "Jazz"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_FindByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository[models.Genre](db, nil, GenresTable)

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM genres WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(genreColumns).
			AddRow(id.String(), "Jazz", "Smooth sounds", nil, time.Now(), 1))

	got, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Jazz", got.Name)

	missing := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM genres WHERE id = $1")).
		WithArgs(missing).
		WillReturnRows(sqlmock.NewRows(genreColumns))

	_, err = repo.FindByID(context.Background(), missing)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_LogsQueryFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := logger.Log
	logger.Log = zap.New(core).Sugar()
	defer func() { logger.Log = prev }()

	db, mock := newMockDB(t)
	repo := NewRepository[models.Genre](db, nil, GenresTable)

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM genres WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(genreColumns).
			AddRow(id.String(), "Jazz", "Smooth sounds", nil, time.Now(), 1))

	_, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)

	assert.Zero(t, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	entries := logs.FilterMessage("db query").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "SELECT * FROM genres WHERE id = $1", fields["query"])
	assert.Contains(t, fields, "args")
	assert.Equal(t, true, fields["result"])
}

func TestRepository_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository[models.Track](db, nil, TracksTable)

	tests := []struct {
		name    string
		rows    int64
		wantErr error
	}{
		{"deleted", 1, nil},
		{"not found", 0, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := uuid.New()
			mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tracks WHERE id = $1")).
				WithArgs(id).
				WillReturnResult(sqlmock.NewResult(0, tt.rows))

			err := repo.Delete(context.Background(), id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FindAll(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository[models.Genre](db, nil, GenresTable)

	params := url.Values{"name": {"Jazz"}, "page": {"2"}, "limit": {"1"}}
	q := query.New(repo.Schema(), params).Filter().Sort().Select().Paginate()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM genres WHERE name = $1")).
		WithArgs("Jazz").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT * FROM genres WHERE name = $1 ORDER BY created_at DESC, id ASC LIMIT $2 OFFSET $3",
	)).
		WithArgs("Jazz", 1, 1).
		WillReturnRows(sqlmock.NewRows(genreColumns).
			AddRow(uuid.NewString(), "Jazz", "Smooth sounds", nil, time.Now(), 0))

	rows, total, err := repo.FindAll(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, rows, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FindAllCastError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository[models.Genre](db, nil, GenresTable)

	q := query.New(repo.Schema(), url.Values{"createdAt[gte]": {"someday"}}).Filter()

	_, _, err := repo.FindAll(context.Background(), q)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UsesTransaction(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	tx, err := db.Beginx()
	require.NoError(t, err)

	repo := NewRepository[models.Track](db, func(ctx context.Context) *sqlx.Tx { return tx }, TracksTable)

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tracks WHERE id = $1")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), id))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrackRepository_Missing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTrackRepository(db, nil)

	a, b := uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE id = ANY($1::uuid[])")).
		WithArgs(`{"` + a.String() + `","` + b.String() + `","` + a.String() + `"}`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	n, err := repo.MissingArtists(context.Background(), models.NewRefList[models.User](a, b, a))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.MissingGenres(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaylistRepository_Populate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPlaylistRepository(db, nil)

	owner, t1, t2 := uuid.New(), uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM users WHERE id = $1")).
		WithArgs(owner).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "email", "photo", "role", "password", "password_changed_at",
			"password_reset_token", "password_reset_expires", "active", "created_at", "version",
		}).AddRow(owner.String(), "Ann", "ann@example.com", "default.jpg", "user", "$2a$hash", nil, nil, nil, true, now, 0))

	trackColumns := []string{"id", "name", "cover_image", "url", "release_date", "artists", "genres", "created_by", "created_at", "version"}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM tracks WHERE id = ANY($1::uuid[])")).
		WillReturnRows(sqlmock.NewRows(trackColumns).
			AddRow(t2.String(), "Second", "https://cdn/c2.jpg", "https://cdn/2.mp3", now, "{}", "{}", nil, now, 0).
			AddRow(t1.String(), "First", "https://cdn/c1.jpg", "https://cdn/1.mp3", now, "{}", "{}", nil, now, 0))

	p := &models.Playlist{
		CreatedBy: models.NewRef[models.User](owner),
		Tracks:    models.NewRefList[models.Track](t1, t2),
	}
	require.NoError(t, repo.Populate(context.Background(), p))

	require.True(t, p.CreatedBy.IsResolved())
	assert.Equal(t, "Ann", p.CreatedBy.Resolved.Name)
	require.True(t, p.Tracks[0].IsResolved())
	assert.Equal(t, "First", p.Tracks[0].Resolved.Name)
	assert.Equal(t, "Second", p.Tracks[1].Resolved.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, nil)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM users WHERE email = $1 LIMIT 1")).
		WithArgs("ann@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByEmail(context.Background(), "Ann@Example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
