package repositories

import (
	"context"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sbilibin2017/musicon/internal/migrations"
	"github.com/sbilibin2017/musicon/internal/models"
	"github.com/sbilibin2017/musicon/internal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startContainer(t *testing.T, req tc.ContainerRequest) (tc.Container, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, nat.Port(req.ExposedPorts[0]))
	require.NoError(t, err)

	return container, fmt.Sprintf("%s:%s", host, port.Port())
}

func setupPostgres(t *testing.T) *sqlx.DB {
	t.Helper()

	_, addr := startContainer(t, tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_PASSWORD": "password", "POSTGRES_DB": "testdb", "POSTGRES_USER": "postgres"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	})

	dsn := fmt.Sprintf("postgres://postgres:password@%s/testdb?sslmode=disable", addr)

	var (
		db  *sqlx.DB
		err error
	)
	for i := 0; i < 10; i++ {
		db, err = sqlx.Connect("pgx", dsn)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migrations.Up(dsn))
	return db
}

func TestIntegration_Catalog(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	users := NewUserRepository(db, nil)
	tracks := NewTrackRepository(db, nil)
	genres := NewRepository[models.Genre](db, nil, GenresTable)
	playlists := NewPlaylistRepository(db, nil)

	artist := &models.User{Name: "Ann", Email: "ann@example.com", PasswordHash: "$2a$hash"}
	artist.ApplyDefaults(time.Now())
	artist.Role = models.RoleArtist
	artist, err := users.Create(ctx, artist)
	require.NoError(t, err)
	assert.True(t, artist.Active)

	found, err := users.FindByEmail(ctx, "ANN@example.com")
	require.NoError(t, err)
	assert.Equal(t, artist.ID, found.ID)

	dup := &models.User{Name: "Other", Email: "ann@example.com", PasswordHash: "$2a$hash", Role: models.RoleUser, Photo: models.DefaultPhoto}
	_, err = users.Create(ctx, dup)
	assert.Error(t, err)

	genre, err := genres.Create(ctx, &models.Genre{Name: "Jazz", Description: "Smooth sounds", CreatedBy: models.NewRef[models.User](artist.ID)})
	require.NoError(t, err)

	track := &models.Track{
		Name:       "Blue",
		CoverImage: "https://cdn.example.com/tracks/c.jpg",
		URL:        "https://cdn.example.com/tracks/a.mp3",
		Artists:    models.NewRefList[models.User](artist.ID),
		Genres:     models.NewRefList[models.Genre](genre.ID),
		CreatedBy:  models.NewRef[models.User](artist.ID),
	}
	track.ApplyDefaults(time.Now())
	track, err = tracks.Create(ctx, track)
	require.NoError(t, err)

	got, err := tracks.FindByID(ctx, track.ID)
	require.NoError(t, err)
	assert.Equal(t, track.Name, got.Name)
	assert.Equal(t, []models.Ref[models.User]{models.NewRef[models.User](artist.ID)}, []models.Ref[models.User](got.Artists))
	assert.Equal(t, genre.ID, got.Genres[0].RefID())

	require.NoError(t, tracks.Populate(ctx, got))
	assert.Equal(t, "Ann", got.Artists[0].Resolved.Name)
	assert.Equal(t, "Jazz", got.Genres[0].Resolved.Name)

	got.Name = "Blue (remaster)"
	updated, err := tracks.Update(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Version)

	byArtist := query.New(tracks.Schema(), url.Values{"artists": {artist.ID.String()}}).Filter().Sort().Paginate()
	rows, total, err := tracks.FindAll(ctx, byArtist)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, rows, 1)

	owner := artist
	private := false
	_, err = playlists.Create(ctx, &models.Playlist{Name: "Mine", Description: "Private mix", IsPublic: &private, CreatedBy: models.NewRef[models.User](owner.ID)})
	require.NoError(t, err)

	listener := &models.User{Name: "Bob", Email: "bob@example.com", PasswordHash: "$2a$hash"}
	listener.ApplyDefaults(time.Now())
	listener, err = users.Create(ctx, listener)
	require.NoError(t, err)

	public := true
	_, err = playlists.Create(ctx, &models.Playlist{Name: "Shared", Description: "Public mix", IsPublic: &public, CreatedBy: models.NewRef[models.User](listener.ID)})
	require.NoError(t, err)

	visible := query.New(playlists.Schema(), nil).Where("created_by = ? OR public = TRUE", listener.ID).Filter().Sort().Paginate()
	rowsP, totalP, err := playlists.FindAll(ctx, visible)
	require.NoError(t, err)
	assert.Equal(t, 1, totalP)
	assert.Equal(t, "Shared", rowsP[0].Name)

	require.NoError(t, tracks.Delete(ctx, track.ID))
	_, err = tracks.FindByID(ctx, track.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIntegration_SessionRepository(t *testing.T) {
	_, addr := startContainer(t, tc.ContainerRequest{
		Image:        "redis:7.0-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	})

	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	require.NoError(t, rdb.Ping(ctx).Err())

	repo := NewSessionRepository(rdb)

	revoked, err := repo.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, repo.Revoke(ctx, "jti-1", time.Now().Add(2*time.Second)))
	revoked, err = repo.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	require.NoError(t, repo.Revoke(ctx, "jti-2", time.Now().Add(-time.Second)))
	revoked, err = repo.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	time.Sleep(3 * time.Second)
	revoked, err = repo.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}
