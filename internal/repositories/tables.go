package repositories

import "github.com/sbilibin2017/musicon/internal/query"

func baseFields(extra ...query.Field) query.Schema {
	schema := query.Schema{
		{Name: "id", Column: "id", Kind: query.UUID},
		{Name: "createdAt", Column: "created_at", Kind: query.Time},
		{Name: "version", Column: "version", Kind: query.Number, Hidden: true},
	}
	return append(schema, extra...)
}

// UsersTable stores accounts.
var UsersTable = Table{
	Name: "users",
	Columns: []string{
		"name", "email", "photo", "role", "password",
		"password_changed_at", "password_reset_token", "password_reset_expires", "active",
	},
	Schema: baseFields(
		query.Field{Name: "name", Column: "name", Kind: query.Text},
		query.Field{Name: "email", Column: "email", Kind: query.Text},
		query.Field{Name: "photo", Column: "photo", Kind: query.Text},
		query.Field{Name: "role", Column: "role", Kind: query.Text},
		query.Field{Name: "passwordChangedAt", Column: "password_changed_at", Kind: query.Time},
	),
}

// TracksTable stores tracks.
var TracksTable = Table{
	Name:    "tracks",
	Columns: []string{"name", "cover_image", "url", "release_date", "artists", "genres", "created_by"},
	Schema: baseFields(
		query.Field{Name: "name", Column: "name", Kind: query.Text},
		query.Field{Name: "coverImage", Column: "cover_image", Kind: query.Text},
		query.Field{Name: "url", Column: "url", Kind: query.Text},
		query.Field{Name: "releaseDate", Column: "release_date", Kind: query.Time},
		query.Field{Name: "artists", Column: "artists", Kind: query.UUIDList},
		query.Field{Name: "genres", Column: "genres", Kind: query.UUIDList},
		query.Field{Name: "createdBy", Column: "created_by", Kind: query.UUID},
	),
}

// GenresTable stores genres.
var GenresTable = Table{
	Name:    "genres",
	Columns: []string{"name", "description", "created_by"},
	Schema: baseFields(
		query.Field{Name: "name", Column: "name", Kind: query.Text},
		query.Field{Name: "description", Column: "description", Kind: query.Text},
		query.Field{Name: "createdBy", Column: "created_by", Kind: query.UUID},
	),
}

// PlaylistsTable stores playlists.
var PlaylistsTable = Table{
	Name:    "playlists",
	Columns: []string{"name", "description", "public", "tracks", "created_by"},
	Touch:   true,
	Schema: baseFields(
		query.Field{Name: "name", Column: "name", Kind: query.Text},
		query.Field{Name: "description", Column: "description", Kind: query.Text},
		query.Field{Name: "public", Column: "public", Kind: query.Bool},
		query.Field{Name: "tracks", Column: "tracks", Kind: query.UUIDList},
		query.Field{Name: "createdBy", Column: "created_by", Kind: query.UUID},
		query.Field{Name: "updatedAt", Column: "updated_at", Kind: query.Time},
	),
}
