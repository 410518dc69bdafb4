package main

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/sbilibin2017/musicon/internal/apperror"
	"github.com/sbilibin2017/musicon/internal/handlers"
	"github.com/sbilibin2017/musicon/internal/middlewares"
	"github.com/sbilibin2017/musicon/internal/models"
	"github.com/sbilibin2017/musicon/internal/repositories"
	"github.com/sbilibin2017/musicon/internal/upload"
)

// authService covers every account operation the routes expose.
type authService interface {
	middlewares.Authenticator
	handlers.Signuper
	handlers.Loginer
	handlers.Logouter
	handlers.PasswordResetter
	handlers.PasswordChanger
}

// cleaner schedules removal of stored objects for uploads and track changes.
type cleaner interface {
	upload.Cleaner
	handlers.Cleaner
}

// routerDeps are the collaborators the HTTP routes are built from.
type routerDeps struct {
	DB       *sqlx.DB
	Tokens   handlers.Tokener
	Auth     authService
	Users    handlers.Store[models.User]
	Uploader upload.Uploader
	Cleaner  cleaner

	Cookie        handlers.SessionCookie
	CORSOrigins   []string
	MaxImageBytes int64
	MaxAudioBytes int64
	SwaggerURL    string
}

// newRouter mounts the API under handlers.BasePath.
func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(middlewares.LoggingMiddleware)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apperror.Write(w, apperror.NotFound(fmt.Sprintf("Can't find %s on this server!", r.URL.Path)))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apperror.Write(w, apperror.New(http.StatusMethodNotAllowed, fmt.Sprintf("%s is not supported on %s", r.Method, r.URL.Path)))
	})

	r.Get("/healthz", handlers.NewHealthHandler(d.DB))
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(d.SwaggerURL)))

	protect := middlewares.Protect(d.Tokens, d.Auth)
	identify := middlewares.Identify(d.Tokens, d.Auth)
	tx := middlewares.TxMiddleware(d.DB)
	adminOnly := middlewares.RestrictTo(models.RoleAdmin)

	tracks := repositories.NewTrackRepository(d.DB, middlewares.GetTxFromContext)
	genres := repositories.NewRepository[models.Genre](d.DB, middlewares.GetTxFromContext, repositories.GenresTable)
	playlists := repositories.NewPlaylistRepository(d.DB, middlewares.GetTxFromContext)

	r.Route(handlers.BasePath, func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.With(tx).Post("/signup", handlers.NewSignupHandler(d.Auth, d.Cookie))
			r.Post("/login", handlers.NewLoginHandler(d.Auth, d.Cookie))
			r.Get("/logout", handlers.NewLogoutHandler(d.Auth, d.Tokens, d.Cookie))
			r.With(tx).Post("/forgot-password", handlers.NewForgotPasswordHandler(d.Auth))
			r.With(tx).Patch("/reset-password/{token}", handlers.NewResetPasswordHandler(d.Auth, d.Cookie))

			r.Group(func(r chi.Router) {
				r.Use(protect)
				r.With(tx).Patch("/change-password", handlers.NewChangePasswordHandler(d.Auth, d.Cookie))
				r.Get("/me", handlers.NewMeHandler())

				opts := handlers.Options[models.User]{}
				r.Group(func(r chi.Router) {
					r.Use(adminOnly)
					r.Get("/", handlers.GetAll(d.Users, opts))
					r.With(tx).Post("/", handlers.CreateOne(d.Users, opts))
					r.Get("/{id}", handlers.GetOne(d.Users, opts))
					r.With(tx).Patch("/{id}", handlers.UpdateOne(d.Users, opts))
					r.With(tx).Delete("/{id}", handlers.DeleteOne(d.Users, opts))
				})
			})
		})

		r.Route("/tracks", func(r chi.Router) {
			opts := handlers.WithTrackCleanup(handlers.Options[models.Track]{
				CheckOwnership: true,
				Populate:       tracks.Populate,
			}, d.Cleaner)
			files := upload.Files(d.Uploader, d.Cleaner, "tracks",
				upload.Image("coverImage", d.MaxImageBytes),
				upload.Audio("url", d.MaxAudioBytes),
			)
			lists := middlewares.NormalizeLists("artists", "genres")
			refs := middlewares.TrackReferences(tracks)
			owner := handlers.RequireOwner[models.Track](tracks, handlers.ErrNotOwnerUpdate)

			r.With(identify).Get("/", handlers.GetAll(tracks, opts))
			r.With(identify).Get("/{id}", handlers.GetOne(tracks, opts))

			r.Group(func(r chi.Router) {
				r.Use(protect, middlewares.RestrictTo(models.RoleArtist, models.RoleAdmin))
				r.With(files, lists, middlewares.SetCreatedBy, refs, tx).Post("/", handlers.CreateOne(tracks, opts))
				r.With(owner, files, lists, refs, tx).Patch("/{id}", handlers.UpdateOne(tracks, opts))
				r.With(tx).Delete("/{id}", handlers.DeleteOne(tracks, opts))
			})
		})

		r.Route("/genres", func(r chi.Router) {
			opts := handlers.Options[models.Genre]{}

			r.Get("/", handlers.GetAll(genres, opts))
			r.Get("/{id}", handlers.GetOne(genres, opts))

			r.Group(func(r chi.Router) {
				r.Use(protect, adminOnly, tx)
				r.With(middlewares.SetCreatedBy).Post("/", handlers.CreateOne(genres, opts))
				r.Patch("/{id}", handlers.UpdateOne(genres, opts))
				r.Delete("/{id}", handlers.DeleteOne(genres, opts))
			})
		})

		r.Route("/playlists", func(r chi.Router) {
			r.Use(protect)

			opts := handlers.Options[models.Playlist]{
				CheckOwnership:  true,
				CheckVisibility: true,
				Populate:        playlists.Populate,
				PopulateList:    true,
			}
			addTrack := handlers.Options[models.Playlist]{CheckOwnership: true, IgnoreBody: true, Mutate: handlers.AddTrack(playlists)}
			removeTrack := handlers.Options[models.Playlist]{CheckOwnership: true, IgnoreBody: true, Mutate: handlers.RemoveTrack}

			r.Get("/", handlers.GetAll(playlists, opts))
			r.Get("/{id}", handlers.GetOne(playlists, opts))

			r.Group(func(r chi.Router) {
				r.Use(tx)
				r.With(middlewares.SetCreatedBy).Post("/", handlers.CreateOne(playlists, opts))
				r.Patch("/{id}", handlers.UpdateOne(playlists, opts))
				r.Delete("/{id}", handlers.DeleteOne(playlists, opts))
				r.Post("/{id}/tracks/{trackId}", handlers.UpdateOne(playlists, addTrack))
				r.Delete("/{id}/tracks/{trackId}", handlers.UpdateOne(playlists, removeTrack))
			})
		})
	})

	return r
}
