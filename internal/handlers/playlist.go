package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/sbilibin2017/musicon/internal/apperror"
	"github.com/sbilibin2017/musicon/internal/models"
)

//go:generate mockgen -source=playlist.go -destination=playlist_mock.go -package=handlers

// ErrTrackNotFound is returned when a playlist change names an unknown track.
var ErrTrackNotFound = apperror.NotFound("No track found with that ID")

// TrackChecker reports whether a track exists.
type TrackChecker interface {
	TrackExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// AddTrack appends the track named by the trackId path parameter to the
// playlist. Adding a track that is already listed changes nothing.
// @Summary Add a track to a playlist
// @Tags playlists
// @Produce json
// @Param id path string true "Playlist id"
// @Param trackId path string true "Track id"
// @Success 201 {object} handlers.Response
// @Failure 401 {object} apperror.Response "Not the owner"
// @Failure 404 {object} apperror.Response "Playlist or track not found"
// @Router /playlists/{id}/tracks/{trackId} [post]
func AddTrack(tracks TrackChecker) func(r *http.Request, p *models.Playlist) error {
	return func(r *http.Request, p *models.Playlist) error {
		id, err := urlID(r, "trackId")
		if err != nil {
			return err
		}
		if p.Tracks.Contains(id) {
			return nil
		}

		ok, err := tracks.TrackExists(r.Context(), id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTrackNotFound
		}

		p.Tracks = append(p.Tracks, models.NewRef[models.Track](id))
		return nil
	}
}

// RemoveTrack drops the track named by the trackId path parameter from the
// playlist.
// @Summary Remove a track from a playlist
// @Tags playlists
// @Produce json
// @Param id path string true "Playlist id"
// @Param trackId path string true "Track id"
// @Success 201 {object} handlers.Response
// @Failure 401 {object} apperror.Response "Not the owner"
// @Router /playlists/{id}/tracks/{trackId} [delete]
func RemoveTrack(r *http.Request, p *models.Playlist) error {
	id, err := urlID(r, "trackId")
	if err != nil {
		return err
	}
	p.Tracks = p.Tracks.Without(id)
	return nil
}
