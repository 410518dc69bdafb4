package handlers

import (
	"context"

	"github.com/sbilibin2017/musicon/internal/models"
	"github.com/sbilibin2017/musicon/internal/services"
)

//go:generate mockgen -source=track.go -destination=track_mock.go -package=handlers

// Cleaner schedules removal of stored objects.
type Cleaner interface {
	Schedule(ctx context.Context, reason string, urls ...string)
}

// WithTrackCleanup makes committed track changes release their files: an
// update frees the cover and audio it replaced, a delete frees both.
func WithTrackCleanup(opts Options[models.Track], cleaner Cleaner) Options[models.Track] {
	opts.AfterUpdate = func(ctx context.Context, before, after *models.Track) {
		if urls := services.Superseded(before.StoredObjects(), after.StoredObjects()); len(urls) > 0 {
			cleaner.Schedule(ctx, "track updated", urls...)
		}
	}
	opts.AfterDelete = func(ctx context.Context, t *models.Track) {
		cleaner.Schedule(ctx, "track deleted", t.StoredObjects()...)
	}
	return opts
}
