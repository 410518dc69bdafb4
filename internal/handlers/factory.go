package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sbilibin2017/musicon/internal/access"
	"github.com/sbilibin2017/musicon/internal/apperror"
	"github.com/sbilibin2017/musicon/internal/models"
	"github.com/sbilibin2017/musicon/internal/query"
	"github.com/sbilibin2017/musicon/internal/repositories"
	"github.com/sbilibin2017/musicon/internal/request"
)

// Ownership errors
var (
	ErrNotOwnerUpdate = apperror.Unauthorized("You are not authorized to update this document")
	ErrNotOwnerDelete = apperror.Unauthorized("You are not authorized to delete this document")
)

// immutableFields are ignored in update bodies.
var immutableFields = []string{"id", "createdAt", "createdBy", "version", "updatedAt"}

// generatedFields are ignored in create bodies.
var generatedFields = []string{"id", "createdAt", "version", "updatedAt"}

// Store defines the persistence operations behind the generic handlers.
type Store[T models.Entity] interface {
	Create(ctx context.Context, rec *T) (*T, error)                // Inserts a record
	Update(ctx context.Context, rec *T) (*T, error)                // Overwrites a record
	FindByID(ctx context.Context, id uuid.UUID) (*T, error)        // Loads a record by id
	Delete(ctx context.Context, id uuid.UUID) error                // Removes a record
	FindAll(ctx context.Context, q *query.Query) ([]T, int, error) // Lists a page of records and the total
	Schema() query.Schema                                          // Queryable fields
}

// Options configures the generic handlers of one resource.
type Options[T models.Entity] struct {
	// CheckOwnership limits updates and deletes to the owner and admins.
	CheckOwnership bool
	// CheckVisibility hides private records from everyone but the owner and admins.
	CheckVisibility bool
	// IgnoreBody skips merging the request body on update.
	IgnoreBody bool
	// Populate resolves references before a single record is returned.
	Populate func(ctx context.Context, rec *T) error
	// PopulateList runs Populate on every listed record too.
	PopulateList bool
	// Mutate applies a route specific change after the body was merged.
	Mutate func(r *http.Request, rec *T) error
	// AfterUpdate runs once the update committed.
	AfterUpdate func(ctx context.Context, before, after *T)
	// AfterDelete runs once the delete committed.
	AfterDelete func(ctx context.Context, rec *T)
}

// prepare applies defaults and validates rec.
func prepare[T models.Entity](rec *T) error {
	if d, ok := any(rec).(models.Defaulter); ok {
		d.ApplyDefaults(time.Now())
	}
	return models.Check(rec)
}

// CreateOne returns a handler that inserts the record in the request body.
func CreateOne[T models.Entity](store Store[T], opts Options[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := new(T)
		if err := bind(w, r, rec, generatedFields...); err != nil {
			apperror.Write(w, err)
			return
		}
		if err := prepare(rec); err != nil {
			apperror.Write(w, err)
			return
		}

		created, err := store.Create(r.Context(), rec)
		if err != nil {
			apperror.Write(w, err)
			return
		}

		writeData(w, http.StatusCreated, created)
	}
}

// GetOne returns a handler that loads the record named by the id path
// parameter. Records the caller may not see are reported as missing.
func GetOne[T models.Entity](store Store[T], opts Options[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := load(r, store)
		if err != nil {
			apperror.Write(w, err)
			return
		}

		if opts.CheckVisibility && !access.IsVisible(*rec, request.User(r.Context())) {
			apperror.Write(w, repositories.ErrNotFound)
			return
		}

		if opts.Populate != nil {
			if err := opts.Populate(r.Context(), rec); err != nil {
				apperror.Write(w, err)
				return
			}
		}

		writeData(w, http.StatusOK, rec)
	}
}

// UpdateOne returns a handler that merges the request body into the record
// named by the id path parameter. Identity, ownership and bookkeeping fields
// keep their stored values.
func UpdateOne[T models.Entity](store Store[T], opts Options[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := load(r, store)
		if err != nil {
			apperror.Write(w, err)
			return
		}

		if opts.CheckOwnership && !access.IsOwner(*rec, request.User(r.Context())) {
			apperror.Write(w, ErrNotOwnerUpdate)
			return
		}

		before := *rec
		if !opts.IgnoreBody {
			if err := bind(w, r, rec, immutableFields...); err != nil {
				apperror.Write(w, err)
				return
			}
		}
		if opts.Mutate != nil {
			if err := opts.Mutate(r, rec); err != nil {
				apperror.Write(w, err)
				return
			}
		}
		if err := models.Check(rec); err != nil {
			apperror.Write(w, err)
			return
		}

		updated, err := store.Update(r.Context(), rec)
		if err != nil {
			apperror.Write(w, err)
			return
		}

		if opts.AfterUpdate != nil {
			ctx := r.Context()
			request.AfterCommit(ctx, func() { opts.AfterUpdate(ctx, &before, updated) })
		}

		writeData(w, http.StatusCreated, updated)
	}
}

// DeleteOne returns a handler that removes the record named by the id path
// parameter.
func DeleteOne[T models.Entity](store Store[T], opts Options[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := load(r, store)
		if err != nil {
			apperror.Write(w, err)
			return
		}

		if opts.CheckOwnership && !access.IsOwner(*rec, request.User(r.Context())) {
			apperror.Write(w, ErrNotOwnerDelete)
			return
		}

		if err := store.Delete(r.Context(), (*rec).EntityID()); err != nil {
			apperror.Write(w, err)
			return
		}

		if opts.AfterDelete != nil {
			ctx := r.Context()
			request.AfterCommit(ctx, func() { opts.AfterDelete(ctx, rec) })
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// GetAll returns a handler that lists records through the query builder.
// With CheckVisibility only public records and the caller's own are listed.
func GetAll[T models.Entity](store Store[T], opts Options[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := query.New(store.Schema(), r.URL.Query())
		if opts.CheckVisibility {
			cond, args := access.VisibilityScope(request.User(r.Context()))
			q.Where(cond, args...)
		}
		q.Filter().Sort().Select().Paginate()
		if err := q.Err(); err != nil {
			apperror.Write(w, err)
			return
		}

		rows, total, err := store.FindAll(r.Context(), q)
		if err != nil {
			apperror.Write(w, err)
			return
		}
		if rows == nil {
			rows = []T{}
		}
		if opts.PopulateList && opts.Populate != nil {
			for i := range rows {
				if err := opts.Populate(r.Context(), &rows[i]); err != nil {
					apperror.Write(w, err)
					return
				}
			}
		}

		data, err := q.Project(rows)
		if err != nil {
			apperror.Write(w, err)
			return
		}

		results := len(rows)
		writeJSON(w, http.StatusOK, Response{
			Status:  StatusSuccess,
			Results: &results,
			Total:   &total,
			Data:    data,
		})
	}
}

// RequireOwner answers for a missing record or one the caller does not own
// before the rest of the chain runs. It runs after Protect.
func RequireOwner[T models.Entity](store Store[T], denied error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec, err := load(r, store)
			if err != nil {
				apperror.Write(w, err)
				return
			}
			if !access.IsOwner(*rec, request.User(r.Context())) {
				apperror.Write(w, denied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func load[T models.Entity](r *http.Request, store Store[T]) (*T, error) {
	id, err := urlID(r, "id")
	if err != nil {
		return nil, err
	}
	return store.FindByID(r.Context(), id)
}
