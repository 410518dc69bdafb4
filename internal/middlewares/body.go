package middlewares

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sbilibin2017/musicon/internal/apperror"
	"github.com/sbilibin2017/musicon/internal/models"
	"github.com/sbilibin2017/musicon/internal/request"
)

//go:generate mockgen -source=body.go -destination=body_mock.go -package=middlewares

// ReferenceChecker counts track references that point at nothing.
type ReferenceChecker interface {
	MissingArtists(ctx context.Context, refs models.RefList[models.User]) (int, error) // Artists that do not exist
	MissingGenres(ctx context.Context, refs models.RefList[models.Genre]) (int, error) // Genres that do not exist
}

// withBody reads the request body, lets fn rewrite it and passes the result
// on in the request context.
func withBody(next http.Handler, fn func(r *http.Request, body request.Body) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := request.ReadBody(w, r)
		if err != nil {
			apperror.Write(w, err)
			return
		}
		if err := fn(r, body); err != nil {
			apperror.Write(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(request.WithBody(r.Context(), body)))
	})
}

// SetCreatedBy makes the caller the owner of the record being created. It
// runs after Protect.
func SetCreatedBy(next http.Handler) http.Handler {
	return withBody(next, func(r *http.Request, body request.Body) error {
		u := request.User(r.Context())
		if u == nil {
			return ErrNotLoggedIn
		}
		body["createdBy"] = u.ID.String()
		return nil
	})
}

// NormalizeLists turns fields sent as a single or comma separated string
// into lists, as multipart forms carry them.
func NormalizeLists(fields ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return withBody(next, func(_ *http.Request, body request.Body) error {
			for _, f := range fields {
				if s, ok := body[f].(string); ok {
					body[f] = splitList(s)
				}
			}
			return nil
		})
	}
}

func splitList(s string) []any {
	out := []any{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// TrackReferences rejects track writes whose artists or genres repeat or do
// not exist. Absent fields are not checked.
func TrackReferences(checker ReferenceChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return withBody(next, func(r *http.Request, body request.Body) error {
			var refs struct {
				Artists models.RefList[models.User]  `json:"artists"`
				Genres  models.RefList[models.Genre] `json:"genres"`
			}
			if err := body.Decode(&refs); err != nil {
				return apperror.Wrap(err, http.StatusBadRequest, "Invalid input data. Artists and genres must be lists of ids")
			}

			if refs.Artists.HasDuplicates() {
				return apperror.BadRequest("Invalid input data. Duplicate artists are not allowed")
			}
			if refs.Genres.HasDuplicates() {
				return apperror.BadRequest("Invalid input data. Duplicate genres are not allowed")
			}

			if len(refs.Artists) > 0 {
				n, err := checker.MissingArtists(r.Context(), refs.Artists)
				if err != nil {
					return err
				}
				if n > 0 {
					return apperror.BadRequest(fmt.Sprintf("Invalid input data. %d of the given artists do not exist", n))
				}
			}
			if len(refs.Genres) > 0 {
				n, err := checker.MissingGenres(r.Context(), refs.Genres)
				if err != nil {
					return err
				}
				if n > 0 {
					return apperror.BadRequest(fmt.Sprintf("Invalid input data. %d of the given genres do not exist", n))
				}
			}
			return nil
		})
	}
}
