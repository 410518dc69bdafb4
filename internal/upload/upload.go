// Package upload turns multipart track forms into request bodies whose file
// fields hold the public URLs of the uploaded objects.
package upload

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sbilibin2017/musicon/internal/apperror"
	"github.com/sbilibin2017/musicon/internal/logger"
	"github.com/sbilibin2017/musicon/internal/request"
	"golang.org/x/sync/errgroup"
)

//go:generate mockgen -source=upload.go -destination=upload_mock.go -package=upload

// Accepted media kinds.
const (
	KindImage = "image"
	KindAudio = "audio"
)

// formOverhead is allowed on top of the file limits for plain form fields.
const formOverhead = 1 << 20

// Uploader stores file content and returns its public URL.
type Uploader interface {
	Key(prefix, filename string) string                                                              // Builds a unique object key
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) // Stores an object
}

// Cleaner deletes objects that were uploaded for a request that then failed.
type Cleaner interface {
	Schedule(ctx context.Context, reason string, urls ...string) // Queues deletion of urls
}

// Rule describes one accepted file field.
type Rule struct {
	Field    string
	Kind     string
	MaxBytes int64
}

// Image accepts an image/* file of at most maxBytes.
func Image(field string, maxBytes int64) Rule {
	return Rule{Field: field, Kind: KindImage, MaxBytes: maxBytes}
}

// Audio accepts an audio/* file of at most maxBytes.
func Audio(field string, maxBytes int64) Rule {
	return Rule{Field: field, Kind: KindAudio, MaxBytes: maxBytes}
}

// check validates the declared MIME type and size of fh.
func (r Rule) check(fh *multipart.FileHeader) error {
	if !strings.HasPrefix(fh.Header.Get("Content-Type"), r.Kind+"/") {
		return apperror.BadRequest(fmt.Sprintf("%s must be %s file", r.Field, r.Kind))
	}
	if fh.Size > r.MaxBytes {
		return apperror.BadRequest(fmt.Sprintf("%s must not exceed %s", r.Field, FormatSize(r.MaxBytes)))
	}
	return nil
}

type pending struct {
	rule Rule
	file *multipart.FileHeader
}

// Files parses multipart requests, validates the files named by rules,
// uploads them under prefix and stores the form as the request body with
// each file field replaced by its URL. Other requests pass through. When
// the wrapped handler answers with an error the uploaded objects are handed
// to cleaner.
func Files(uploader Uploader, cleaner Cleaner, prefix string, rules ...Rule) func(http.Handler) http.Handler {
	var limit int64 = formOverhead
	for _, rule := range rules {
		limit += rule.MaxBytes
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if mediaType != "multipart/form-data" {
				next.ServeHTTP(w, r)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			if err := r.ParseMultipartForm(limit); err != nil {
				logger.Log.Infow("Invalid multipart form", "error", err)
				apperror.Write(w, apperror.BadRequest("Invalid multipart form"))
				return
			}
			defer r.MultipartForm.RemoveAll()

			body := FormBody(r.MultipartForm.Value)

			var files []pending
			for _, rule := range rules {
				fhs := r.MultipartForm.File[rule.Field]
				if len(fhs) == 0 {
					continue
				}
				if err := rule.check(fhs[0]); err != nil {
					apperror.Write(w, err)
					return
				}
				files = append(files, pending{rule: rule, file: fhs[0]})
			}

			urls, err := uploadAll(r.Context(), uploader, prefix, files)
			if err != nil {
				if cleaner != nil {
					cleaner.Schedule(r.Context(), "upload failed", urls...)
				}
				apperror.Write(w, err)
				return
			}
			for i, f := range files {
				body[f.rule.Field] = urls[i]
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(request.WithBody(r.Context(), body)))

			if ww.Status() >= http.StatusBadRequest && cleaner != nil {
				cleaner.Schedule(r.Context(), "request failed", urls...)
			}
		})
	}
}

// uploadAll uploads files concurrently. On failure it still returns the
// URLs of the uploads that completed.
func uploadAll(ctx context.Context, uploader Uploader, prefix string, files []pending) ([]string, error) {
	urls := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex

	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			src, err := f.file.Open()
			if err != nil {
				return err
			}
			defer src.Close()

			key := uploader.Key(prefix, f.file.Filename)
			url, err := uploader.Upload(gctx, key, f.file.Header.Get("Content-Type"), src, f.file.Size)
			if err != nil {
				return err
			}
			mu.Lock()
			urls[i] = url
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	return urls, err
}

// FormBody converts form values into a body. Repeated fields become lists.
func FormBody(values map[string][]string) request.Body {
	body := make(request.Body, len(values))
	for k, vs := range values {
		switch len(vs) {
		case 0:
		case 1:
			body[k] = vs[0]
		default:
			list := make([]any, len(vs))
			for i, v := range vs {
				list[i] = v
			}
			body[k] = list
		}
	}
	return body
}

// FormatSize renders a byte count for error messages.
func FormatSize(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%d MB", n>>20)
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%d KB", n>>10)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}
