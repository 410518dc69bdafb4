// Package request carries per-request state through the context: the
// authenticated user, the parsed body and hooks to run after commit.
package request

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/sbilibin2017/musicon/internal/models"
)

// MaxJSONBody limits JSON request bodies.
const MaxJSONBody = 10 << 10

type contextKey int

const (
	userKey contextKey = iota
	bodyKey
	hooksKey
)

// WithUser stores the authenticated user.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// User returns the authenticated user, or nil for anonymous requests.
func User(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}

// Body is a decoded request body before it is bound to a model. Middleware
// may rewrite fields (uploaded file URLs, owner) before the handler binds it.
type Body map[string]any

// Decode binds the body onto dst through its JSON form.
func (b Body) Decode(dst any) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// Without returns a copy of b minus keys.
func (b Body) Without(keys ...string) Body {
	out := make(Body, len(b))
	for k, v := range b {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// WithBody stores a parsed body.
func WithBody(ctx context.Context, b Body) context.Context {
	return context.WithValue(ctx, bodyKey, b)
}

// BodyFrom returns the body stored by middleware, if any.
func BodyFrom(ctx context.Context) (Body, bool) {
	b, ok := ctx.Value(bodyKey).(Body)
	return b, ok
}

// ReadBody returns the body stored in the context or decodes the JSON body
// of r, limited to MaxJSONBody bytes. An empty body decodes to an empty Body.
func ReadBody(w http.ResponseWriter, r *http.Request) (Body, error) {
	if b, ok := BodyFrom(r.Context()); ok {
		return b, nil
	}
	if r.Body == nil {
		return Body{}, nil
	}

	b := Body{}
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxJSONBody)).Decode(&b)
	if errors.Is(err, io.EOF) {
		return Body{}, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

type hooks struct {
	mu  sync.Mutex
	fns []func()
}

// WithHooks prepares ctx to collect after-commit hooks.
func WithHooks(ctx context.Context) context.Context {
	return context.WithValue(ctx, hooksKey, &hooks{})
}

// AfterCommit defers fn until the surrounding transaction commits. Without a
// transaction fn runs immediately.
func AfterCommit(ctx context.Context, fn func()) {
	h, ok := ctx.Value(hooksKey).(*hooks)
	if !ok {
		fn()
		return
	}
	h.mu.Lock()
	h.fns = append(h.fns, fn)
	h.mu.Unlock()
}

// RunHooks runs the collected hooks in registration order.
func RunHooks(ctx context.Context) {
	h, ok := ctx.Value(hooksKey).(*hooks)
	if !ok {
		return
	}
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
