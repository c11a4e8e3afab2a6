// Package platform verifies access tokens and fetches posts on the social
// platforms bots live on.
package platform

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/toobased/socials-backend/internal/apperr"
	"github.com/toobased/socials-backend/internal/model"
)

// Adapter talks to a single platform.
type Adapter interface {
	Platform() model.Platform
	VerifyToken(ctx context.Context, token string) (model.Profile, error)
	FetchPost(ctx context.Context, url string) (model.Post, error)
}

// Client dispatches to the adapter of the requested platform.
type Client interface {
	VerifyToken(ctx context.Context, p model.Platform, token string) (model.Profile, error)
	FetchPost(ctx context.Context, p model.Platform, url string) (model.Post, error)
}

type Registry struct {
	adapters map[model.Platform]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: map[model.Platform]Adapter{}}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

func (r *Registry) Register(a Adapter) {
	r.adapters[a.Platform()] = a
}

func (r *Registry) Get(p model.Platform) (Adapter, bool) {
	a, ok := r.adapters[p]
	return a, ok
}

var _ Client = (*Registry)(nil)

func (r *Registry) VerifyToken(ctx context.Context, p model.Platform, token string) (model.Profile, error) {
	a, err := r.adapter(p)
	if err != nil {
		return model.Profile{}, err
	}
	return a.VerifyToken(ctx, token)
}

func (r *Registry) FetchPost(ctx context.Context, p model.Platform, url string) (model.Post, error) {
	a, err := r.adapter(p)
	if err != nil {
		return model.Post{}, err
	}
	return a.FetchPost(ctx, url)
}

func (r *Registry) adapter(p model.Platform) (Adapter, error) {
	a, ok := r.adapters[p]
	if !ok {
		return nil, apperr.Validationf("platform %q is not supported", p)
	}
	return a, nil
}

// Options configures the default adapters.
type Options struct {
	VKBaseURL           string
	VKVersion           string
	VKServiceToken      string
	TelegramAPIEndpoint string
	TelegramWebURL      string
	Timeout             time.Duration
}

// NewDefaultRegistry wires every supported platform.
func NewDefaultRegistry(opts Options) *Registry {
	client := &http.Client{Timeout: opts.Timeout}
	return NewRegistry(
		NewVK(opts.VKBaseURL, opts.VKVersion, opts.VKServiceToken, client),
		NewTelegram(opts.TelegramAPIEndpoint, opts.TelegramWebURL, client),
	)
}

// transportError classifies a failed HTTP round trip. The request URL is
// dropped from the cause because it may carry an access token.
func transportError(op string, err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	return apperr.Upstream(op, err)
}
