// Package service implements the operations exposed for every resource.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/toobased/socials-backend/internal/apperr"
	"github.com/toobased/socials-backend/internal/db"
	"github.com/toobased/socials-backend/internal/model"
	"github.com/toobased/socials-backend/internal/platform"
	"github.com/toobased/socials-backend/internal/query"
)

type Service struct {
	Bots      *Bots
	Tasks     *Tasks
	Sources   *Sources
	TaskTypes *TaskTypes
	Posts     *Posts
}

func New(store *db.Store, platforms platform.Client) *Service {
	hydrator := NewHydrator(store, platforms)
	return &Service{
		Bots:      &Bots{store: store, platforms: platforms, hydrator: hydrator},
		Tasks:     &Tasks{store: store, hydrator: hydrator},
		Sources:   &Sources{store: store},
		TaskTypes: &TaskTypes{store: store},
		Posts:     &Posts{platforms: platforms},
	}
}

type Bots struct {
	store     *db.Store
	platforms platform.Client
	hydrator  *Hydrator
}

// List returns matching bots in storage order.
func (s *Bots) List(ctx context.Context, q model.BotQuery) ([]model.Bot, error) {
	filter, err := q.Filter()
	if err != nil {
		return nil, err
	}
	return s.store.Bots.Find(ctx, filter)
}

// Get returns nil when no bot has the id.
func (s *Bots) Get(ctx context.Context, rawID string) (*model.Bot, error) {
	id, err := query.ParseID(rawID)
	if err != nil {
		return nil, err
	}
	return s.store.Bots.FindByID(ctx, id)
}

func (s *Bots) Create(ctx context.Context, in model.BotCreate) (model.Bot, error) {
	return s.hydrator.Bot(ctx, in)
}

// CheckByToken verifies a token without creating a bot.
func (s *Bots) CheckByToken(ctx context.Context, p model.Platform, token string) (model.Profile, error) {
	return s.hydrator.CheckToken(ctx, p, token)
}

// Patch applies a sparse update. A new access token is verified first and
// refreshes the profile fields.
func (s *Bots) Patch(ctx context.Context, rawID string, u model.BotUpdate) (model.Bot, error) {
	id, err := query.ParseID(rawID)
	if err != nil {
		return model.Bot{}, err
	}
	bot, err := s.store.Bots.FindByID(ctx, id)
	if err != nil {
		return model.Bot{}, err
	}
	if bot == nil {
		return model.Bot{}, apperr.NotFoundf("bot %s", id)
	}

	if u.TokenChanged(*bot) {
		if strings.TrimSpace(*u.AccessToken) == "" {
			return model.Bot{}, apperr.Validationf("access_token must not be empty")
		}
		profile, err := s.platforms.VerifyToken(ctx, bot.Platform, *u.AccessToken)
		if err != nil {
			return model.Bot{}, err
		}
		bot.ApplyProfile(profile, time.Now())
	}

	bot.UpdateWith(u)
	if err := s.store.Bots.UpdateByID(ctx, id, *bot); err != nil {
		return model.Bot{}, err
	}
	return *bot, nil
}

// Delete removes every bot matching q.
func (s *Bots) Delete(ctx context.Context, q model.BotQuery) (int64, error) {
	filter, err := q.Filter()
	if err != nil {
		return 0, err
	}
	return s.store.Bots.DeleteMany(ctx, filter)
}

type Tasks struct {
	store    *db.Store
	hydrator *Hydrator
}

func (s *Tasks) List(ctx context.Context, q model.BotTaskQuery) ([]model.BotTask, error) {
	filter, err := q.Filter()
	if err != nil {
		return nil, err
	}
	return s.store.Tasks.Find(ctx, filter)
}

func (s *Tasks) Get(ctx context.Context, rawID string) (*model.BotTask, error) {
	id, err := query.ParseID(rawID)
	if err != nil {
		return nil, err
	}
	return s.store.Tasks.FindByID(ctx, id)
}

func (s *Tasks) Create(ctx context.Context, in model.BotTaskCreate) (model.BotTask, error) {
	return s.hydrator.Task(ctx, in)
}

func (s *Tasks) Patch(ctx context.Context, rawID string, u model.BotTaskUpdate) (model.BotTask, error) {
	id, err := query.ParseID(rawID)
	if err != nil {
		return model.BotTask{}, err
	}
	task, err := s.store.Tasks.FindByID(ctx, id)
	if err != nil {
		return model.BotTask{}, err
	}
	if task == nil {
		return model.BotTask{}, apperr.NotFoundf("task %s", id)
	}
	if u.Payload != nil && u.Payload.Count < 0 {
		return model.BotTask{}, apperr.Validationf("payload.count must not be negative")
	}

	task.UpdateWith(u)
	if err := s.store.Tasks.UpdateByID(ctx, id, *task); err != nil {
		return model.BotTask{}, err
	}
	return *task, nil
}

func (s *Tasks) Delete(ctx context.Context, q model.BotTaskQuery) (int64, error) {
	filter, err := q.Filter()
	if err != nil {
		return 0, err
	}
	return s.store.Tasks.DeleteMany(ctx, filter)
}

// Sources manages social sources. They need no external validation.
type Sources struct {
	store *db.Store
}

func (s *Sources) List(ctx context.Context, q model.SocialSourceQuery) ([]model.SocialSource, error) {
	filter, err := q.Filter()
	if err != nil {
		return nil, err
	}
	return s.store.Sources.Find(ctx, filter)
}

func (s *Sources) Get(ctx context.Context, rawID string) (*model.SocialSource, error) {
	id, err := query.ParseID(rawID)
	if err != nil {
		return nil, err
	}
	return s.store.Sources.FindByID(ctx, id)
}

func (s *Sources) Create(ctx context.Context, in model.SocialSourceCreate) (model.SocialSource, error) {
	if err := in.Validate(); err != nil {
		return model.SocialSource{}, err
	}
	source := model.NewSocialSource(in, time.Now())
	if err := s.store.Sources.InsertOne(ctx, source); err != nil {
		return model.SocialSource{}, err
	}
	return source, nil
}

// Replace overwrites platform, url and metadata with the create-shaped
// payload. Unlike the sparse patches, absent fields are cleared.
func (s *Sources) Replace(ctx context.Context, rawID string, in model.SocialSourceCreate) (model.SocialSource, error) {
	id, err := query.ParseID(rawID)
	if err != nil {
		return model.SocialSource{}, err
	}
	if err := in.Validate(); err != nil {
		return model.SocialSource{}, err
	}
	source, err := s.store.Sources.FindByID(ctx, id)
	if err != nil {
		return model.SocialSource{}, err
	}
	if source == nil {
		return model.SocialSource{}, apperr.NotFoundf("social source %s", id)
	}

	source.ReplaceWith(in)
	if err := s.store.Sources.UpdateByID(ctx, id, *source); err != nil {
		return model.SocialSource{}, err
	}
	return *source, nil
}

func (s *Sources) Delete(ctx context.Context, q model.SocialSourceQuery) (int64, error) {
	filter, err := q.Filter()
	if err != nil {
		return 0, err
	}
	return s.store.Sources.DeleteMany(ctx, filter)
}

// TaskTypes exposes the read-only catalog.
type TaskTypes struct {
	store *db.Store
}

func (s *TaskTypes) List(ctx context.Context) ([]model.TaskType, error) {
	return s.store.TaskTypes.Find(ctx, query.All())
}

type Posts struct {
	platforms platform.Client
}

func (s *Posts) GetByURL(ctx context.Context, p model.Platform, url string) (model.Post, error) {
	if p == "" {
		return model.Post{}, apperr.Validationf("platform is required")
	}
	if strings.TrimSpace(url) == "" {
		return model.Post{}, apperr.Validationf("url is required")
	}
	return s.platforms.FetchPost(ctx, p, strings.TrimSpace(url))
}
