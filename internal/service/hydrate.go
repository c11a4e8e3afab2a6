package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/toobased/socials-backend/internal/apperr"
	"github.com/toobased/socials-backend/internal/db"
	"github.com/toobased/socials-backend/internal/model"
	"github.com/toobased/socials-backend/internal/platform"
)

// Stage is a step of the creation pipeline.
type Stage string

const (
	StageReceived   Stage = "received"
	StageValidating Stage = "validating"
	StageEnriching  Stage = "enriching"
	StagePersisted  Stage = "persisted"
)

// HydrationError reports the stage at which a creation was aborted.
// Nothing is stored when it is returned.
type HydrationError struct {
	Entity string
	Stage  Stage
	Err    error
}

func (e *HydrationError) Error() string {
	return fmt.Sprintf("hydrate %s: %s: %v", e.Entity, e.Stage, e.Err)
}

func (e *HydrationError) Unwrap() error {
	return e.Err
}

// Hydrator validates and enriches new bots and tasks before persisting them.
type Hydrator struct {
	store     *db.Store
	platforms platform.Client
	now       func() time.Time
}

func NewHydrator(store *db.Store, platforms platform.Client) *Hydrator {
	return &Hydrator{store: store, platforms: platforms, now: time.Now}
}

// CheckToken runs only the validating stage of bot creation.
func (h *Hydrator) CheckToken(ctx context.Context, p model.Platform, token string) (model.Profile, error) {
	in := model.BotCreate{Platform: p, AccessToken: token}
	if err := in.Validate(); err != nil {
		return model.Profile{}, h.fail("bot", StageReceived, err)
	}
	profile, err := h.platforms.VerifyToken(ctx, p, token)
	if err != nil {
		return model.Profile{}, h.fail("bot", StageValidating, err)
	}
	return profile, nil
}

func (h *Hydrator) Bot(ctx context.Context, in model.BotCreate) (model.Bot, error) {
	if err := in.Validate(); err != nil {
		return model.Bot{}, h.fail("bot", StageReceived, err)
	}

	profile, err := h.platforms.VerifyToken(ctx, in.Platform, in.AccessToken)
	if err != nil {
		return model.Bot{}, h.fail("bot", StageValidating, err)
	}

	bot := model.NewBot(in, profile, h.now())

	if err := h.store.Bots.InsertOne(ctx, bot); err != nil {
		return model.Bot{}, h.fail("bot", StagePersisted, err)
	}
	return bot, nil
}

func (h *Hydrator) Task(ctx context.Context, in model.BotTaskCreate) (model.BotTask, error) {
	in, err := in.Normalize()
	if err != nil {
		return model.BotTask{}, h.fail("task", StageReceived, err)
	}

	bot, taskType, err := h.resolveTaskRefs(ctx, in)
	if err != nil {
		return model.BotTask{}, h.fail("task", StageValidating, err)
	}

	task := model.NewBotTask(in, bot, taskType, h.now())
	if taskType.RequiresTarget {
		h.attachPost(ctx, &task)
	}

	if err := h.store.Tasks.InsertOne(ctx, task); err != nil {
		return model.BotTask{}, h.fail("task", StagePersisted, err)
	}
	return task, nil
}

// attachPost resolves the target post. A failed lookup leaves payload.post
// empty and does not block the task.
func (h *Hydrator) attachPost(ctx context.Context, task *model.BotTask) {
	post, err := h.platforms.FetchPost(ctx, task.Platform, task.Payload.TargetURL)
	if err != nil {
		log.Printf("hydrate task: %s: post lookup skipped: %v", StageEnriching, err)
		return
	}
	task.Payload.Post = &post
}

func (h *Hydrator) resolveTaskRefs(ctx context.Context, in model.BotTaskCreate) (model.Bot, model.TaskType, error) {
	taskType, err := h.store.TaskTypes.FindByID(ctx, in.TaskType)
	if err != nil {
		return model.Bot{}, model.TaskType{}, err
	}
	if taskType == nil {
		return model.Bot{}, model.TaskType{}, apperr.Validationf("unknown task type %q", in.TaskType)
	}

	bot, err := h.store.Bots.FindByID(ctx, in.BotID)
	if err != nil {
		return model.Bot{}, model.TaskType{}, err
	}
	if bot == nil {
		return model.Bot{}, model.TaskType{}, apperr.Validationf("bot %s does not exist", in.BotID)
	}

	if !taskType.Supports(bot.Platform) {
		return model.Bot{}, model.TaskType{}, apperr.Validationf("task type %q is not available on %s", taskType.ID, bot.Platform)
	}
	if taskType.RequiresTarget && strings.TrimSpace(in.Payload.TargetURL) == "" {
		return model.Bot{}, model.TaskType{}, apperr.Validationf("task type %q requires payload.target_url", taskType.ID)
	}
	return *bot, *taskType, nil
}

func (h *Hydrator) fail(entity string, stage Stage, err error) error {
	herr := &HydrationError{Entity: entity, Stage: stage, Err: err}
	log.Printf("%v", herr)
	return herr
}
