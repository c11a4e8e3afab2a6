package model

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/toobased/socials-backend/internal/apperr"
	"github.com/toobased/socials-backend/internal/query"
)

func TestParsePlatformFailsOnUnknown(t *testing.T) {
	p, err := ParsePlatform(" VK ")
	if err != nil || p != PlatformVK {
		t.Fatalf("expected vk, got %q (%v)", p, err)
	}
	if _, err := ParsePlatform("myspace"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	var in BotCreate
	err = json.Unmarshal([]byte(`{"platform":"myspace","access_token":"x"}`), &in)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected decode to reject unknown platform, got %v", err)
	}
}

func TestNewBotAppliesProfile(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 123456789, time.FixedZone("x", 3600))
	bot := NewBot(BotCreate{Platform: PlatformTelegram, AccessToken: "good"}, Profile{
		SocialID:    "42",
		Username:    "helper_bot",
		DisplayName: "Helper",
	}, now)

	if _, err := query.ParseID(bot.ID); err != nil {
		t.Fatalf("expected generated id to be valid: %v", err)
	}
	if bot.Status != BotActive {
		t.Fatalf("expected default status active, got %q", bot.Status)
	}
	if bot.Username != "helper_bot" || bot.SocialID != "42" || bot.DisplayName != "Helper" {
		t.Fatalf("expected profile fields to be applied, got %+v", bot)
	}
	if bot.CreatedAt.Location() != time.UTC || bot.CreatedAt.Nanosecond() != 123000000 {
		t.Fatalf("expected created_at normalized to UTC milliseconds, got %v", bot.CreatedAt)
	}
}

func TestBotUpdateWithOnlyTouchesSetFields(t *testing.T) {
	before := NewBot(BotCreate{Platform: PlatformVK, AccessToken: "t1"}, Profile{Username: "u", DisplayName: "Old"}, time.Now())
	bot := before

	paused := BotPaused
	bot.UpdateWith(BotUpdate{Status: &paused})

	expected := before
	expected.Status = BotPaused
	if !reflect.DeepEqual(bot, expected) {
		t.Fatalf("expected only status to change\nwant %+v\ngot  %+v", expected, bot)
	}

	token := "t1"
	if (BotUpdate{AccessToken: &token}).TokenChanged(bot) {
		t.Fatalf("expected identical token not to count as a change")
	}
	token = "t2"
	if !(BotUpdate{AccessToken: &token}).TokenChanged(bot) {
		t.Fatalf("expected new token to count as a change")
	}
}

func TestBotQueryFilter(t *testing.T) {
	f, err := BotQuery{}.Filter()
	if err != nil || !f.IsAll() {
		t.Fatalf("expected empty query to match all, got %+v (%v)", f, err)
	}

	id := query.NewID()
	platform := PlatformVK
	f, err = BotQuery{ID: &id, Platform: &platform}.Filter()
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if got, ok := f.ID(); !ok || got != id {
		t.Fatalf("expected id short-circuit, got %+v", f.Fields())
	}

	f, err = BotQuery{Platform: &platform}.Filter()
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	fields := f.Fields()
	if len(fields) != 1 || fields[0].Name != "platform" || fields[0].Value != "vk" {
		t.Fatalf("unexpected fields %+v", fields)
	}

	bad := "123"
	if _, err := (BotQuery{ID: &bad}).Filter(); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected malformed id to fail, got %v", err)
	}
}

func TestBotTaskQueryValidatesBotID(t *testing.T) {
	bad := "bot-1"
	if _, err := (BotTaskQuery{BotID: &bad}).Filter(); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected malformed bot id to fail, got %v", err)
	}

	botID := query.NewID()
	taskType := "like"
	status := TaskDone
	f, err := BotTaskQuery{BotID: &botID, TaskType: &taskType, Status: &status}.Filter()
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(f.Fields()) != 3 {
		t.Fatalf("expected 3 fields, got %+v", f.Fields())
	}
}

func TestBotTaskCreateNormalize(t *testing.T) {
	in := BotTaskCreate{
		BotID:    "6F9619FF-8B86-D011-B42D-00C04FC964FF",
		TaskType: " Like ",
		Payload:  TaskPayload{TargetURL: "https://vk.com/wall1_1", Post: &Post{PostID: "forged"}},
	}
	out, err := in.Normalize()
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if out.BotID != "6f9619ff-8b86-d011-b42d-00c04fc964ff" || out.TaskType != "like" {
		t.Fatalf("unexpected normalized request %+v", out)
	}
	if out.Payload.Post != nil {
		t.Fatalf("expected client supplied post to be dropped")
	}

	if _, err := (BotTaskCreate{BotID: in.BotID}).Normalize(); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected missing task type to fail, got %v", err)
	}
}

func TestNewBotTaskDerivesDefaultsFromBot(t *testing.T) {
	bot := NewBot(BotCreate{Platform: PlatformTelegram, AccessToken: "x"}, Profile{Username: "helper_bot"}, time.Now())
	taskType := TaskTypeCatalog()[1]

	task := NewBotTask(BotTaskCreate{BotID: bot.ID, TaskType: taskType.ID}, bot, taskType, time.Now())
	if task.Platform != PlatformTelegram {
		t.Fatalf("expected platform from bot, got %q", task.Platform)
	}
	if task.Status != TaskPending || task.Payload.Count != 1 {
		t.Fatalf("expected pending task with count 1, got %+v", task)
	}
	if task.Title != "Repost by @helper_bot" {
		t.Fatalf("unexpected title %q", task.Title)
	}
}

func TestBotTaskUpdateWith(t *testing.T) {
	before := BotTask{ID: query.NewID(), BotID: query.NewID(), Title: "a", Status: TaskPending, Payload: TaskPayload{Count: 3}}
	task := before
	payload := TaskPayload{Count: 5, Text: "hi"}
	task.UpdateWith(BotTaskUpdate{Payload: &payload})

	if task.Title != before.Title || task.Status != before.Status || task.ID != before.ID {
		t.Fatalf("expected untouched fields to survive, got %+v", task)
	}
	if task.Payload != payload {
		t.Fatalf("expected payload replaced, got %+v", task.Payload)
	}
}

func TestBotTaskUpdateWithGuardsResolvedPost(t *testing.T) {
	resolved := &Post{Platform: PlatformVK, URL: "https://vk.com/wall1_1", Text: "real"}
	task := BotTask{Payload: TaskPayload{TargetURL: "https://vk.com/wall1_1", Count: 1, Post: resolved}}

	forged := TaskPayload{TargetURL: "https://vk.com/wall1_1", Count: 2, Post: &Post{Text: "forged"}}
	task.UpdateWith(BotTaskUpdate{Payload: &forged})
	if task.Payload.Post != resolved || task.Payload.Count != 2 {
		t.Fatalf("expected resolved post to survive a same-target patch, got %+v", task.Payload)
	}

	retarget := TaskPayload{TargetURL: "https://vk.com/wall9_9", Post: &Post{Text: "forged"}}
	task.UpdateWith(BotTaskUpdate{Payload: &retarget})
	if task.Payload.Post != nil || task.Payload.TargetURL != "https://vk.com/wall9_9" {
		t.Fatalf("expected post dropped when target changes, got %+v", task.Payload)
	}
}

func TestSocialSourceReplaceWithKeepsIdentity(t *testing.T) {
	source := NewSocialSource(SocialSourceCreate{
		Platform: PlatformVK,
		URL:      "u1",
		Metadata: map[string]string{"title": "News"},
	}, time.Now())
	id, created := source.ID, source.CreatedAt

	source.ReplaceWith(SocialSourceCreate{Platform: PlatformTelegram, URL: "u2", Metadata: map[string]string{}})

	if source.ID != id || !source.CreatedAt.Equal(created) {
		t.Fatalf("expected identity to be preserved")
	}
	if source.Platform != PlatformTelegram || source.URL != "u2" || len(source.Metadata) != 0 {
		t.Fatalf("expected content fields overwritten, got %+v", source)
	}
}

func TestTaskTypeSupports(t *testing.T) {
	like := TaskTypeCatalog()[0]
	if !like.Supports(PlatformVK) || like.Supports(PlatformTelegram) {
		t.Fatalf("unexpected platform support for %q", like.ID)
	}
}
