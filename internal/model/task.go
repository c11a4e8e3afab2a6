package model

import (
	"strings"
	"time"

	"github.com/toobased/socials-backend/internal/apperr"
	"github.com/toobased/socials-backend/internal/query"
)

type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskRunning TaskStatus = "running"
	TaskDone    TaskStatus = "done"
	TaskFailed  TaskStatus = "failed"
	TaskPaused  TaskStatus = "paused"
)

func ParseTaskStatus(value string) (TaskStatus, error) {
	switch s := TaskStatus(strings.ToLower(strings.TrimSpace(value))); s {
	case TaskPending, TaskRunning, TaskDone, TaskFailed, TaskPaused:
		return s, nil
	}
	return "", apperr.Validationf("unknown task status %q", value)
}

func (s *TaskStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseTaskStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

type TaskPayload struct {
	TargetURL string `json:"target_url,omitempty" bson:"target_url,omitempty"`
	Count     int    `json:"count,omitempty" bson:"count,omitempty"`
	Text      string `json:"text,omitempty" bson:"text,omitempty"`
	Post      *Post  `json:"post,omitempty" bson:"post,omitempty"`
}

type BotTask struct {
	ID        string      `json:"id" bson:"_id"`
	BotID     string      `json:"bot_id" bson:"bot_id"`
	Platform  Platform    `json:"platform" bson:"platform"`
	TaskType  string      `json:"task_type" bson:"task_type"`
	Title     string      `json:"title" bson:"title"`
	Payload   TaskPayload `json:"payload" bson:"payload"`
	Status    TaskStatus  `json:"status" bson:"status"`
	CreatedAt time.Time   `json:"created_at" bson:"created_at"`
}

func (t BotTask) DocID() string { return t.ID }

type BotTaskCreate struct {
	BotID    string      `json:"bot_id"`
	TaskType string      `json:"task_type"`
	Title    string      `json:"title,omitempty"`
	Payload  TaskPayload `json:"payload"`
}

// Normalize validates the request shape and canonicalizes the bot reference.
func (c BotTaskCreate) Normalize() (BotTaskCreate, error) {
	botID, err := query.ParseID(c.BotID)
	if err != nil {
		return BotTaskCreate{}, err
	}
	c.BotID = botID
	c.TaskType = strings.ToLower(strings.TrimSpace(c.TaskType))
	if c.TaskType == "" {
		return BotTaskCreate{}, apperr.Validationf("task_type is required")
	}
	if c.Payload.Count < 0 {
		return BotTaskCreate{}, apperr.Validationf("payload.count must not be negative")
	}
	c.Payload.Post = nil
	return c, nil
}

// NewBotTask fills bot-derived defaults into a task for bot.
func NewBotTask(in BotTaskCreate, bot Bot, taskType TaskType, now time.Time) BotTask {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = taskType.Title
		if bot.Username != "" {
			title += " by @" + bot.Username
		}
	}
	payload := in.Payload
	if payload.Count == 0 {
		payload.Count = 1
	}
	return BotTask{
		ID:        query.NewID(),
		BotID:     bot.ID,
		Platform:  bot.Platform,
		TaskType:  taskType.ID,
		Title:     title,
		Payload:   payload,
		Status:    TaskPending,
		CreatedAt: Timestamp(now),
	}
}

type BotTaskUpdate struct {
	Title   *string      `json:"title,omitempty"`
	Status  *TaskStatus  `json:"status,omitempty"`
	Payload *TaskPayload `json:"payload,omitempty"`
}

// UpdateWith applies a sparse patch. A patched payload never carries a
// client-supplied post; the resolved post survives only while target_url
// is unchanged.
func (t *BotTask) UpdateWith(u BotTaskUpdate) *BotTask {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.Payload != nil {
		payload := *u.Payload
		payload.Post = nil
		if payload.TargetURL == t.Payload.TargetURL {
			payload.Post = t.Payload.Post
		}
		t.Payload = payload
	}
	return t
}

type BotTaskQuery struct {
	ID       *string
	BotID    *string
	Platform *Platform
	TaskType *string
	Status   *TaskStatus
}

func (q BotTaskQuery) Filter() (query.Filter, error) {
	if q.ID != nil {
		id, err := query.ParseID(*q.ID)
		if err != nil {
			return query.Filter{}, err
		}
		return query.ByID(id), nil
	}

	var b query.Builder
	if q.BotID != nil {
		botID, err := query.ParseID(*q.BotID)
		if err != nil {
			return query.Filter{}, err
		}
		b.Add("bot_id", botID)
	}
	if q.Platform != nil {
		b.Add("platform", string(*q.Platform))
	}
	b.AddString("task_type", q.TaskType)
	if q.Status != nil {
		b.Add("status", string(*q.Status))
	}
	return b.Filter(), nil
}
