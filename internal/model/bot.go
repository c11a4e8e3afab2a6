package model

import (
	"strings"
	"time"

	"github.com/toobased/socials-backend/internal/apperr"
	"github.com/toobased/socials-backend/internal/query"
)

type BotStatus string

const (
	BotActive BotStatus = "active"
	BotPaused BotStatus = "paused"
	BotError  BotStatus = "error"
)

func ParseBotStatus(value string) (BotStatus, error) {
	switch s := BotStatus(strings.ToLower(strings.TrimSpace(value))); s {
	case BotActive, BotPaused, BotError:
		return s, nil
	}
	return "", apperr.Validationf("unknown bot status %q", value)
}

func (s *BotStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseBotStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

type Bot struct {
	ID          string    `json:"id" bson:"_id"`
	Platform    Platform  `json:"platform" bson:"platform"`
	AccessToken string    `json:"access_token" bson:"access_token"`
	SocialID    string    `json:"social_id" bson:"social_id"`
	Username    string    `json:"username" bson:"username"`
	DisplayName string    `json:"display_name" bson:"display_name"`
	AvatarURL   string    `json:"avatar_url" bson:"avatar_url"`
	Status      BotStatus `json:"status" bson:"status"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	VerifiedAt  time.Time `json:"verified_at" bson:"verified_at"`
}

func (b Bot) DocID() string { return b.ID }

type BotCreate struct {
	Platform    Platform   `json:"platform"`
	AccessToken string     `json:"access_token"`
	Status      *BotStatus `json:"status,omitempty"`
}

func (c BotCreate) Validate() error {
	if c.Platform == "" {
		return apperr.Validationf("platform is required")
	}
	if strings.TrimSpace(c.AccessToken) == "" {
		return apperr.Validationf("access_token is required")
	}
	return nil
}

// NewBot assembles a bot from a verified create request.
func NewBot(in BotCreate, profile Profile, now time.Time) Bot {
	now = Timestamp(now)
	bot := Bot{
		ID:          query.NewID(),
		Platform:    in.Platform,
		AccessToken: in.AccessToken,
		Status:      BotActive,
		CreatedAt:   now,
	}
	if in.Status != nil {
		bot.Status = *in.Status
	}
	bot.ApplyProfile(profile, now)
	return bot
}

func (b *Bot) ApplyProfile(profile Profile, verifiedAt time.Time) {
	b.SocialID = profile.SocialID
	b.Username = profile.Username
	b.DisplayName = profile.DisplayName
	b.AvatarURL = profile.AvatarURL
	b.VerifiedAt = Timestamp(verifiedAt)
}

// BotUpdate is the sparse patch shape: nil fields are left untouched.
type BotUpdate struct {
	AccessToken *string    `json:"access_token,omitempty"`
	DisplayName *string    `json:"display_name,omitempty"`
	Status      *BotStatus `json:"status,omitempty"`
}

// TokenChanged reports whether applying u would replace the bot's token.
func (u BotUpdate) TokenChanged(b Bot) bool {
	return u.AccessToken != nil && *u.AccessToken != b.AccessToken
}

func (b *Bot) UpdateWith(u BotUpdate) *Bot {
	if u.AccessToken != nil {
		b.AccessToken = *u.AccessToken
	}
	if u.DisplayName != nil {
		b.DisplayName = *u.DisplayName
	}
	if u.Status != nil {
		b.Status = *u.Status
	}
	return b
}

type BotQuery struct {
	ID       *string
	Platform *Platform
	Username *string
	Status   *BotStatus
}

func (q BotQuery) Filter() (query.Filter, error) {
	if q.ID != nil {
		id, err := query.ParseID(*q.ID)
		if err != nil {
			return query.Filter{}, err
		}
		return query.ByID(id), nil
	}

	var b query.Builder
	if q.Platform != nil {
		b.Add("platform", string(*q.Platform))
	}
	b.AddString("username", q.Username)
	if q.Status != nil {
		b.Add("status", string(*q.Status))
	}
	return b.Filter(), nil
}

// Timestamp normalizes t to the precision every storage backend keeps.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
