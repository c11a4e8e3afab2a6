package model

import (
	"strings"

	"github.com/toobased/socials-backend/internal/apperr"
)

type Platform string

const (
	PlatformVK       Platform = "vk"
	PlatformTelegram Platform = "telegram"
)

var platforms = []Platform{PlatformVK, PlatformTelegram}

func Platforms() []Platform {
	out := make([]Platform, len(platforms))
	copy(out, platforms)
	return out
}

func ParsePlatform(value string) (Platform, error) {
	normalized := Platform(strings.ToLower(strings.TrimSpace(value)))
	for _, p := range platforms {
		if p == normalized {
			return p, nil
		}
	}
	return "", apperr.Validationf("unknown platform %q", value)
}

func (p *Platform) UnmarshalText(text []byte) error {
	parsed, err := ParsePlatform(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Profile is what a platform reports about the owner of an access token.
type Profile struct {
	SocialID    string `json:"social_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	IsBot       bool   `json:"is_bot"`
}

type Post struct {
	Platform Platform `json:"platform" bson:"platform"`
	URL      string   `json:"url" bson:"url"`
	PostID   string   `json:"post_id" bson:"post_id"`
	Author   string   `json:"author,omitempty" bson:"author,omitempty"`
	Title    string   `json:"title,omitempty" bson:"title,omitempty"`
	Text     string   `json:"text,omitempty" bson:"text,omitempty"`
	ImageURL string   `json:"image_url,omitempty" bson:"image_url,omitempty"`
	Likes    int      `json:"likes,omitempty" bson:"likes,omitempty"`
	Reposts  int      `json:"reposts,omitempty" bson:"reposts,omitempty"`
	Views    int      `json:"views,omitempty" bson:"views,omitempty"`
}
