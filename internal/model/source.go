package model

import (
	"time"

	"github.com/toobased/socials-backend/internal/apperr"
	"github.com/toobased/socials-backend/internal/query"
)

type SocialSource struct {
	ID        string            `json:"id" bson:"_id"`
	Platform  Platform          `json:"platform" bson:"platform"`
	URL       string            `json:"url" bson:"url"`
	Metadata  map[string]string `json:"metadata" bson:"metadata"`
	CreatedAt time.Time         `json:"created_at" bson:"created_at"`
}

func (s SocialSource) DocID() string { return s.ID }

// SocialSourceCreate is used both to create a source and to overwrite it.
type SocialSourceCreate struct {
	Platform Platform          `json:"platform"`
	URL      string            `json:"url"`
	Metadata map[string]string `json:"metadata"`
}

func (c SocialSourceCreate) Validate() error {
	if c.Platform == "" {
		return apperr.Validationf("platform is required")
	}
	return nil
}

func NewSocialSource(in SocialSourceCreate, now time.Time) SocialSource {
	return SocialSource{
		ID:        query.NewID(),
		Platform:  in.Platform,
		URL:       in.URL,
		Metadata:  copyMetadata(in.Metadata),
		CreatedAt: Timestamp(now),
	}
}

// ReplaceWith overwrites every mutable field from a create-shaped payload.
// Only the identifier and creation time survive.
func (s *SocialSource) ReplaceWith(in SocialSourceCreate) *SocialSource {
	s.Platform = in.Platform
	s.URL = in.URL
	s.Metadata = copyMetadata(in.Metadata)
	return s
}

type SocialSourceQuery struct {
	ID       *string
	Platform *Platform
	URL      *string
}

func (q SocialSourceQuery) Filter() (query.Filter, error) {
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
	b.AddString("url", q.URL)
	return b.Filter(), nil
}

func copyMetadata(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
