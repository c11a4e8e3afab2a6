package model

// TaskType is an entry of the read-only task-type catalog.
type TaskType struct {
	ID             string     `json:"id" bson:"_id"`
	Title          string     `json:"title" bson:"title"`
	Description    string     `json:"description" bson:"description"`
	Platforms      []Platform `json:"platforms" bson:"platforms"`
	RequiresTarget bool       `json:"requires_target" bson:"requires_target"`
}

func (t TaskType) DocID() string { return t.ID }

func (t TaskType) Supports(p Platform) bool {
	for _, supported := range t.Platforms {
		if supported == p {
			return true
		}
	}
	return false
}

// TaskTypeCatalog is the fixed list of task types seeded into storage.
func TaskTypeCatalog() []TaskType {
	return []TaskType{
		{
			ID:             "like",
			Title:          "Like post",
			Description:    "Put a like on the target post.",
			Platforms:      []Platform{PlatformVK},
			RequiresTarget: true,
		},
		{
			ID:             "repost",
			Title:          "Repost",
			Description:    "Share the target post to the bot's own wall or channel.",
			Platforms:      []Platform{PlatformVK, PlatformTelegram},
			RequiresTarget: true,
		},
		{
			ID:             "comment",
			Title:          "Comment post",
			Description:    "Leave payload.text as a comment under the target post.",
			Platforms:      []Platform{PlatformVK, PlatformTelegram},
			RequiresTarget: true,
		},
		{
			ID:             "watch",
			Title:          "Watch post",
			Description:    "Open the target post payload.count times to raise its view counter.",
			Platforms:      []Platform{PlatformVK, PlatformTelegram},
			RequiresTarget: true,
		},
		{
			ID:          "subscribe",
			Title:       "Subscribe",
			Description: "Join the community or channel at payload.target_url, if any.",
			Platforms:   []Platform{PlatformVK, PlatformTelegram},
		},
	}
}
