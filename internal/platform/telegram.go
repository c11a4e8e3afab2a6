package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/toobased/socials-backend/internal/apperr"
	"github.com/toobased/socials-backend/internal/model"
)

const DefaultTelegramWebURL = "https://t.me"

// Telegram verifies bot tokens through the Bot API and reads public
// channel posts from their web preview.
type Telegram struct {
	APIEndpoint string
	WebURL      string
	HTTPClient  *http.Client
}

func NewTelegram(apiEndpoint, webURL string, client *http.Client) *Telegram {
	if apiEndpoint == "" {
		apiEndpoint = tgbotapi.APIEndpoint
	}
	if webURL == "" {
		webURL = DefaultTelegramWebURL
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Telegram{
		APIEndpoint: apiEndpoint,
		WebURL:      strings.TrimRight(webURL, "/"),
		HTTPClient:  client,
	}
}

var _ Adapter = (*Telegram)(nil)

func (t *Telegram) Platform() model.Platform {
	return model.PlatformTelegram
}

func (t *Telegram) VerifyToken(ctx context.Context, token string) (model.Profile, error) {
	// tgbotapi has no context support; cancellation is best effort.
	if err := ctx.Err(); err != nil {
		return model.Profile{}, err
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, t.APIEndpoint, t.HTTPClient)
	if err != nil {
		if message, ok := telegramAPIError(err); ok {
			return model.Profile{}, apperr.Validationf("telegram rejected token: %s", message)
		}
		return model.Profile{}, transportError("telegram getMe", err)
	}

	self := bot.Self
	return model.Profile{
		SocialID:    strconv.FormatInt(self.ID, 10),
		Username:    self.UserName,
		DisplayName: strings.TrimSpace(self.FirstName + " " + self.LastName),
		IsBot:       self.IsBot,
	}, nil
}

func telegramAPIError(err error) (string, bool) {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Message, true
	}
	return "", false
}

func (t *Telegram) FetchPost(ctx context.Context, rawURL string) (model.Post, error) {
	channel, postID, err := parseTelegramPostURL(rawURL)
	if err != nil {
		return model.Post{}, err
	}

	page := fmt.Sprintf("%s/%s/%s", t.WebURL, channel, postID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, page, nil)
	if err != nil {
		return model.Post{}, err
	}
	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return model.Post{}, transportError("telegram post page", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return model.Post{}, apperr.NotFoundf("telegram post %s/%s", channel, postID)
	}
	if resp.StatusCode >= 300 {
		return model.Post{}, apperr.Upstream("telegram post page", fmt.Errorf("status=%d", resp.StatusCode))
	}

	og, err := parseOpenGraph(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return model.Post{}, apperr.Upstream("parse telegram post page", err)
	}
	if og["og:description"] == "" && og["og:image"] == "" {
		return model.Post{}, apperr.NotFoundf("telegram post %s/%s", channel, postID)
	}

	return model.Post{
		Platform: model.PlatformTelegram,
		URL:      rawURL,
		PostID:   channel + "/" + postID,
		Author:   channel,
		Title:    og["og:title"],
		Text:     og["og:description"],
		ImageURL: og["og:image"],
	}, nil
}

// parseTelegramPostURL accepts t.me/<channel>/<id> and t.me/s/<channel>/<id>.
func parseTelegramPostURL(rawURL string) (string, string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return "", "", apperr.Validationf("not a telegram post url: %q", rawURL)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) == 3 && parts[0] == "s" {
		parts = parts[1:]
	}
	if len(parts) != 2 || parts[0] == "" {
		return "", "", apperr.Validationf("not a telegram post url: %q", rawURL)
	}
	if _, err := strconv.ParseInt(parts[1], 10, 64); err != nil {
		return "", "", apperr.Validationf("not a telegram post url: %q", rawURL)
	}
	return parts[0], parts[1], nil
}
