package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/toobased/socials-backend/internal/apperr"
	"github.com/toobased/socials-backend/internal/model"
)

const (
	DefaultVKBaseURL = "https://api.vk.com"
	DefaultVKVersion = "5.131"
)

// VK talks to the VK API over plain HTTP.
type VK struct {
	BaseURL      string
	Version      string
	ServiceToken string
	HTTPClient   *http.Client
}

func NewVK(baseURL, version, serviceToken string, client *http.Client) *VK {
	if baseURL == "" {
		baseURL = DefaultVKBaseURL
	}
	if version == "" {
		version = DefaultVKVersion
	}
	if client == nil {
		client = &http.Client{}
	}
	return &VK{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		Version:      version,
		ServiceToken: serviceToken,
		HTTPClient:   client,
	}
}

var _ Adapter = (*VK)(nil)

func (v *VK) Platform() model.Platform {
	return model.PlatformVK
}

type vkError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_msg"`
}

type vkUser struct {
	ID         int64  `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	ScreenName string `json:"screen_name"`
	Photo      string `json:"photo_200"`
}

type vkCounter struct {
	Count int `json:"count"`
}

type vkPost struct {
	ID      int64     `json:"id"`
	OwnerID int64     `json:"owner_id"`
	FromID  int64     `json:"from_id"`
	Text    string    `json:"text"`
	Likes   vkCounter `json:"likes"`
	Reposts vkCounter `json:"reposts"`
	Views   vkCounter `json:"views"`
}

func (v *VK) VerifyToken(ctx context.Context, token string) (model.Profile, error) {
	params := url.Values{}
	params.Set("access_token", token)
	params.Set("fields", "screen_name,photo_200")

	var users []vkUser
	if err := v.call(ctx, "users.get", params, &users); err != nil {
		return model.Profile{}, err
	}
	if len(users) == 0 {
		return model.Profile{}, apperr.Validationf("vk token is not bound to a user")
	}

	u := users[0]
	return model.Profile{
		SocialID:    strconv.FormatInt(u.ID, 10),
		Username:    u.ScreenName,
		DisplayName: strings.TrimSpace(u.FirstName + " " + u.LastName),
		AvatarURL:   u.Photo,
	}, nil
}

var (
	vkWallPattern = regexp.MustCompile(`^/?wall(-?\d+_\d+)$`)
	vkHosts       = map[string]bool{"vk.com": true, "www.vk.com": true, "m.vk.com": true}
)

// parseVKPostURL returns the owner_post id of a vk.com/wall<owner>_<id> link.
// Feed links carrying the post in the w parameter are accepted too.
func parseVKPostURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || !vkHosts[strings.ToLower(u.Hostname())] {
		return "", apperr.Validationf("not a vk post url: %q", rawURL)
	}
	target := u.Path
	if w := u.Query().Get("w"); w != "" {
		target = w
	}
	match := vkWallPattern.FindStringSubmatch(target)
	if match == nil {
		return "", apperr.Validationf("not a vk post url: %q", rawURL)
	}
	return match[1], nil
}

func (v *VK) FetchPost(ctx context.Context, rawURL string) (model.Post, error) {
	postID, err := parseVKPostURL(rawURL)
	if err != nil {
		return model.Post{}, err
	}
	if v.ServiceToken == "" {
		return model.Post{}, apperr.Upstream("vk wall.getById", errors.New("service token is not configured"))
	}

	params := url.Values{}
	params.Set("access_token", v.ServiceToken)
	params.Set("posts", postID)

	var posts []vkPost
	if err := v.call(ctx, "wall.getById", params, &posts); err != nil {
		return model.Post{}, err
	}
	if len(posts) == 0 {
		return model.Post{}, apperr.NotFoundf("vk post %s", postID)
	}

	p := posts[0]
	return model.Post{
		Platform: model.PlatformVK,
		URL:      rawURL,
		PostID:   postID,
		Author:   strconv.FormatInt(p.FromID, 10),
		Text:     p.Text,
		Likes:    p.Likes.Count,
		Reposts:  p.Reposts.Count,
		Views:    p.Views.Count,
	}, nil
}

func (v *VK) call(ctx context.Context, method string, params url.Values, out any) error {
	params.Set("v", v.Version)
	endpoint := fmt.Sprintf("%s/method/%s?%s", v.BaseURL, method, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return transportError("vk "+method, err)
	}
	resp, err := v.HTTPClient.Do(req)
	if err != nil {
		return transportError("vk "+method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return apperr.Upstream("vk "+method, err)
	}
	if resp.StatusCode >= 300 {
		return apperr.Upstream("vk "+method, fmt.Errorf("status=%d body=%s", resp.StatusCode, string(body)))
	}

	var envelope struct {
		Response json.RawMessage `json:"response"`
		Error    *vkError        `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return apperr.Upstream("decode vk "+method, err)
	}
	if envelope.Error != nil {
		return classifyVKError(method, envelope.Error)
	}
	if err := json.Unmarshal(envelope.Response, out); err != nil {
		return apperr.Upstream("decode vk "+method, err)
	}
	return nil
}

// Rate limiting and internal failures are VK's problem; every other API
// error is about the request we sent.
func classifyVKError(method string, e *vkError) error {
	switch e.Code {
	case 1, 6, 9, 10:
		return apperr.Upstream("vk "+method, fmt.Errorf("error %d: %s", e.Code, e.Message))
	}
	return apperr.Validationf("vk %s rejected the request: %s (code %d)", method, e.Message, e.Code)
}
