// Package instagram fetches profiles, follower lists and posts from the Instagram web API.
package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/sleuth/pkg/httpcache"
	"github.com/codeGROOVE-dev/sleuth/pkg/profile"
)

const (
	defaultBaseURL = "https://i.instagram.com"
	appID          = "936619743392459"
	pageSize       = 12
)

var (
	handlePattern  = regexp.MustCompile(`^[A-Za-z0-9_.]{1,30}$`)
	hashtagPattern = regexp.MustCompile(`#(\w+)`)
)

// Client handles Instagram requests. It is safe for concurrent use.
type Client struct {
	session *httpcache.Session
	logger  *slog.Logger
	baseURL string
	ids     sync.Map // handle -> numeric user id
}

// Option configures a Client.
type Option func(*config)

type config struct {
	logger  *slog.Logger
	baseURL string
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithBaseURL points the client at a different API host.
func WithBaseURL(u string) Option {
	return func(c *config) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// New creates an Instagram client. Requests go through session, which carries
// the cookie jar when an authenticated session is in use.
func New(session *httpcache.Session, opts ...Option) *Client {
	cfg := &config{logger: slog.Default(), baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Client{session: session, logger: cfg.logger, baseURL: cfg.baseURL}
}

// ValidHandle reports whether handle is syntactically an Instagram username.
func ValidHandle(handle string) bool {
	return handlePattern.MatchString(handle)
}

// Profile retrieves the public attributes of handle.
func (c *Client) Profile(ctx context.Context, handle string) (*profile.Profile, error) {
	if !ValidHandle(handle) {
		return nil, fmt.Errorf("invalid handle %q: %w", handle, profile.ErrProfileNotFound)
	}
	c.logger.InfoContext(ctx, "fetching instagram profile", "handle", handle)

	var resp profileResponse
	if err := c.get(ctx, "/api/v1/users/web_profile_info/?username="+url.QueryEscape(handle), &resp); err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return nil, fmt.Errorf("fetch %s: %w", handle, profile.ErrProfileNotFound)
		}
		return nil, fmt.Errorf("fetch %s: %w", handle, err)
	}

	u := resp.Data.User
	if u == nil || u.Username == "" {
		return nil, fmt.Errorf("fetch %s: %w", handle, profile.ErrProfileNotFound)
	}
	c.ids.Store(strings.ToLower(handle), u.ID)

	p := &profile.Profile{
		Handle:           u.Username,
		ID:               u.ID,
		DisplayName:      u.FullName,
		Biography:        u.Biography,
		Followers:        u.EdgeFollowedBy.Count,
		Followees:        u.EdgeFollow.Count,
		Posts:            u.EdgeOwnerToTimelineMedia.Count,
		Private:          u.IsPrivate,
		Verified:         u.IsVerified,
		Business:         u.IsBusinessAccount || u.IsProfessionalAccount,
		BusinessCategory: u.CategoryName,
		ExternalURL:      u.ExternalURL,
		AvatarURL:        u.ProfilePicURLHD,
	}
	if p.BusinessCategory == "" && u.BusinessCategoryName != "None" {
		p.BusinessCategory = u.BusinessCategoryName
	}
	if p.AvatarURL == "" {
		p.AvatarURL = u.ProfilePicURL
	}

	c.logger.DebugContext(ctx, "parsed instagram profile",
		"handle", p.Handle,
		"private", p.Private,
		"followers", p.Followers,
		"posts", p.Posts,
	)
	return p, nil
}

// Followers returns one page of handles following handle.
func (c *Client) Followers(ctx context.Context, handle, cursor string) (*profile.HandlePage, error) {
	return c.friendships(ctx, handle, "followers", cursor)
}

// Followees returns one page of handles that handle follows.
func (c *Client) Followees(ctx context.Context, handle, cursor string) (*profile.HandlePage, error) {
	return c.friendships(ctx, handle, "following", cursor)
}

func (c *Client) friendships(ctx context.Context, handle, edge, cursor string) (*profile.HandlePage, error) {
	id, err := c.userID(ctx, handle)
	if err != nil {
		return nil, err
	}

	var resp friendshipsResponse
	if err := c.get(ctx, pagePath(fmt.Sprintf("/api/v1/friendships/%s/%s/", id, edge), cursor), &resp); err != nil {
		return nil, fmt.Errorf("list %s of %s: %w", edge, handle, err)
	}

	pg := &profile.HandlePage{Handles: make([]string, 0, len(resp.Users)), Next: resp.NextMaxID.String()}
	for _, u := range resp.Users {
		if u.Username != "" {
			pg.Handles = append(pg.Handles, u.Username)
		}
	}
	return pg, nil
}

// Posts returns one page of handle's posts, newest first.
func (c *Client) Posts(ctx context.Context, handle, cursor string) (*profile.PostPage, error) {
	id, err := c.userID(ctx, handle)
	if err != nil {
		return nil, err
	}

	var resp feedResponse
	if err := c.get(ctx, pagePath("/api/v1/feed/user/"+id+"/", cursor), &resp); err != nil {
		return nil, fmt.Errorf("list posts of %s: %w", handle, err)
	}

	pg := &profile.PostPage{Posts: make([]profile.Post, 0, len(resp.Items))}
	for _, it := range resp.Items {
		pg.Posts = append(pg.Posts, it.post())
	}
	if resp.MoreAvailable {
		pg.Next = resp.NextMaxID.String()
	}
	return pg, nil
}

// userID resolves handle to its numeric id, fetching the profile on first use.
func (c *Client) userID(ctx context.Context, handle string) (string, error) {
	if id, ok := c.ids.Load(strings.ToLower(handle)); ok {
		return id.(string), nil //nolint:errcheck,forcetypeassert // only strings are stored
	}
	p, err := c.Profile(ctx, handle)
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

func pagePath(path, cursor string) string {
	q := url.Values{}
	q.Set("count", strconv.Itoa(pageSize))
	if cursor != "" {
		q.Set("max_id", cursor)
	}
	return path + "?" + q.Encode()
}

// get issues an API request and decodes the JSON body into v, mapping Instagram's
// soft failures onto profile sentinels. A "fail" body served with 200 is rejected
// inside the session so it is never reused by a retry. Error payloads on non-OK
// responses take precedence over the status code when they name a known condition.
func (c *Client) get(ctx context.Context, path string, v any) error {
	header := http.Header{}
	header.Set("X-Ig-App-Id", appID)
	header.Set("Accept", "application/json")

	body, err := c.session.GetValidated(ctx, c.baseURL+path, header, func(body []byte) error {
		var st apiStatus
		if json.Unmarshal(body, &st) == nil && st.Status == "fail" {
			return st.err()
		}
		return nil
	})
	if err != nil {
		var he *httpcache.HTTPError
		if errors.As(err, &he) {
			var st apiStatus
			if json.Unmarshal(he.Body, &st) == nil {
				if s := st.sentinel(); s != nil {
					return fmt.Errorf("instagram: HTTP %d: %s: %w", he.StatusCode, st.Message, s)
				}
			}
		}
		return err
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode response: %w: %w", profile.ErrParse, err)
	}
	return nil
}

type apiStatus struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	RequireLogin bool   `json:"require_login"`
	Spam         bool   `json:"spam"`
}

// sentinel returns the condition named by the payload, or nil if it names none.
// Throttling is checked first: Instagram sends "please wait" with require_login set.
func (s apiStatus) sentinel() error {
	msg := strings.ToLower(s.Message)
	switch {
	case strings.Contains(msg, "please wait"), s.Spam:
		return profile.ErrRateLimited
	case s.RequireLogin, strings.Contains(msg, "login"):
		return profile.ErrAuthRequired
	case strings.Contains(msg, "not found"), strings.Contains(msg, "does not exist"):
		return profile.ErrNotFound
	default:
		return nil
	}
}

func (s apiStatus) err() error {
	sentinel := s.sentinel()
	if sentinel == nil {
		sentinel = profile.ErrTransient
	}
	return fmt.Errorf("instagram: %s: %w", s.Message, sentinel)
}

type profileResponse struct {
	Data struct {
		User *userInfo `json:"user"`
	} `json:"data"`
}

type userInfo struct {
	ID                       string `json:"id"`
	Username                 string `json:"username"`
	FullName                 string `json:"full_name"`
	Biography                string `json:"biography"`
	ProfilePicURL            string `json:"profile_pic_url"`
	ProfilePicURLHD          string `json:"profile_pic_url_hd"`
	ExternalURL              string `json:"external_url"`
	CategoryName             string `json:"category_name"`
	BusinessCategoryName     string `json:"business_category_name"`
	EdgeFollowedBy           count  `json:"edge_followed_by"`
	EdgeFollow               count  `json:"edge_follow"`
	EdgeOwnerToTimelineMedia count  `json:"edge_owner_to_timeline_media"`
	IsVerified               bool   `json:"is_verified"`
	IsBusinessAccount        bool   `json:"is_business_account"`
	IsProfessionalAccount    bool   `json:"is_professional_account"`
	IsPrivate                bool   `json:"is_private"`
}

type count struct {
	Count int `json:"count"`
}

// cursor accepts next_max_id encoded as either a string or a number.
type cursor string

func (c *cursor) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*c = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = cursor(s)
		return nil
	}
	*c = cursor(b)
	return nil
}

func (c cursor) String() string { return string(c) }

type friendshipsResponse struct {
	Users []struct {
		Username string `json:"username"`
	} `json:"users"`
	NextMaxID cursor `json:"next_max_id"`
}

type feedResponse struct {
	Items         []feedItem `json:"items"`
	NextMaxID     cursor     `json:"next_max_id"`
	MoreAvailable bool       `json:"more_available"`
}

const (
	mediaVideo    = 2
	mediaCarousel = 8
)

type feedItem struct {
	Caption *struct {
		Text string `json:"text"`
	} `json:"caption"`
	Location *struct {
		Name string `json:"name"`
	} `json:"location"`
	Usertags struct {
		In []struct {
			User struct {
				Username string `json:"username"`
			} `json:"user"`
		} `json:"in"`
	} `json:"usertags"`
	TakenAt            int64 `json:"taken_at"`
	MediaType          int   `json:"media_type"`
	CarouselMediaCount int   `json:"carousel_media_count"`
}

func (it feedItem) post() profile.Post {
	p := profile.Post{
		Timestamp:  time.Unix(it.TakenAt, 0).UTC(),
		IsVideo:    it.MediaType == mediaVideo,
		MediaCount: 1,
	}
	if it.MediaType == mediaCarousel && it.CarouselMediaCount > 0 {
		p.MediaCount = it.CarouselMediaCount
	}
	if it.Caption != nil {
		p.Caption = it.Caption.Text
		for _, m := range hashtagPattern.FindAllStringSubmatch(p.Caption, -1) {
			p.Hashtags = append(p.Hashtags, strings.ToLower(m[1]))
		}
	}
	for _, t := range it.Usertags.In {
		if t.User.Username != "" {
			p.TaggedUsers = append(p.TaggedUsers, t.User.Username)
		}
	}
	if it.Location != nil {
		p.Location = it.Location.Name
	}
	return p
}
