// Package profile defines the data contracts shared by source clients and the analysis core.
package profile

import (
	"errors"
	"fmt"
	"time"
)

// Common errors returned by source clients.
var (
	ErrNotFound     = errors.New("not found")
	ErrAuthRequired = errors.New("authentication required")
	ErrRateLimited  = errors.New("rate limited")
	ErrTransient    = errors.New("transient network error")
	ErrParse        = errors.New("parse error")

	// ErrProfileNotFound is returned when the target account does not exist.
	ErrProfileNotFound = fmt.Errorf("profile %w", ErrNotFound)
)

// Profile holds the identity and static attributes of an account.
// It is created by the primary fetch and never mutated afterward.
//
//nolint:govet // fieldalignment: intentional layout for readability
type Profile struct {
	Handle      string `json:"handle"`
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
	Biography   string `json:"biography,omitempty"`

	Followers int `json:"followers"`
	Followees int `json:"followees"`
	Posts     int `json:"posts"`

	Private          bool   `json:"private"`
	Verified         bool   `json:"verified"`
	Business         bool   `json:"business"`
	BusinessCategory string `json:"business_category,omitempty"`

	ExternalURL string `json:"external_url,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Post is one piece of user-generated content.
type Post struct {
	Timestamp   time.Time `json:"timestamp"`
	Caption     string    `json:"caption,omitempty"`
	IsVideo     bool      `json:"is_video"`
	MediaCount  int       `json:"media_count"`
	Hashtags    []string  `json:"hashtags,omitempty"`
	TaggedUsers []string  `json:"tagged_users,omitempty"`
	Location    string    `json:"location,omitempty"`
}

// HandlePage is one page of a follower or followee enumeration.
// An empty Next means the enumeration is exhausted.
type HandlePage struct {
	Handles []string
	Next    string
}

// PostPage is one page of a post enumeration.
type PostPage struct {
	Posts []Post
	Next  string
}

// Page is the response to a web fetch after following redirects.
type Page struct {
	Headers       map[string]string `json:"headers,omitempty"`
	URL           string            `json:"url"`
	Body          []byte            `json:"-"`
	RedirectChain []string          `json:"redirect_chain,omitempty"`
	StatusCode    int               `json:"status_code"`
}

// WhoisRecord holds the registration fields of a domain.
type WhoisRecord struct {
	Registrar      string   `json:"registrar,omitempty"`
	CreationDate   string   `json:"creation_date,omitempty"`
	ExpirationDate string   `json:"expiration_date,omitempty"`
	Country        string   `json:"country,omitempty"`
	Emails         []string `json:"emails,omitempty"`
}

// Snapshot is the web-archive availability of a domain.
type Snapshot struct {
	ClosestURL string `json:"closest_url,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`
	Count      int    `json:"snapshot_count"`
}
