// Package report defines the assembled intelligence report and renders it to disk.
package report

import (
	"time"

	"github.com/codeGROOVE-dev/sleuth/pkg/fetch"
	"github.com/codeGROOVE-dev/sleuth/pkg/profile"
	"github.com/codeGROOVE-dev/sleuth/pkg/score"
)

// Report is the root aggregate for one analysis run. It is never mutated once returned.
type Report struct {
	Timestamp time.Time               `json:"timestamp"`
	Profile   *profile.Profile        `json:"profile"`
	Network   fetch.Result[Network]   `json:"network"`
	Footprint fetch.Result[Footprint] `json:"footprint"`
	Timeline  fetch.Result[Timeline]  `json:"timeline"`
	Behavior  fetch.Result[Behavior]  `json:"behavior"`
	ID        string                  `json:"id"`
	Target    string                  `json:"target"`
	Scores    score.Scores            `json:"scores"`
	Depth     int                     `json:"depth"`
}

// Network is the sampled social graph around the target.
type Network struct {
	Followers      fetch.Result[[]string]                          `json:"followers"`
	Followees      fetch.Result[[]string]                          `json:"followees"`
	SecondDegree   fetch.Result[map[string]fetch.Result[[]string]] `json:"second_degree"`
	CommonFollowed fetch.Result[[]score.Count]                     `json:"common_followed"`
	Mutual         []string                                        `json:"mutual"`
	TotalFollowers int                                             `json:"total_followers"`
	TotalFollowees int                                             `json:"total_followees"`
}

// Footprint is everything discovered about the target outside the social graph.
type Footprint struct {
	ExternalLink fetch.Result[LinkAnalysis]        `json:"external_link"`
	Scrape       fetch.Result[Scrape]              `json:"scrape"`
	Domain       fetch.Result[DomainIntel]         `json:"domain"`
	Presence     map[string]fetch.Result[Presence] `json:"presence"`
	Emails       []string                          `json:"emails"`
	Phones       []string                          `json:"phones"`
}

// LinkAnalysis describes the fetch of the profile's external link.
type LinkAnalysis struct {
	Headers       map[string]string `json:"headers,omitempty"`
	URL           string            `json:"url"`
	FinalURL      string            `json:"final_url"`
	Domain        string            `json:"domain"`
	RefreshTarget string            `json:"refresh_target,omitempty"`
	RedirectChain []string          `json:"redirect_chain"`
	Technologies  []string          `json:"technologies"`
	StatusCode    int               `json:"status_code"`
}

// Scrape is the visible content of the external link's page.
type Scrape struct {
	Text        string   `json:"text"`
	Links       []string `json:"links"`
	SocialLinks []string `json:"social_links"`
}

// DomainIntel gathers registration, DNS and archive data for the link's domain.
// Each source fails independently of the others.
type DomainIntel struct {
	Whois   fetch.Result[profile.WhoisRecord] `json:"whois"`
	Archive fetch.Result[profile.Snapshot]    `json:"archive"`
	DNS     map[string]fetch.Result[[]string] `json:"dns"`
	Domain  string                            `json:"domain"`
}

// Presence is the outcome of probing one platform for the target's handle.
type Presence struct {
	URL        string `json:"url"`
	Found      bool   `json:"found"`
	StatusCode int    `json:"status_code"`
}

// Timeline is the account-age and monthly activity summary.
type Timeline struct {
	score.Timeline
	PostsSampled int `json:"posts_sampled"`
}

// Behavior is the posting cadence and content summary.
type Behavior struct {
	score.Content
	AutomationIndicators []string `json:"automation_indicators"`
	score.Patterns
	PostsSampled int `json:"posts_sampled"`
}
