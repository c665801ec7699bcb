package score

import (
	"slices"
	"strings"

	"github.com/codeGROOVE-dev/sleuth/pkg/profile"
)

// Content type labels.
const (
	TypePhoto    = "photo"
	TypeVideo    = "video"
	TypeCarousel = "carousel"
)

var themeKeywords = map[string][]string{
	"travel":    {"travel", "trip", "vacation", "explore", "adventure", "journey"},
	"fitness":   {"fitness", "gym", "workout", "health", "exercise", "training"},
	"food":      {"food", "recipe", "cooking", "delicious", "restaurant", "meal"},
	"fashion":   {"fashion", "style", "outfit", "clothing", "designer", "trend"},
	"business":  {"business", "entrepreneur", "success", "money", "investment", "work"},
	"lifestyle": {"lifestyle", "life", "happiness", "motivation", "inspiration", "goals"},
}

// Content summarizes what an account posts about.
type Content struct {
	Themes         map[string]int `json:"themes"`
	ContentTypes   map[string]int `json:"content_types"`
	UniqueHashtags []string       `json:"unique_hashtags"`
	UniqueMentions []string       `json:"unique_mentions"`
	Locations      []string       `json:"locations"`
}

// AnalyzeContent runs every content analysis over posts.
func AnalyzeContent(posts []profile.Post) Content {
	return Content{
		Themes:         Themes(posts),
		ContentTypes:   ContentTypes(posts),
		UniqueHashtags: UniqueHashtags(posts),
		UniqueMentions: UniqueMentions(posts),
		Locations:      Locations(posts),
	}
}

// Themes counts keyword occurrences per theme across all lowercased captions.
// Themes without a hit are omitted.
func Themes(posts []profile.Post) map[string]int {
	captions := make([]string, len(posts))
	for i, p := range posts {
		captions[i] = strings.ToLower(p.Caption)
	}
	text := strings.Join(captions, " ")

	out := make(map[string]int)
	for theme, words := range themeKeywords {
		n := 0
		for _, w := range words {
			n += strings.Count(text, w)
		}
		if n > 0 {
			out[theme] = n
		}
	}
	return out
}

// ContentTypes counts videos, multi-media carousels and single photos.
func ContentTypes(posts []profile.Post) map[string]int {
	out := map[string]int{TypePhoto: 0, TypeVideo: 0, TypeCarousel: 0}
	for _, p := range posts {
		switch {
		case p.IsVideo:
			out[TypeVideo]++
		case p.MediaCount > 1:
			out[TypeCarousel]++
		default:
			out[TypePhoto]++
		}
	}
	return out
}

// UniqueHashtags returns the sorted set of hashtags used.
func UniqueHashtags(posts []profile.Post) []string {
	return sortedSet(posts, func(p profile.Post) []string { return p.Hashtags })
}

// UniqueMentions returns the sorted set of tagged users.
func UniqueMentions(posts []profile.Post) []string {
	return sortedSet(posts, func(p profile.Post) []string { return p.TaggedUsers })
}

// Locations returns the sorted set of named post locations.
func Locations(posts []profile.Post) []string {
	return sortedSet(posts, func(p profile.Post) []string {
		if p.Location == "" {
			return nil
		}
		return []string{p.Location}
	})
}

func sortedSet(posts []profile.Post, field func(profile.Post) []string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, p := range posts {
		for _, v := range field(p) {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	slices.Sort(out)
	return out
}
