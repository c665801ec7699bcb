package auth

import (
	"context"
	"maps"
)

// StaticSource provides cookies from a static map.
type StaticSource struct {
	cookies map[string]string
}

// NewStaticSource creates a cookie source from a static map.
func NewStaticSource(cookies map[string]string) *StaticSource {
	return &StaticSource{cookies: cookies}
}

// Cookies returns a copy of the static cookies.
func (s *StaticSource) Cookies(context.Context) (map[string]string, error) {
	if len(s.cookies) == 0 {
		return nil, nil //nolint:nilnil // empty static source is not an error
	}
	return maps.Clone(s.cookies), nil
}
