package auth

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// FileSource reads cookies from a file holding either a JSON object of cookie
// names to values or a Netscape cookies.txt export.
type FileSource struct {
	path string
}

// NewFileSource creates a cookie source backed by path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Cookies reads and parses the cookie file.
func (s *FileSource) Cookies(context.Context) (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	cookies, err := parseCookieFile(data)
	if err != nil {
		return nil, fmt.Errorf("parse session file %s: %w", s.path, err)
	}
	if len(cookies) == 0 {
		return nil, nil //nolint:nilnil // a file without session cookies is not an error
	}
	return cookies, nil
}

func parseCookieFile(data []byte) (map[string]string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var raw map[string]string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, err
		}
		cookies := make(map[string]string)
		for name, value := range raw {
			if essential(name) && value != "" {
				cookies[name] = value
			}
		}
		return cookies, nil
	}

	cookies := make(map[string]string)
	sc := bufio.NewScanner(bytes.NewReader(trimmed))
	for sc.Scan() {
		line := strings.TrimPrefix(sc.Text(), "#HttpOnly_")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// domain, include-subdomains, path, secure, expiry, name, value
		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			continue
		}
		if !strings.HasSuffix(strings.TrimPrefix(fields[0], "."), Domain) {
			continue
		}
		if essential(fields[5]) && fields[6] != "" {
			cookies[fields[5]] = fields[6]
		}
	}
	return cookies, sc.Err()
}
