package crawl

import (
	"net/url"
	"path"
	"strings"
)

// PathMatcher filters discovered links by glob-style path patterns.
// "/blog/*" also matches deeper paths such as "/blog/2024/post".
type PathMatcher struct {
	patterns []string
}

// NewPathMatcher creates a matcher. An empty pattern list excludes nothing.
func NewPathMatcher(patterns []string) *PathMatcher {
	lowered := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			lowered = append(lowered, p)
		}
	}
	return &PathMatcher{patterns: lowered}
}

// IsExcluded reports whether the URL's path matches any pattern. Unparseable
// URLs are excluded.
func (m *PathMatcher) IsExcluded(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	p := strings.ToLower(u.Path)
	for _, pattern := range m.patterns {
		if matchSegmented(pattern, p) {
			return true
		}
	}
	return false
}

func matchSegmented(pattern, urlPath string) bool {
	if ok, _ := path.Match(pattern, urlPath); ok {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		return urlPath == prefix || strings.HasPrefix(urlPath, prefix+"/")
	}
	return false
}
