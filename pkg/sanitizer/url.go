package sanitizer

import (
	"net/url"
	"strings"
)

// NormalizeURL enforces https, lowercases the host and drops utm_ tracking
// parameters. Unparseable input becomes "".
func NormalizeURL(input string) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return ""
	}

	if after, ok := strings.CutPrefix(s, "http://"); ok {
		s = "https://" + after
	} else if !strings.HasPrefix(s, "https://") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return ""
	}

	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimSuffix(u.Path, "/")

	q := u.Query()
	for k := range q {
		if strings.HasPrefix(strings.ToLower(k), "utm_") {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()

	return u.String()
}
