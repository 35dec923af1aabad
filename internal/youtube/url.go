package youtube

import (
	"net/url"
	"regexp"
	"strings"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ExtractChannelIdentifier pulls a channel identifier out of a channel URL.
// The result is either a UC channel id, an @handle, or a legacy username,
// all of which ResolveChannel accepts. A bare @handle passes through as-is.
func ExtractChannelIdentifier(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "@") {
		return raw
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	segments := splitPath(u.Path)
	if len(segments) == 0 {
		return ""
	}

	switch segments[0] {
	case "channel", "c", "user":
		if len(segments) > 1 {
			return segments[1]
		}
		return ""
	}
	return segments[0]
}

// ExtractVideoID pulls the 11-character video id out of watch, short-link,
// embed and Shorts URLs. A bare video id passes through as-is.
func ExtractVideoID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if videoIDPattern.MatchString(raw) {
		return raw
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	if v := u.Query().Get("v"); validVideoID(v) {
		return v
	}

	segments := splitPath(u.Path)
	if len(segments) == 0 {
		return ""
	}

	// youtu.be/<id>
	if strings.HasSuffix(u.Host, "youtu.be") && validVideoID(segments[0]) {
		return segments[0]
	}

	// /embed/<id>, /shorts/<id>, /v/<id>
	switch segments[0] {
	case "embed", "shorts", "v":
		if len(segments) > 1 && validVideoID(segments[1]) {
			return segments[1]
		}
	}

	return ""
}

func validVideoID(id string) bool {
	return videoIDPattern.MatchString(id)
}

func splitPath(p string) []string {
	var segments []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}
