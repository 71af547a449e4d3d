package blogengine

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/microcosm-cc/bluemonday"
)

// postDateLayout renders dates like "October 17, 2026".
const postDateLayout = "January 02, 2006"

var ugcPolicy = bluemonday.UGCPolicy()

// SanitizeHTML strips everything but safe user-generated-content markup.
func SanitizeHTML(s string) string {
	return ugcPolicy.Sanitize(s)
}

// Slugify converts a title to a URL-safe slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// BuildURL joins a base URL with path segments. The bare site URL keeps a
// trailing slash; page URLs never have one.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join("/", u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	return u.String()
}

// PostURL is the absolute URL of a post page.
func PostURL(base string, id int64) string {
	return BuildURL(base, "post", strconv.FormatInt(id, 10))
}

// AvatarURL returns a Gravatar image URL for email at size pixels, falling
// back to a generated "retro" avatar.
func AvatarURL(email string, size int) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	q := url.Values{}
	q.Set("s", strconv.Itoa(size))
	q.Set("d", "retro")
	return "https://www.gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?" + q.Encode()
}

// paramID parses a positive integer path parameter. Anything else is a 404.
func paramID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.ErrNotFound
	}
	return id, nil
}
