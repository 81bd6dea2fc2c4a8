package extract

import (
	"net/url"
	"strings"
	"time"

	"github.com/dzhechko/B2BSalesAI/internal/model"
)

// MaxSocialPosts caps the number of posts taken from one result set.
const MaxSocialPosts = 3

// DateLayout renders post dates as DD.MM.YYYY.
const DateLayout = "02.01.2006"

// Item is one search result considered for social post extraction.
type Item struct {
	URL         string
	Title       string
	Description string
}

// DefaultPlatform names social hosts without a dedicated display name.
const DefaultPlatform = "Social Media"

// platforms maps social host suffixes to display names.
var platforms = []struct {
	host string
	name string
}{
	{"linkedin.com", "LinkedIn"},
	{"facebook.com", "Facebook"},
	{"twitter.com", "Twitter"},
	{"x.com", "Twitter"},
	{"vk.com", "VK"},
	{"t.me", "Telegram"},
	{"instagram.com", "Instagram"},
	{"ok.ru", ""},
	{"youtube.com", ""},
	{"tiktok.com", ""},
	{"habr.com", ""},
}

// Platform returns the display name of the social platform hosting rawURL.
// ok is false when the URL is not on a known social platform.
func Platform(rawURL string) (name string, ok bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	for _, p := range platforms {
		if host == p.host || strings.HasSuffix(host, "."+p.host) {
			if p.name == "" {
				return DefaultPlatform, true
			}
			return p.name, true
		}
	}
	return "", false
}

// SocialPosts keeps at most MaxSocialPosts items hosted on social platforms,
// in input order. Every post is dated now because search results carry no
// publication date.
func SocialPosts(items []Item, now time.Time) []model.SocialPost {
	var posts []model.SocialPost
	for _, it := range items {
		if len(posts) == MaxSocialPosts {
			break
		}
		name, ok := Platform(it.URL)
		if !ok {
			continue
		}
		content := strings.TrimSpace(it.Description)
		if content == "" {
			content = strings.TrimSpace(it.Title)
		}
		posts = append(posts, model.SocialPost{
			Platform: name,
			Date:     now.Format(DateLayout),
			Content:  content,
		})
	}
	return posts
}
