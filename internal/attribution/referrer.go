package attribution

import "strings"

// Known search and social referrers, keyed by the DNS label that identifies
// them. A visit from any of these without campaign tags still carries a
// usable source signal.
var knownReferrerSources = map[string]string{
	"google":    "google",
	"bing":      "bing",
	"facebook":  "facebook",
	"instagram": "instagram",
	"linkedin":  "linkedin",
	"twitter":   "twitter",
}

// CanonicalSource maps a referrer host to a canonical source name.
// Matching is per DNS label, so "www.google.co.uk" and "m.facebook.com"
// resolve without a registrable-domain list. "t.co" is Twitter's link
// shortener and maps accordingly. Unknown hosts return (host, false): the
// raw host is still a valid fallback source, just not a canonical one.
func CanonicalSource(host string) (string, bool) {
	h := strings.ToLower(strings.TrimSpace(host))
	if i := strings.IndexByte(h, ':'); i >= 0 {
		h = h[:i]
	}
	if h == "" {
		return "", false
	}
	if h == "t.co" || strings.HasSuffix(h, ".t.co") {
		return "twitter", true
	}
	for _, label := range strings.Split(h, ".") {
		if src, ok := knownReferrerSources[label]; ok {
			return src, true
		}
	}
	return h, false
}
