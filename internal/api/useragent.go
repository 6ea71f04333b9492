package api

import "math/rand"

// browserAgents is a small rotation of current desktop browser
// identification strings, enough to avoid naive bot blocking.
var browserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14.7; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (X11; Linux x86_64; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.6 Safari/605.1.15",
}

// RandomUserAgent returns one of the known browser identification strings.
func RandomUserAgent() string {
	return browserAgents[rand.Intn(len(browserAgents))]
}

// UserAgents exposes the rotation set, used by tests to verify that
// outgoing requests always carry a plausible identity.
func UserAgents() []string {
	out := make([]string, len(browserAgents))
	copy(out, browserAgents)
	return out
}
