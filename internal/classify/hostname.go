package classify

import (
	"net/url"
	"strings"
)

// HostOutcome tags how a hostname was obtained.
type HostOutcome int

const (
	// HostEmpty means the input was blank after trimming.
	HostEmpty HostOutcome = iota
	// HostParsed means the host came from structured URL parsing.
	HostParsed
	// HostFallback means the authority would not parse even without its
	// port, and the host is the authority minus credentials and port.
	HostFallback
)

func (o HostOutcome) String() string {
	switch o {
	case HostParsed:
		return "parsed"
	case HostFallback:
		return "fallback"
	default:
		return "empty"
	}
}

// HostParse is the result of normalizing a loosely formatted URL.
type HostParse struct {
	Host    string
	Outcome HostOutcome
}

const defaultScheme = "https://"

// ParseHost extracts a lowercase hostname (no port, path or credentials)
// from raw. Bare inputs such as "example.com/login" are read as if they
// carried an https scheme. Only the authority is parsed, so a malformed
// path, query or port never hides the host.
func ParseHost(raw string) HostParse {
	u := strings.TrimSpace(raw)
	if u == "" {
		return HostParse{Outcome: HostEmpty}
	}

	authority := authorityOf(u)
	if parsed, err := url.Parse(defaultScheme + authority); err == nil {
		return HostParse{Host: strings.ToLower(parsed.Hostname()), Outcome: HostParsed}
	}

	host := hostOnly(authority)
	if !strings.Contains(host, ":") {
		if parsed, err := url.Parse(defaultScheme + host); err == nil {
			return HostParse{Host: strings.ToLower(parsed.Hostname()), Outcome: HostParsed}
		}
	}
	return HostParse{Host: strings.ToLower(host), Outcome: HostFallback}
}

// Hostname is ParseHost without the outcome tag.
func Hostname(raw string) string {
	return ParseHost(raw).Host
}

// authorityOf returns the text between the scheme separator and the first
// '/', '?' or '#'. A "://" that does not follow a valid scheme, as in
// "example.com/r?u=http://x", belongs to the path.
func authorityOf(u string) string {
	rest := u
	if scheme, after, ok := strings.Cut(u, "://"); ok && validScheme(scheme) {
		rest = after
	}
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

func validScheme(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z':
		case i > 0 && ('0' <= r && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}

// hostOnly strips userinfo and port from an authority. Bracketed IPv6
// literals lose their brackets, closed or not.
func hostOnly(authority string) string {
	if i := strings.LastIndex(authority, "@"); i >= 0 {
		authority = authority[i+1:]
	}
	if rest, ok := strings.CutPrefix(authority, "["); ok {
		host, _, _ := strings.Cut(rest, "]")
		return host
	}
	host, _, _ := strings.Cut(authority, ":")
	return host
}
