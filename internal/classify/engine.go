package classify

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/idna"
)

// Score deltas per rule.
const (
	scoreIPHost          = 40
	scoreExplicitPort    = 12
	scoreEphemeralHost   = 35
	scoreLongSubdomain   = 15
	scoreHyphenSubdomain = 12
	scoreTokenSubdomain  = 18
	scoreBrandInSub      = 40
	scorePunycode        = 25
	scoreShortener       = 30
	scorePhishingKeyword = 15

	longSubdomainLen  = 30
	minSubdomainLabel = 3
	minHyphens        = 2
	minTokens         = 3
)

// subject is the per-call view of the input shared by every evaluator.
type subject struct {
	raw      string
	lowerRaw string
	host     string
	// Only set when the host has at least three labels.
	sub    string
	sld    string
	parent string
	deep   bool
}

func newSubject(raw, host string) *subject {
	s := &subject{raw: raw, lowerRaw: strings.ToLower(raw), host: host}
	if host == "" {
		return s
	}
	labels := strings.Split(host, ".")
	if len(labels) >= minSubdomainLabel {
		s.deep = true
		s.sub = strings.Join(labels[:len(labels)-2], ".")
		s.sld = labels[len(labels)-2]
		s.parent = strings.Join(labels[len(labels)-2:], ".")
	}
	return s
}

// evaluator inspects a subject and reports at most one finding.
type evaluator func(s *subject, rs *RuleSet) (finding, bool)

// evaluators run in this order; Result.Reasons follows it.
var evaluators = []evaluator{
	checkIPHost,
	checkExplicitPort,
	checkEphemeralHost,
	checkLongSubdomain,
	checkHyphenatedSubdomain,
	checkTokenRichSubdomain,
	checkBrandImpersonation,
	checkPunycode,
	checkShortener,
	checkPhishingKeyword,
}

// Engine scores URLs against a fixed RuleSet. It holds no mutable state and
// is safe for concurrent use.
type Engine struct {
	rules RuleSet
	now   func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces time.Now as the source of Result.Timestamp.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine builds an engine over a private, lowercased copy of rules. Nil
// patterns fall back to the default IP and port patterns.
func NewEngine(rules RuleSet, opts ...Option) *Engine {
	rs := RuleSet{
		EphemeralHosts:   normalizeEntries(rules.EphemeralHosts),
		BrandTokens:      normalizeEntries(rules.BrandTokens),
		Shorteners:       normalizeEntries(rules.Shorteners),
		PhishingKeywords: normalizeEntries(rules.PhishingKeywords),
		IPPattern:        rules.IPPattern,
		PortPattern:      rules.PortPattern,
	}
	if rs.IPPattern == nil {
		rs.IPPattern = ipLiteralRE
	}
	if rs.PortPattern == nil {
		rs.PortPattern = explicitPortRE
	}
	e := &Engine{rules: rs, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns a copy of the tables the engine evaluates.
func (e *Engine) Rules() RuleSet {
	return e.rules.Clone()
}

// Classify scores rawURL. It accepts any string and never fails: blank or
// unparseable input yields an empty host and whatever rules still match the
// raw text.
func (e *Engine) Classify(rawURL string) Result {
	host := Hostname(rawURL)
	s := newSubject(rawURL, host)

	var findings []finding
	for _, eval := range evaluators {
		if f, ok := eval(s, &e.rules); ok {
			findings = append(findings, f)
		}
	}

	score, level, reasons := aggregate(findings)
	return Result{
		URL:       rawURL,
		Host:      host,
		Score:     score,
		Level:     level,
		Reasons:   reasons,
		Timestamp: e.now().Unix(),
	}
}

var defaultEngine = NewEngine(DefaultRules())

// Classify scores rawURL with the production rule tables.
func Classify(rawURL string) Result {
	return defaultEngine.Classify(rawURL)
}

func checkIPHost(s *subject, rs *RuleSet) (finding, bool) {
	if s.host == "" || !rs.IPPattern.MatchString(s.host) {
		return finding{}, false
	}
	return finding{scoreIPHost, "Direct IP address used in host (not a normal domain)"}, true
}

// The host has its port stripped, so the raw input is checked instead.
func checkExplicitPort(s *subject, rs *RuleSet) (finding, bool) {
	if !rs.PortPattern.MatchString(s.raw) {
		return finding{}, false
	}
	return finding{scoreExplicitPort, "Explicit port present in URL (uncommon for legitimate sites)"}, true
}

func checkEphemeralHost(s *subject, rs *RuleSet) (finding, bool) {
	if s.host == "" {
		return finding{}, false
	}
	for _, eh := range rs.EphemeralHosts {
		if s.host == eh || strings.HasSuffix(s.host, "."+eh) {
			return finding{scoreEphemeralHost, "Hosted on ephemeral/third-party platform: " + eh}, true
		}
	}
	return finding{}, false
}

func checkLongSubdomain(s *subject, _ *RuleSet) (finding, bool) {
	if !s.deep || len(s.sub) <= longSubdomainLen {
		return finding{}, false
	}
	return finding{scoreLongSubdomain, "Very long subdomain (unusually long host label)"}, true
}

func checkHyphenatedSubdomain(s *subject, _ *RuleSet) (finding, bool) {
	if !s.deep || strings.Count(s.sub, "-") < minHyphens {
		return finding{}, false
	}
	return finding{scoreHyphenSubdomain, "Multiple hyphens in subdomain (common in phishing hosts)"}, true
}

func checkTokenRichSubdomain(s *subject, _ *RuleSet) (finding, bool) {
	if !s.deep {
		return finding{}, false
	}
	tokens := strings.FieldsFunc(s.sub, func(r rune) bool {
		return r == '-' || r == '_' || r == '.'
	})
	if len(tokens) < minTokens {
		return finding{}, false
	}
	return finding{scoreTokenSubdomain, "Multi-word / token-rich subdomain (likely not a normal brand hostname)"}, true
}

// A brand token is only suspicious when it is not the registered name
// itself: paypal.com stays clean, paypal.secure-login.net does not.
func checkBrandImpersonation(s *subject, rs *RuleSet) (finding, bool) {
	if !s.deep {
		return finding{}, false
	}
	sub := strings.ToLower(s.sub)
	for _, b := range rs.BrandTokens {
		if b == s.sld || !strings.Contains(sub, b) {
			continue
		}
		reason := fmt.Sprintf("Brand impersonation detected: '%s' appears in subdomain while parent domain is '%s'", b, s.parent)
		return finding{scoreBrandInSub, reason}, true
	}
	return finding{}, false
}

func checkPunycode(s *subject, _ *RuleSet) (finding, bool) {
	if !strings.Contains(s.host, "xn--") {
		return finding{}, false
	}
	reason := "Punycode/IDN detected (possible homoglyph / homograph attack)"
	if uni, err := idna.Display.ToUnicode(s.host); err == nil && uni != s.host {
		reason += fmt.Sprintf("; displays as '%s'", uni)
	}
	return finding{scorePunycode, reason}, true
}

func checkShortener(s *subject, rs *RuleSet) (finding, bool) {
	for _, sh := range rs.Shorteners {
		if strings.Contains(s.lowerRaw, sh) {
			return finding{scoreShortener, "Uses known link shortener: " + sh}, true
		}
	}
	return finding{}, false
}

func checkPhishingKeyword(s *subject, rs *RuleSet) (finding, bool) {
	for _, k := range rs.PhishingKeywords {
		if strings.Contains(s.lowerRaw, k) {
			return finding{scorePhishingKeyword, fmt.Sprintf("Contains phishing-related keyword: '%s'", k)}, true
		}
	}
	return finding{}, false
}
