package classify

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrEmptyRuleTable is returned when a rules file sets a table to an empty list.
var ErrEmptyRuleTable = errors.New("rule table is empty")

// RuleSet holds the static tables the evaluators match against. Candidate
// order matters: the first match in a table wins.
type RuleSet struct {
	EphemeralHosts   []string
	BrandTokens      []string
	Shorteners       []string
	PhishingKeywords []string
	IPPattern        *regexp.Regexp
	PortPattern      *regexp.Regexp
}

var (
	defaultEphemeralHosts = []string{
		"trycloudflare.com", "workers.dev", "pages.dev", "vercel.app",
		"netlify.app", "ngrok.io", "herokuapp.com", "github.io", "pagekite.me",
	}

	defaultBrandTokens = []string{
		"instagram", "paypal", "google", "facebook", "amazon", "microsoft",
		"sbi", "hdfc", "icici", "bank", "upi", "gmail", "otp",
	}

	defaultShorteners = []string{"bit.ly", "tinyurl", "t.co", "is.gd", "rb.gy", "ow.ly"}

	defaultPhishingKeywords = []string{
		"verify", "login", "reset", "auth", "secure", "confirm",
		"payment", "account", "signin", "password", "otp",
	}

	ipLiteralRE    = regexp.MustCompile(`\b\d{1,3}(?:\.\d{1,3}){3}\b`)
	explicitPortRE = regexp.MustCompile(`:\d{2,5}`)
)

// DefaultRules returns the production rule tables. The slices are fresh
// copies, so callers may edit them without touching other engines.
func DefaultRules() RuleSet {
	return RuleSet{
		EphemeralHosts:   clone(defaultEphemeralHosts),
		BrandTokens:      clone(defaultBrandTokens),
		Shorteners:       clone(defaultShorteners),
		PhishingKeywords: clone(defaultPhishingKeywords),
		IPPattern:        ipLiteralRE,
		PortPattern:      explicitPortRE,
	}
}

// Clone returns a deep copy of the tables. Compiled patterns are shared
// since regexp.Regexp is safe for concurrent use.
func (rs RuleSet) Clone() RuleSet {
	return RuleSet{
		EphemeralHosts:   clone(rs.EphemeralHosts),
		BrandTokens:      clone(rs.BrandTokens),
		Shorteners:       clone(rs.Shorteners),
		PhishingKeywords: clone(rs.PhishingKeywords),
		IPPattern:        rs.IPPattern,
		PortPattern:      rs.PortPattern,
	}
}

// rulesFile mirrors the YAML layout. Pointers distinguish an absent key
// (keep the default) from an explicit empty list (rejected).
type rulesFile struct {
	EphemeralHosts   *[]string `yaml:"ephemeral_hosts"`
	BrandTokens      *[]string `yaml:"brand_tokens"`
	Shorteners       *[]string `yaml:"shorteners"`
	PhishingKeywords *[]string `yaml:"phishing_keywords"`
	IPPattern        string    `yaml:"ip_pattern"`
	PortPattern      string    `yaml:"port_pattern"`
}

// LoadRules overlays the YAML tables read from r on top of DefaultRules.
// Entries are trimmed and lowercased; blank entries are dropped.
func LoadRules(r io.Reader) (RuleSet, error) {
	rs := DefaultRules()

	var f rulesFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return rs, nil
		}
		return RuleSet{}, fmt.Errorf("decode rules: %w", err)
	}

	tables := []struct {
		name string
		src  *[]string
		dst  *[]string
	}{
		{"ephemeral_hosts", f.EphemeralHosts, &rs.EphemeralHosts},
		{"brand_tokens", f.BrandTokens, &rs.BrandTokens},
		{"shorteners", f.Shorteners, &rs.Shorteners},
		{"phishing_keywords", f.PhishingKeywords, &rs.PhishingKeywords},
	}
	for _, t := range tables {
		if t.src == nil {
			continue
		}
		entries := normalizeEntries(*t.src)
		if len(entries) == 0 {
			return RuleSet{}, fmt.Errorf("%s: %w", t.name, ErrEmptyRuleTable)
		}
		*t.dst = entries
	}

	if f.IPPattern != "" {
		re, err := regexp.Compile(f.IPPattern)
		if err != nil {
			return RuleSet{}, fmt.Errorf("ip_pattern: %w", err)
		}
		rs.IPPattern = re
	}
	if f.PortPattern != "" {
		re, err := regexp.Compile(f.PortPattern)
		if err != nil {
			return RuleSet{}, fmt.Errorf("port_pattern: %w", err)
		}
		rs.PortPattern = re
	}

	return rs, nil
}

// LoadRulesFile is LoadRules for a file on disk.
func LoadRulesFile(path string) (RuleSet, error) {
	fh, err := os.Open(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("open rules file: %w", err)
	}
	defer fh.Close()

	rs, err := LoadRules(fh)
	if err != nil {
		return RuleSet{}, fmt.Errorf("%s: %w", path, err)
	}
	return rs, nil
}

func normalizeEntries(in []string) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}

func clone(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
