// Package issues extracts issue-tracker keys from session activity.
//
// Keys are searched in branch names, commit messages, prompt previews and
// working-directory paths, each source carrying a fixed confidence weight.
package issues

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/joss/worklog/internal/domain"
)

// Per-source confidence weights.
const (
	ConfidenceBranch    = 1.0
	ConfidenceCommit    = 1.0
	ConfidencePrompt    = 0.7
	ConfidenceDirectory = 0.5
)

// keyPattern is the built-in issue-key shape: a short letter prefix, hyphen,
// digits (PROJ-123). Matching is case-insensitive; keys normalize to upper.
var (
	keyPattern     = regexp.MustCompile(`(?i)\b[A-Z]{1,10}-\d+\b`)
	fullKeyPattern = regexp.MustCompile(`(?i)^[A-Z]{1,10}-\d+$`)
)

// IsValidKey reports whether s matches the issue-key shape in full. Used to
// reject partial matches produced by custom patterns.
func IsValidKey(s string) bool {
	return fullKeyPattern.MatchString(s)
}

// Extractor scans session material for issue keys.
type Extractor struct {
	custom []*regexp.Regexp
}

// New creates an extractor with optional custom patterns, which are tried in
// addition to the built-in pattern.
func New(customPatterns []string) (*Extractor, error) {
	e := &Extractor{}
	for _, p := range customPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("issues: invalid custom pattern %q: %w", p, err)
		}
		e.custom = append(e.custom, re)
	}
	return e, nil
}

// candidate accumulates the winning sources for one issue key.
type candidate struct {
	sources    []string
	confidence float64
}

// FromSession extracts issue keys for one session and its correlated commits.
// When the same key is found via multiple sources, the strictly higher
// confidence wins; at equal confidence the source labels merge comma-joined
// and the tied confidence is retained.
func (e *Extractor) FromSession(session domain.Session, commits []domain.CommitRecord) []domain.IssueLink {
	found := make(map[string]*candidate)

	// Branch: only the branch recorded on the session's first entry.
	if len(session.Entries) > 0 {
		for _, key := range e.scan(session.Entries[0].GitBranch) {
			merge(found, key, string(domain.SourceBranch), ConfidenceBranch)
		}
	}

	for _, c := range commits {
		for _, key := range e.scan(c.Message) {
			merge(found, key, string(domain.SourceCommit), ConfidenceCommit)
		}
	}

	for _, entry := range session.Entries {
		for _, key := range e.scan(entry.PromptPreview) {
			merge(found, key, string(domain.SourcePrompt), ConfidencePrompt)
		}
	}

	for _, entry := range session.Entries {
		for _, key := range e.scanPath(entry.Cwd) {
			merge(found, key, string(domain.SourceDirectory), ConfidenceDirectory)
		}
	}

	keys := make([]string, 0, len(found))
	for k := range found {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	links := make([]domain.IssueLink, 0, len(keys))
	for _, k := range keys {
		c := found[k]
		links = append(links, domain.IssueLink{
			SessionID:  session.ID,
			IssueKey:   k,
			Source:     strings.Join(c.sources, ","),
			Confidence: c.confidence,
		})
	}
	return links
}

// scan finds keys anywhere in text via the built-in pattern plus the custom
// ones. Custom matches must still pass the full key-shape check.
func (e *Extractor) scan(text string) []string {
	if text == "" {
		return nil
	}
	var keys []string
	for _, m := range keyPattern.FindAllString(text, -1) {
		keys = append(keys, strings.ToUpper(m))
	}
	for _, re := range e.custom {
		for _, m := range re.FindAllString(text, -1) {
			if IsValidKey(m) {
				keys = append(keys, strings.ToUpper(m))
			}
		}
	}
	return keys
}

// scanPath matches keys that occupy a full path segment. "/u/TASK-7/app"
// matches, "/u/TASK-7x/app" does not.
func (e *Extractor) scanPath(path string) []string {
	if path == "" {
		return nil
	}
	var keys []string
	for _, seg := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if fullKeyPattern.MatchString(seg) {
			keys = append(keys, strings.ToUpper(seg))
			continue
		}
		for _, re := range e.custom {
			if m := re.FindString(seg); m == seg && IsValidKey(seg) {
				keys = append(keys, strings.ToUpper(seg))
				break
			}
		}
	}
	return keys
}

func merge(found map[string]*candidate, key, source string, confidence float64) {
	c, ok := found[key]
	if !ok {
		found[key] = &candidate{sources: []string{source}, confidence: confidence}
		return
	}
	switch {
	case confidence > c.confidence:
		c.sources = []string{source}
		c.confidence = confidence
	case confidence == c.confidence:
		for _, s := range c.sources {
			if s == source {
				return
			}
		}
		c.sources = append(c.sources, source)
	}
}
