package fstree

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

// GlobList is a compiled set of gitignore-like include/exclude patterns.
type GlobList struct {
	patterns   []string
	inclusive  *regexp.Regexp
	exclusive  *regexp.Regexp // currently always nil: negation is unsupported
	finalized  bool
}

// NewGlobList returns an empty, unfinalized glob list.
func NewGlobList() *GlobList { return &GlobList{} }

// Add registers one pattern. Leading '!' negation is syntactically accepted
// upstream but rejected here with KindUnsupported, matching the original
// implementation's behavior exactly (see DESIGN.md Open Question decisions).
func (g *GlobList) Add(pattern string) error {
	if strings.HasPrefix(pattern, "!") {
		return wrapf(KindUnsupported, "GlobList.Add", pattern, "negated patterns are not supported")
	}
	pattern = strings.TrimRight(pattern, "/")
	if pattern == "" {
		return nil
	}
	g.patterns = append(g.patterns, pattern)
	g.finalized = false
	return nil
}

// Load reads newline-delimited patterns from r, skipping blank lines and
// '#' comments.
func (g *GlobList) Load(r io.Reader) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := g.Add(line); err != nil {
			return err
		}
	}
	return sc.Err()
}

// Finalize compiles the accumulated patterns into a single alternation
// regex. Must be called before Match; Add invalidates a prior Finalize.
func (g *GlobList) Finalize() error {
	if len(g.patterns) == 0 {
		g.inclusive = nil
		g.finalized = true
		return nil
	}
	parts := make([]string, 0, len(g.patterns))
	for _, p := range g.patterns {
		parts = append(parts, compileGlob(p))
	}
	re, err := regexp.Compile("(?:" + strings.Join(parts, "|") + ")")
	if err != nil {
		return wrapf(KindInvalidArgument, "GlobList.Finalize", "", "%v", err)
	}
	g.inclusive = re
	g.finalized = true
	return nil
}

// Match reports whether path (forward-slash separated, relative to root) is
// ignored: the exclusive regex (always absent here) does not match and the
// inclusive regex does.
func (g *GlobList) Match(path string) bool {
	if !g.finalized || g.inclusive == nil {
		return false
	}
	if g.exclusive != nil && g.exclusive.MatchString(path) {
		return false
	}
	return g.inclusive.MatchString(path)
}

// compileGlob turns one gitignore-like pattern into a regex fragment.
// Leading '/' anchors at the root; otherwise an implicit "(.*/)?" prefix is
// assumed. '*' matches within one path segment, '**' matches across
// segments, '?' matches any single character except '/'.
func compileGlob(pattern string) string {
	var b strings.Builder
	anchored := strings.HasPrefix(pattern, "/")
	if anchored {
		pattern = pattern[1:]
		b.WriteString("^")
	} else {
		b.WriteString("^(?:.*/)?")
	}

	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch c {
		case '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				// "**" matches across segments, including zero.
				b.WriteString(".*")
				i++
				// swallow an immediately following slash: "**/x" already
				// covers the zero-segment case.
				if i+1 < len(runes) && runes[i+1] == '/' {
					i++
				}
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		case '.', '+', '(', ')', '|', '^', '$', '{', '}', '[', ']', '\\':
			b.WriteString("\\")
			b.WriteRune(c)
		default:
			b.WriteRune(c)
		}
	}
	b.WriteString("(?:/.*)?$")
	return b.String()
}
