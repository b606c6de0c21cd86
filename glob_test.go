package fstree

import (
	"strings"
	"testing"
)

func compiledGlobList(t *testing.T, patterns ...string) *GlobList {
	t.Helper()
	g := NewGlobList()
	for _, p := range patterns {
		if err := g.Add(p); err != nil {
			t.Fatalf("Add(%q): %v", p, err)
		}
	}
	if err := g.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return g
}

func TestGlobListUnanchoredMatchesAnywhere(t *testing.T) {
	g := compiledGlobList(t, "build")
	cases := map[string]bool{
		"build":         true,
		"build/out.o":   true,
		"src/build":     true,
		"src/build/a":   true,
		"src/builder":   false,
		"src/main.cpp":  false,
	}
	for path, want := range cases {
		if got := g.Match(path); got != want {
			t.Errorf("Match(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestGlobListAnchored(t *testing.T) {
	g := compiledGlobList(t, "/build")
	if !g.Match("build") {
		t.Errorf("expected /build to match root-level build")
	}
	if g.Match("src/build") {
		t.Errorf("anchored pattern must not match nested build")
	}
}

func TestGlobListTrailingSlashStripped(t *testing.T) {
	g := compiledGlobList(t, "build/")
	if !g.Match("build") {
		t.Errorf("trailing slash should be stripped, matching the bare name")
	}
}

func TestGlobListSingleStarWithinSegment(t *testing.T) {
	g := compiledGlobList(t, "*.o")
	if !g.Match("out.o") {
		t.Errorf("expected *.o to match out.o")
	}
	if !g.Match("dir/out.o") {
		t.Errorf("unanchored *.o should match in any directory")
	}
}

func TestGlobListDoubleStarAcrossSegments(t *testing.T) {
	g := compiledGlobList(t, "a/**/z")
	if !g.Match("a/z") {
		t.Errorf("** must match zero segments")
	}
	if !g.Match("a/b/c/z") {
		t.Errorf("** must match multiple segments")
	}
}

func TestGlobListQuestionMark(t *testing.T) {
	g := compiledGlobList(t, "a?c")
	if !g.Match("abc") {
		t.Errorf("? should match a single char")
	}
	if g.Match("ac") {
		t.Errorf("? must match exactly one char, not zero")
	}
	if g.Match("a/c") {
		t.Errorf("? must not cross a path separator")
	}
}

func TestGlobListNegationUnsupported(t *testing.T) {
	g := NewGlobList()
	err := g.Add("!keep.txt")
	if err == nil {
		t.Fatalf("expected negated pattern to be rejected")
	}
	if !IsKind(err, KindUnsupported) {
		t.Fatalf("got kind %v, want Unsupported", err)
	}
}

func TestGlobListLoadSkipsCommentsAndBlanks(t *testing.T) {
	g := NewGlobList()
	r := strings.NewReader("# a comment\n\nbuild\n  \n*.log\n")
	if err := g.Load(r); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := g.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if !g.Match("build") || !g.Match("debug.log") {
		t.Fatalf("expected loaded patterns to match")
	}
}

func TestGlobListEmptyNeverMatches(t *testing.T) {
	g := compiledGlobList(t)
	if g.Match("anything") {
		t.Fatalf("empty glob list must never match")
	}
}
