package lineedit

import (
	"strings"
	"testing"
)

func TestParseSingleLineChange(t *testing.T) {
	input := strings.Join([]string{
		"Some prose before the edit.",
		"RL_EDIT a.txt",
		"1 c",
		"@1| OLD",
		"NEW",
		".",
		"RL_EDIT_END",
		"And prose after.",
	}, "\n")

	r := Parse(input)
	if !r.Clean() {
		t.Fatalf("expected clean parse, got failures=%v incomplete=%v", r.Failures, r.Incomplete)
	}
	if len(r.Edits) != 1 {
		t.Fatalf("expected 1 edit, got %d", len(r.Edits))
	}
	e := r.Edits[0]
	if e.File != "a.txt" || e.Op != OpChange || e.Begin != 1 || e.End != 1 {
		t.Errorf("unexpected edit: %+v", e)
	}
	if len(e.Anchors) != 1 || e.Anchors[0].Addr != 1 || e.Anchors[0].Content != "OLD" {
		t.Errorf("unexpected anchors: %+v", e.Anchors)
	}
	if len(e.Body) != 1 || e.Body[0] != "NEW" {
		t.Errorf("unexpected body: %q", e.Body)
	}
}

func TestParseRangeChangeWithTwoAnchors(t *testing.T) {
	input := strings.Join([]string{
		"RL_EDIT src/main.go",
		"10,12 c",
		"@10| func run() {",
		"@12| }",
		"func run() error {",
		"\treturn nil",
		"}",
		".",
		"RL_EDIT_END",
	}, "\n")

	r := Parse(input)
	if !r.Clean() {
		t.Fatalf("expected clean parse: %v", r.Failures)
	}
	e := r.Edits[0]
	if e.Begin != 10 || e.End != 12 {
		t.Errorf("range = %d,%d, want 10,12", e.Begin, e.End)
	}
	if len(e.Anchors) != 2 {
		t.Fatalf("anchors = %d, want 2", len(e.Anchors))
	}
	if e.Anchors[1].Addr != 12 || e.Anchors[1].Content != "}" {
		t.Errorf("second anchor = %+v", e.Anchors[1])
	}
	if len(e.Body) != 3 || e.Body[1] != "\treturn nil" {
		t.Errorf("body = %q", e.Body)
	}
}

func TestParseInsertAtStart(t *testing.T) {
	input := strings.Join([]string{
		"RL_EDIT b.txt",
		"0 a",
		"@0| ",
		"A",
		".",
		"RL_EDIT_END",
	}, "\n")

	r := Parse(input)
	if !r.Clean() {
		t.Fatalf("expected clean parse: %v", r.Failures)
	}
	e := r.Edits[0]
	if !e.IsInsert() || e.Begin != 1 || e.End != 0 {
		t.Errorf("expected insert before line 1, got %+v", e)
	}
	if e.Anchors[0].Addr != 0 || e.Anchors[0].Content != "" {
		t.Errorf("anchor = %+v, want empty @0", e.Anchors[0])
	}
}

func TestParseAppendAtEnd(t *testing.T) {
	input := strings.Join([]string{
		"RL_EDIT b.txt",
		"$ a",
		"@$| last line",
		"new last line",
		".",
		"RL_EDIT_END",
	}, "\n")

	r := Parse(input)
	if !r.Clean() {
		t.Fatalf("expected clean parse: %v", r.Failures)
	}
	e := r.Edits[0]
	if !e.IsInsert() || e.Begin < EndOfFile {
		t.Errorf("expected end-of-file insert, got %+v", e)
	}
	if e.Anchors[0].Addr != EndOfFile {
		t.Errorf("anchor addr = %d, want EndOfFile", e.Anchors[0].Addr)
	}
}

func TestParseAppendWithNumericAnchor(t *testing.T) {
	// Models addressing $ often still write the counted line number in the
	// anchor. The parser records it as-is; tolerance is applied at apply
	// time.
	input := "RL_EDIT c.txt\n$ a\n@2| L3\nL4\n.\nRL_EDIT_END\n"

	r := Parse(input)
	if !r.Clean() {
		t.Fatalf("expected clean parse: %v", r.Failures)
	}
	if r.Edits[0].Anchors[0].Addr != 2 {
		t.Errorf("anchor addr = %d, want 2", r.Edits[0].Anchors[0].Addr)
	}
}

func TestParseDeleteRangeHasNoBody(t *testing.T) {
	input := strings.Join([]string{
		"RL_EDIT d.txt",
		"2,3 d",
		"@2| second",
		"@3| third",
		"RL_EDIT_END",
	}, "\n")

	r := Parse(input)
	if !r.Clean() {
		t.Fatalf("expected clean parse: %v", r.Failures)
	}
	e := r.Edits[0]
	if e.Op != OpDelete || len(e.Body) != 0 {
		t.Errorf("unexpected delete edit: %+v", e)
	}
}

func TestParseEscapedBodyLines(t *testing.T) {
	input := strings.Join([]string{
		"RL_EDIT e.txt",
		"1 c",
		"@1| x",
		`\.`,
		`\\literal`,
		".",
		"RL_EDIT_END",
	}, "\n")

	r := Parse(input)
	if !r.Clean() {
		t.Fatalf("expected clean parse: %v", r.Failures)
	}
	body := r.Edits[0].Body
	if len(body) != 2 || body[0] != "." || body[1] != `\literal` {
		t.Errorf("body = %q", body)
	}
}

func TestParseDeleteFileDirective(t *testing.T) {
	r := Parse("RL_DELETE old/file.go\n")
	if len(r.Edits) != 1 || r.Edits[0].Kind != DeleteFile || r.Edits[0].File != "old/file.go" {
		t.Fatalf("unexpected result: %+v", r)
	}
}

func TestParseMissingFilename(t *testing.T) {
	input := "RL_EDIT\n1 c\n@1| x\ny\n.\nRL_EDIT_END\n"
	r := Parse(input)
	if len(r.Edits) != 0 {
		t.Errorf("expected no edits, got %d", len(r.Edits))
	}
	if len(r.Failures) != 1 || r.Failures[0].Reason != ReasonMissingFilename {
		t.Fatalf("failures = %v", r.Failures)
	}
}

func TestParseTooManyAnchorsVoidsOnlyThatDirective(t *testing.T) {
	input := strings.Join([]string{
		"RL_EDIT f.txt",
		"1 c",
		"@1| a",
		"@2| b",
		"@3| c",
		"bad body",
		".",
		"2 c",
		"@2| b",
		"good",
		".",
		"RL_EDIT_END",
	}, "\n")

	r := Parse(input)
	if len(r.Failures) != 1 || r.Failures[0].Reason != ReasonTooManyAnchors {
		t.Fatalf("failures = %v", r.Failures)
	}
	if len(r.Edits) != 1 || r.Edits[0].Begin != 2 {
		t.Fatalf("expected the second directive to survive, got %+v", r.Edits)
	}
}

func TestParseMissingAnchor(t *testing.T) {
	input := "RL_EDIT g.txt\n5,7 c\n@5| only one\nbody\n.\nRL_EDIT_END\n"
	r := Parse(input)
	if len(r.Edits) != 0 {
		t.Errorf("expected no edits, got %+v", r.Edits)
	}
	if len(r.Failures) != 1 || r.Failures[0].Reason != ReasonMissingAnchor {
		t.Fatalf("failures = %v", r.Failures)
	}
}

func TestParseBadCommandKeepsScanning(t *testing.T) {
	input := strings.Join([]string{
		"RL_EDIT h.txt",
		"not a command",
		"1 c",
		"@1| x",
		"y",
		".",
		"RL_EDIT_END",
	}, "\n")

	r := Parse(input)
	if len(r.Failures) != 1 || r.Failures[0].Reason != ReasonBadCommand {
		t.Fatalf("failures = %v", r.Failures)
	}
	if len(r.Edits) != 1 {
		t.Fatalf("expected the valid directive to parse, got %d edits", len(r.Edits))
	}
}

func TestParseImplicitCloseAtEndOfInput(t *testing.T) {
	input := "RL_EDIT i.txt\n1 c\n@1| x\ny\n.\n"
	r := Parse(input)
	if !r.Clean() {
		t.Fatalf("expected clean parse, got failures=%v incomplete=%v", r.Failures, r.Incomplete)
	}
}

func TestParseImplicitCloseAtNextFence(t *testing.T) {
	input := strings.Join([]string{
		"RL_EDIT one.txt",
		"1 c",
		"@1| a",
		"b",
		".",
		"RL_EDIT two.txt",
		"1 c",
		"@1| c",
		"d",
		".",
		"RL_EDIT_END",
	}, "\n")

	r := Parse(input)
	if !r.Clean() || len(r.Edits) != 2 {
		t.Fatalf("expected 2 clean edits, got %+v / %v", r.Edits, r.Failures)
	}
	if r.Edits[0].File != "one.txt" || r.Edits[1].File != "two.txt" {
		t.Errorf("files = %s, %s", r.Edits[0].File, r.Edits[1].File)
	}
}

func TestParseTruncatedBodyIsIncomplete(t *testing.T) {
	input := "RL_EDIT j.txt\n1 c\n@1| x\nfirst body line\nsecond body li"
	r := Parse(input)
	if !r.Incomplete {
		t.Fatal("expected incomplete parse for truncated body")
	}
	if len(r.Edits) != 0 {
		t.Fatalf("expected the half directive to be dropped, got %d edits", len(r.Edits))
	}
}

func TestParseTruncationKeepsEarlierDirectives(t *testing.T) {
	input := strings.Join([]string{
		"RL_EDIT m.txt",
		"1 c",
		"@1| OLD",
		"NEW",
		".",
		"3 c",
		"@3| thi",
	}, "\n")

	r := Parse(input)
	if !r.Incomplete {
		t.Fatal("expected incomplete parse")
	}
	if len(r.Edits) != 1 || r.Edits[0].Begin != 1 {
		t.Fatalf("expected only the complete directive, got %+v", r.Edits)
	}
}

func TestParseTruncatedAnchorsIsIncomplete(t *testing.T) {
	input := "RL_EDIT k.txt\n10,12 c\n@10| only"
	r := Parse(input)
	if !r.Incomplete {
		t.Fatal("expected incomplete parse")
	}
	if len(r.Edits) != 0 {
		t.Errorf("expected no edits, got %+v", r.Edits)
	}
	if len(r.Failures) != 1 || r.Failures[0].Reason != ReasonMissingEndFence {
		t.Errorf("failures = %v", r.Failures)
	}
}

func TestParsePureFailure(t *testing.T) {
	r := Parse("RL_EDIT\n")
	if !r.PureFailure() {
		t.Fatalf("expected pure failure, got %+v", r)
	}
}

func TestParseIgnoresProseOnly(t *testing.T) {
	r := Parse("I could not find any changes to make.\n")
	if len(r.Edits) != 0 || len(r.Failures) != 0 || r.Incomplete {
		t.Fatalf("expected empty result, got %+v", r)
	}
}
