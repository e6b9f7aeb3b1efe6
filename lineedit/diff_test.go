package lineedit

import (
	"strings"
	"testing"
)

// applyAll is a test helper that runs edits through a fresh applier over a
// single in-memory file and returns the resulting content.
func applyAll(t *testing.T, path, content string, edits []Edit) string {
	t.Helper()
	fs := newMemStore(map[string]string{path: content})
	a := NewApplier(fs, -1)
	res, err := a.Apply(edits)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Failures) != 0 {
		t.Fatalf("reverse edits failed to apply: %v", res.Failures)
	}
	return fs.files[path]
}

func TestReverseEditsUndoReplacement(t *testing.T) {
	before := "one\ntwo\nthree\n"
	after := "one\nTWO\nthree\n"

	edits := ReverseEdits("r.txt", before, after)
	if got := applyAll(t, "r.txt", after, edits); got != before {
		t.Errorf("reversed = %q, want %q", got, before)
	}
}

func TestReverseEditsUndoInsertion(t *testing.T) {
	before := "a\nb\n"
	after := "a\nx\ny\nb\n"

	edits := ReverseEdits("r.txt", before, after)
	if got := applyAll(t, "r.txt", after, edits); got != before {
		t.Errorf("reversed = %q, want %q", got, before)
	}
}

func TestReverseEditsUndoDeletion(t *testing.T) {
	before := "a\nb\nc\n"
	after := "a\nc\n"

	edits := ReverseEdits("r.txt", before, after)
	if got := applyAll(t, "r.txt", after, edits); got != before {
		t.Errorf("reversed = %q, want %q", got, before)
	}
}

func TestReverseEditsRenderAndReparse(t *testing.T) {
	before := "alpha\nbeta\ngamma\ndelta\n"
	after := "alpha\nBETA\ngamma\n"

	edits := ReverseEdits("r.txt", before, after)
	text := RenderBlock("r.txt", edits)
	r := Parse(text)
	if !r.Clean() {
		t.Fatalf("rendered reverse edits did not reparse: %v\n%s", r.Failures, text)
	}
	if got := applyAll(t, "r.txt", after, r.Edits); got != before {
		t.Errorf("reversed = %q, want %q", got, before)
	}
}

func TestUnifiedDiffBasics(t *testing.T) {
	before := "l1\nl2\nl3\nl4\nl5\nsix\nl7\nl8\nl9\nl10\n"
	after := "l1\nl2\nl3\nl4\nl5\nSIX\nl7\nl8\nl9\nl10\n"

	diff := Unified("u.txt", before, after)
	for _, want := range []string{"--- a/u.txt", "+++ b/u.txt", "-six", "+SIX", " l3", " l9"} {
		if !strings.Contains(diff, want) {
			t.Errorf("diff missing %q:\n%s", want, diff)
		}
	}
	if strings.Contains(diff, "l1\n") {
		t.Errorf("line outside the context window leaked into the hunk:\n%s", diff)
	}
}

func TestUnifiedDiffEmptyForIdenticalContent(t *testing.T) {
	if diff := Unified("u.txt", "same\n", "same\n"); diff != "" {
		t.Errorf("diff = %q, want empty", diff)
	}
}
