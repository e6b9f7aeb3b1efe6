package editloop

import (
	"strings"
	"testing"

	"github.com/martinemde/redline/lineedit"
	"github.com/martinemde/redline/textgen"
)

func TestConversationStateIsImmutable(t *testing.T) {
	base := NewConversation(textgen.SystemMessage("sys"))
	extended := base.WithMessage(textgen.UserMessage("hello"))

	if base.Len() != 1 {
		t.Errorf("base grew to %d messages", base.Len())
	}
	if extended.Len() != 2 {
		t.Errorf("extended = %d messages, want 2", extended.Len())
	}

	// Mutating a returned copy must not leak back in.
	msgs := extended.Messages()
	msgs[0].Content = "tampered"
	if extended.Messages()[0].Content != "sys" {
		t.Error("Messages() exposed internal state")
	}
}

func TestConversationRedactsAssistantDirectives(t *testing.T) {
	directive := strings.Join([]string{
		"Making the change now.",
		"RL_EDIT a.txt",
		"1 c",
		"@1| OLD",
		"NEW",
		".",
		"RL_EDIT_END",
	}, "\n")

	conv := NewConversation(
		textgen.UserMessage(directive), // user text must survive untouched
		textgen.AssistantMessage(directive),
	)
	redacted := conv.WithRedactedAssistants()

	msgs := redacted.Messages()
	if msgs[0].Content != directive {
		t.Error("user message should not be redacted")
	}
	if strings.Contains(msgs[1].Content, "NEW") {
		t.Error("assistant directive body should be elided")
	}
	if !strings.Contains(msgs[1].Content, "elided") {
		t.Errorf("expected an elision marker, got: %s", msgs[1].Content)
	}
	// The original is untouched.
	if !strings.Contains(conv.Messages()[1].Content, "NEW") {
		t.Error("redaction mutated the source conversation")
	}
}

func TestEditStateCountersAreCopies(t *testing.T) {
	s := EditState{}
	bumped := s.bumpParseFailures().bumpParseFailures()
	if s.parseFailures != 0 {
		t.Error("bump mutated the receiver")
	}
	if bumped.parseFailures != 2 {
		t.Errorf("parseFailures = %d, want 2", bumped.parseFailures)
	}
	if bumped.resetParseFailures().parseFailures != 0 {
		t.Error("reset should zero the counter")
	}
}

func TestEditStatePendingAccumulates(t *testing.T) {
	e1 := lineedit.Edit{Kind: lineedit.EditFile, File: "a.txt", Op: lineedit.OpChange, Begin: 1, End: 1}
	e2 := lineedit.Edit{Kind: lineedit.EditFile, File: "b.txt", Op: lineedit.OpChange, Begin: 2, End: 2}

	s := EditState{}.withPending([]lineedit.Edit{e1}).withPending([]lineedit.Edit{e2})
	pending := s.Pending()
	if len(pending) != 2 || pending[0].File != "a.txt" || pending[1].File != "b.txt" {
		t.Fatalf("pending = %+v", pending)
	}
	if len(s.clearPending().Pending()) != 0 {
		t.Error("clearPending should empty the slice")
	}
}

func TestEditStateChangedDeduplicates(t *testing.T) {
	s := EditState{}.withChanged([]string{"a.txt", "b.txt"}).withChanged([]string{"b.txt", "c.txt"})
	got := s.ChangedSinceVerify()
	if len(got) != 3 {
		t.Fatalf("changed = %v, want 3 unique files", got)
	}
	if got[0] != "a.txt" || got[1] != "b.txt" || got[2] != "c.txt" {
		t.Errorf("order = %v, want first-touch order", got)
	}
	if len(s.clearChanged().ChangedSinceVerify()) != 0 {
		t.Error("clearChanged should empty the list")
	}
}
