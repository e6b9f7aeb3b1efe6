package editloop

import (
	"github.com/martinemde/redline/lineedit"
	"github.com/martinemde/redline/textgen"
)

// ConversationState is an immutable snapshot of the message history. Every
// mutation returns a fresh value, so a phase that fails can be retried
// against the state it started from.
type ConversationState struct {
	messages []textgen.Message
}

// NewConversation creates a conversation seeded with the given messages.
func NewConversation(messages ...textgen.Message) ConversationState {
	return ConversationState{messages: append([]textgen.Message(nil), messages...)}
}

// Messages returns a copy of the history.
func (s ConversationState) Messages() []textgen.Message {
	out := make([]textgen.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages.
func (s ConversationState) Len() int { return len(s.messages) }

// WithMessage returns the conversation extended by one message.
func (s ConversationState) WithMessage(m textgen.Message) ConversationState {
	out := make([]textgen.Message, len(s.messages), len(s.messages)+1)
	copy(out, s.messages)
	return ConversationState{messages: append(out, m)}
}

// WithRedactedAssistants returns the conversation with directive bodies in
// prior assistant messages elided. Applied content no longer earns its
// context window space once the files themselves carry it.
func (s ConversationState) WithRedactedAssistants() ConversationState {
	out := make([]textgen.Message, len(s.messages))
	copy(out, s.messages)
	for i := range out {
		if out[i].Role == textgen.RoleAssistant {
			out[i].Content = lineedit.Redact(out[i].Content)
		}
	}
	return ConversationState{messages: out}
}

// EditState is an immutable snapshot of the loop's editing progress:
// consecutive-failure counters, edits parsed but not yet applied, and the
// files modified since the last verification.
type EditState struct {
	pending           []lineedit.Edit
	parseFailures     int
	applyFailures     int
	verifyFailures    int
	changedSinceCheck []string
	fallbackUsed      bool
	lastVerifyFailed  bool
}

// Pending returns the edits held from a partial parse.
func (s EditState) Pending() []lineedit.Edit {
	return append([]lineedit.Edit(nil), s.pending...)
}

// ChangedSinceVerify returns the files modified since the last verification.
func (s EditState) ChangedSinceVerify() []string {
	return append([]string(nil), s.changedSinceCheck...)
}

// FallbackUsed reports whether the whole-file replacement fallback has run.
func (s EditState) FallbackUsed() bool { return s.fallbackUsed }

func (s EditState) withPending(edits []lineedit.Edit) EditState {
	s.pending = append(append([]lineedit.Edit(nil), s.pending...), edits...)
	return s
}

func (s EditState) clearPending() EditState {
	s.pending = nil
	return s
}

func (s EditState) bumpParseFailures() EditState {
	s.parseFailures++
	return s
}

func (s EditState) resetParseFailures() EditState {
	s.parseFailures = 0
	return s
}

func (s EditState) bumpApplyFailures() EditState {
	s.applyFailures++
	return s
}

func (s EditState) resetApplyFailures() EditState {
	s.applyFailures = 0
	return s
}

func (s EditState) bumpVerifyFailures() EditState {
	s.verifyFailures++
	return s
}

func (s EditState) withChanged(files []string) EditState {
	merged := append([]string(nil), s.changedSinceCheck...)
	for _, f := range files {
		seen := false
		for _, have := range merged {
			if have == f {
				seen = true
				break
			}
		}
		if !seen {
			merged = append(merged, f)
		}
	}
	s.changedSinceCheck = merged
	return s
}

func (s EditState) clearChanged() EditState {
	s.changedSinceCheck = nil
	return s
}

func (s EditState) withFallbackUsed() EditState {
	s.fallbackUsed = true
	return s
}

func (s EditState) withVerifyFailed() EditState {
	s.lastVerifyFailed = true
	return s
}
