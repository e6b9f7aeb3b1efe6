package lineedit

import (
	"fmt"
	"strings"
)

// EndOfFile is the sentinel address for $. It is resolved against the actual
// file length at apply time.
const EndOfFile = 1 << 30

// EditKind discriminates the edit union.
type EditKind string

const (
	// EditFile modifies a range of lines in one file.
	EditFile EditKind = "edit_file"
	// DeleteFile removes a file entirely.
	DeleteFile EditKind = "delete_file"
)

// Op identifies the command operation within an RL_EDIT block.
type Op rune

const (
	OpChange Op = 'c'
	OpAppend Op = 'a'
	OpDelete Op = 'd'
)

// Anchor pairs an address with the file content the model expects there.
// Content is compared after trimming surrounding whitespace; an empty
// Content matches any line.
type Anchor struct {
	Addr    int    // 1-based line, 0 for start-of-file, EndOfFile for $
	Content string // expected line content, may be empty
}

// Edit is one parsed directive. Kind selects which fields are meaningful:
// DeleteFile uses only File; EditFile uses the rest.
//
// Begin and End are a 1-based inclusive line range. An insertion is encoded
// as End < Begin: the body is spliced in before line Begin with nothing
// removed. EndOfFile marks $-relative addresses.
type Edit struct {
	Kind    EditKind
	File    string
	Op      Op
	Begin   int
	End     int
	Anchors []Anchor
	Body    []string
}

// IsInsert reports whether the edit inserts without removing lines.
func (e Edit) IsInsert() bool {
	return e.Kind == EditFile && e.End < e.Begin
}

// addrString formats an address for rendering and messages.
func addrString(addr int) string {
	if addr >= EndOfFile {
		return "$"
	}
	return fmt.Sprintf("%d", addr)
}

// String returns a short human-readable summary of the edit.
func (e Edit) String() string {
	if e.Kind == DeleteFile {
		return fmt.Sprintf("delete %s", e.File)
	}
	if e.IsInsert() {
		return fmt.Sprintf("%s: insert %d line(s) before line %s", e.File, len(e.Body), addrString(e.Begin))
	}
	return fmt.Sprintf("%s: %c %s,%s (%d body line(s))", e.File, e.Op, addrString(e.Begin), addrString(e.End), len(e.Body))
}

// FailReason classifies why a directive could not be parsed.
type FailReason string

const (
	ReasonMissingFilename FailReason = "missing_filename"
	ReasonBadCommand      FailReason = "bad_command"
	ReasonBadAnchor       FailReason = "bad_anchor"
	ReasonMissingAnchor   FailReason = "missing_anchor"
	ReasonTooManyAnchors  FailReason = "too_many_anchors"
	ReasonMissingEndFence FailReason = "missing_end_fence"
)

// ParseFailure records one directive the parser could not accept. Snippet
// holds the offending text so retry prompts can quote it back to the model.
type ParseFailure struct {
	Reason  FailReason
	File    string // empty when the filename itself was the problem
	Snippet string
	Message string
}

func (f ParseFailure) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s", f.Reason)
	if f.File != "" {
		fmt.Fprintf(&sb, " (%s)", f.File)
	}
	if f.Message != "" {
		fmt.Fprintf(&sb, ": %s", f.Message)
	}
	return sb.String()
}

// Result is the outcome of parsing one model reply. Parsing is best-effort:
// valid directives land in Edits, everything else in Failures. Incomplete is
// set when the input ends inside an unfinished directive, which usually
// means the reply was truncated.
type Result struct {
	Edits      []Edit
	Failures   []ParseFailure
	Incomplete bool
}

// Clean reports a parse with at least one edit and nothing wrong.
func (r Result) Clean() bool {
	return len(r.Edits) > 0 && len(r.Failures) == 0 && !r.Incomplete
}

// PureFailure reports a parse that produced no usable edits but did find
// directive syntax it could not accept.
func (r Result) PureFailure() bool {
	return len(r.Edits) == 0 && len(r.Failures) > 0
}
