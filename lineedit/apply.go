package lineedit

import (
	"fmt"
	"sort"
	"strings"
)

// FileStore is the minimal file access the applier needs. editloop's
// Workspace satisfies it.
type FileStore interface {
	Read(path string) (string, error)
	Write(path, content string) error
	Delete(path string) error
	Exists(path string) bool
}

// ApplyReason classifies why a directive could not be applied.
type ApplyReason string

const (
	ApplyFileNotFound  ApplyReason = "file_not_found"
	ApplyInvalidRange  ApplyReason = "invalid_range"
	ApplyAnchorMismatch ApplyReason = "anchor_mismatch"
	ApplyOverlap       ApplyReason = "overlapping_edits"
)

// ApplyFailure records one directive that was rejected. The rest of the
// batch still applies.
type ApplyFailure struct {
	File    string
	Reason  ApplyReason
	Message string
	Edit    Edit
}

func (f ApplyFailure) String() string {
	return fmt.Sprintf("%s: %s: %s", f.File, f.Reason, f.Message)
}

// BatchResult summarizes one Apply call.
type BatchResult struct {
	Applied  []Edit
	Failures []ApplyFailure
	Changed  []string // files written or deleted, in first-touch order
}

// DefaultAnchorTolerance is how far a numeric anchor address may sit from
// the actual last line when the command addressed $. Models counting lines
// near the end of a file are off by a line or two surprisingly often.
const DefaultAnchorTolerance = 2

// Applier validates and applies edit batches against a FileStore. It lives
// for a whole editing session so that Originals can capture each file's
// content from before the session touched it, no matter how many batches
// modify the file afterwards.
type Applier struct {
	files     FileStore
	tolerance int
	originals map[string]string
}

// NewApplier creates an applier over fs. tolerance < 0 selects the default.
func NewApplier(fs FileStore, tolerance int) *Applier {
	if tolerance < 0 {
		tolerance = DefaultAnchorTolerance
	}
	return &Applier{
		files:     fs,
		tolerance: tolerance,
		originals: make(map[string]string),
	}
}

// Originals returns the pre-session content of every file the applier has
// modified. Files created during the session map to the empty string.
func (a *Applier) Originals() map[string]string {
	out := make(map[string]string, len(a.originals))
	for k, v := range a.originals {
		out[k] = v
	}
	return out
}

// Original returns the captured pre-session content for one file.
func (a *Applier) Original(path string) (string, bool) {
	content, ok := a.originals[path]
	return content, ok
}

// RecordOriginal captures content as path's pre-session content, unless one
// is already recorded. Callers that modify files outside Apply (such as a
// whole-file replacement fallback) use this to keep the originals complete.
func (a *Applier) RecordOriginal(path, content string) {
	a.captureOriginal(path, content)
}

// Apply runs one batch of directives. Directives are grouped per file and
// validated together; failures are collected, not fatal. The returned error
// is reserved for I/O problems, which abort the batch.
func (a *Applier) Apply(edits []Edit) (BatchResult, error) {
	var result BatchResult

	// Group per file, preserving directive order within each file.
	order := make([]string, 0, len(edits))
	byFile := make(map[string][]Edit)
	for _, e := range edits {
		if _, seen := byFile[e.File]; !seen {
			order = append(order, e.File)
		}
		byFile[e.File] = append(byFile[e.File], e)
	}

	for _, path := range order {
		applied, failures, changed, err := a.applyFile(path, byFile[path])
		if err != nil {
			return result, err
		}
		result.Applied = append(result.Applied, applied...)
		result.Failures = append(result.Failures, failures...)
		if changed {
			result.Changed = append(result.Changed, path)
		}
	}
	return result, nil
}

// applyFile applies all of one file's directives in a single read-splice-write
// pass.
func (a *Applier) applyFile(path string, edits []Edit) (applied []Edit, failures []ApplyFailure, changed bool, err error) {
	// File deletion stands alone; mixing it with line edits in one batch is
	// treated as the delete winning, matching directive order semantics.
	for _, e := range edits {
		if e.Kind == DeleteFile {
			return a.deleteFile(path, e, edits)
		}
	}

	content, exists, err := a.readFile(path)
	if err != nil {
		return nil, nil, false, err
	}

	if !exists && !creatable(edits) {
		for _, e := range edits {
			failures = append(failures, ApplyFailure{
				File:    path,
				Reason:  ApplyFileNotFound,
				Message: "file does not exist",
				Edit:    e,
			})
		}
		return nil, failures, false, nil
	}

	lines := splitContent(content)

	// Validate every directive against the unmodified file first.
	var valid []resolvedEdit
	for i, e := range edits {
		re, fail := a.resolve(e, i, lines)
		if fail != nil {
			failures = append(failures, *fail)
			continue
		}
		valid = append(valid, re)
	}

	valid, overlapFails := rejectOverlaps(valid)
	failures = append(failures, overlapFails...)
	if len(valid) == 0 {
		return nil, failures, false, nil
	}

	// Bottom-to-top so earlier splices cannot shift later ones. Ties apply
	// in reverse directive order, which keeps same-point insertions in the
	// order the model wrote them.
	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].begin != valid[j].begin {
			return valid[i].begin > valid[j].begin
		}
		return valid[i].index > valid[j].index
	})

	for _, re := range valid {
		lines = splice(lines, re)
		applied = append(applied, re.edit)
	}

	a.captureOriginal(path, content)
	if err := a.files.Write(path, joinContent(lines)); err != nil {
		return nil, nil, false, fmt.Errorf("write %s: %w", path, err)
	}
	return applied, failures, true, nil
}

func (a *Applier) deleteFile(path string, del Edit, all []Edit) (applied []Edit, failures []ApplyFailure, changed bool, err error) {
	content, exists, err := a.readFile(path)
	if err != nil {
		return nil, nil, false, err
	}
	if !exists {
		return nil, []ApplyFailure{{
			File:    path,
			Reason:  ApplyFileNotFound,
			Message: "cannot delete: file does not exist",
			Edit:    del,
		}}, false, nil
	}
	a.captureOriginal(path, content)
	if err := a.files.Delete(path); err != nil {
		return nil, nil, false, fmt.Errorf("delete %s: %w", path, err)
	}
	return []Edit{del}, nil, true, nil
}

func (a *Applier) readFile(path string) (content string, exists bool, err error) {
	if !a.files.Exists(path) {
		return "", false, nil
	}
	content, err = a.files.Read(path)
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", path, err)
	}
	return content, true, nil
}

func (a *Applier) captureOriginal(path, content string) {
	if _, ok := a.originals[path]; !ok {
		a.originals[path] = content
	}
}

// creatable reports whether a batch may bring a new file into existence:
// only pure insertions qualify.
func creatable(edits []Edit) bool {
	for _, e := range edits {
		if !e.IsInsert() {
			return false
		}
	}
	return len(edits) > 0
}

// resolvedEdit is a directive whose addresses have been checked against the
// actual file and reduced to a concrete splice.
type resolvedEdit struct {
	edit  Edit
	index int // position in the incoming batch, for tie-breaking
	begin int // 1-based splice point
	end   int // inclusive; begin-1 for insertions
}

// resolve validates one directive's range and anchors against lines.
func (a *Applier) resolve(e Edit, index int, lines []string) (resolvedEdit, *ApplyFailure) {
	re := resolvedEdit{edit: e, index: index}
	n := len(lines)

	if e.IsInsert() {
		begin := e.Begin
		if begin >= EndOfFile {
			begin = n + 1
		}
		if begin < 1 || begin > n+1 {
			return re, &ApplyFailure{
				File:    e.File,
				Reason:  ApplyInvalidRange,
				Message: fmt.Sprintf("insert point %s is outside the file (%d lines)", addrString(e.Begin), n),
				Edit:    e,
			}
		}
		re.begin, re.end = begin, begin-1
	} else {
		begin, end := e.Begin, e.End
		if begin >= EndOfFile {
			begin = n
		}
		if end >= EndOfFile {
			end = n
		}
		if begin < 1 || end < begin || end > n {
			return re, &ApplyFailure{
				File:    e.File,
				Reason:  ApplyInvalidRange,
				Message: fmt.Sprintf("range %s,%s is outside the file (%d lines)", addrString(e.Begin), addrString(e.End), n),
				Edit:    e,
			}
		}
		re.begin, re.end = begin, end
	}

	shift, fail := a.checkAnchors(e, lines)
	if fail != nil {
		return re, fail
	}
	if shift != 0 && !e.IsInsert() {
		nb, ne := re.begin+shift, re.end+shift
		if nb >= 1 && ne <= n {
			re.begin, re.end = nb, ne
		}
	}
	return re, nil
}

// checkAnchors verifies every anchor of the directive. The returned shift is
// the off-by-one correction: when all anchors miss at their address but each
// matches the same neighboring line, the whole directive slides by one.
func (a *Applier) checkAnchors(e Edit, lines []string) (shift int, fail *ApplyFailure) {
	endAddressed := e.Begin >= EndOfFile || e.End >= EndOfFile
	shifts := make([]int, 0, len(e.Anchors))

	for _, an := range e.Anchors {
		s, ok := a.checkOneAnchor(an, lines, endAddressed)
		if !ok {
			return 0, &ApplyFailure{
				File:    e.File,
				Reason:  ApplyAnchorMismatch,
				Message: a.mismatchMessage(an, lines),
				Edit:    e,
			}
		}
		shifts = append(shifts, s)
	}

	// A correction only holds if every anchor agrees on it.
	if len(shifts) > 0 {
		shift = shifts[0]
		for _, s := range shifts[1:] {
			if s != shift {
				return 0, nil
			}
		}
	}
	return shift, nil
}

// checkOneAnchor verifies a single anchor, returning the address correction
// that made it match (0, -1, or +1).
func (a *Applier) checkOneAnchor(an Anchor, lines []string, endAddressed bool) (shift int, ok bool) {
	want := strings.TrimSpace(an.Content)
	if want == "" || an.Addr == 0 {
		// Empty anchors and the start-of-file sentinel accept anything.
		return 0, true
	}
	n := len(lines)

	lineAt := func(addr int) (string, bool) {
		if addr < 1 || addr > n {
			return "", false
		}
		return strings.TrimSpace(lines[addr-1]), true
	}

	addr := an.Addr
	if addr >= EndOfFile {
		addr = n
	} else if endAddressed && addr != n {
		// The command addressed $ but the anchor carries a counted line
		// number. Accept it when the count is nearly right and the content
		// is genuinely the last line.
		if abs(addr-n) <= a.tolerance {
			if got, _ := lineAt(n); got == want {
				return 0, true
			}
		}
		return 0, false
	}

	if got, in := lineAt(addr); in && got == want {
		return 0, true
	}

	// Off-by-one correction: accept a neighbor, but only an unambiguous one.
	prev, prevIn := lineAt(addr - 1)
	next, nextIn := lineAt(addr + 1)
	prevHit := prevIn && prev == want
	nextHit := nextIn && next == want
	if prevHit != nextHit {
		if prevHit {
			return -1, true
		}
		return +1, true
	}
	return 0, false
}

// mismatchMessage builds the diagnostic for a failed anchor, pointing at the
// nearest line that does carry the expected content.
func (a *Applier) mismatchMessage(an Anchor, lines []string) string {
	want := strings.TrimSpace(an.Content)
	addr := an.Addr
	if addr >= EndOfFile {
		addr = len(lines)
	}

	nearest, found := 0, false
	for i, line := range lines {
		if strings.TrimSpace(line) == want {
			ln := i + 1
			if !found || abs(ln-addr) < abs(nearest-addr) {
				nearest, found = ln, true
			}
		}
	}

	actual := "<out of range>"
	if addr >= 1 && addr <= len(lines) {
		actual = lines[addr-1]
	}
	msg := fmt.Sprintf("anchor @%s expected %q but line %d is %q", addrString(an.Addr), an.Content, addr, actual)
	if found {
		msg += fmt.Sprintf("; the expected content is at line %d", nearest)
	}
	return msg
}

// rejectOverlaps drops directives whose ranges collide within one batch.
// Insertions at the same point are fine; overlapping removals are not.
func rejectOverlaps(edits []resolvedEdit) (kept []resolvedEdit, failures []ApplyFailure) {
	for i, e := range edits {
		conflict := false
		for j, other := range edits {
			if i == j {
				continue
			}
			if rangesOverlap(e, other) {
				conflict = true
				break
			}
		}
		if conflict {
			failures = append(failures, ApplyFailure{
				File:    e.edit.File,
				Reason:  ApplyOverlap,
				Message: fmt.Sprintf("range %d,%d collides with another edit in this batch", e.begin, e.end),
				Edit:    e.edit,
			})
			continue
		}
		kept = append(kept, e)
	}
	return kept, failures
}

func rangesOverlap(a, b resolvedEdit) bool {
	// Pure insertions occupy no lines and never collide.
	if a.end < a.begin || b.end < b.begin {
		return false
	}
	return a.begin <= b.end && b.begin <= a.end
}

// splice replaces lines[begin..end] (1-based inclusive, empty for an
// insertion) with the directive body.
func splice(lines []string, re resolvedEdit) []string {
	out := make([]string, 0, len(lines)-(re.end-re.begin+1)+len(re.edit.Body))
	out = append(out, lines[:re.begin-1]...)
	out = append(out, re.edit.Body...)
	out = append(out, lines[re.end:]...)
	return out
}

// splitContent splits file content into lines, dropping the empty remainder
// after a trailing newline.
func splitContent(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// joinContent is the inverse: non-empty files always end with a newline.
func joinContent(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
