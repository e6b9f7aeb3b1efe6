package lineedit

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// lineDiffs computes a line-level diff between two file contents.
func lineDiffs(before, after string) []diffmatchpatch.Diff {
	dmp := diffmatchpatch.New()
	c1, c2, arr := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(c1, c2, false)
	return dmp.DiffCharsToLines(diffs, arr)
}

// ReverseEdits derives the directives that would turn the current content of
// path back into its previous content. After applying a batch, the loop
// renders these into the conversation so the model sees the effect of its
// own edits in the same notation it writes them.
func ReverseEdits(path, before, after string) []Edit {
	diffs := lineDiffs(before, after)
	afterLines := splitContent(after)

	anchorAt := func(addr int) Anchor {
		if addr < 1 || addr > len(afterLines) {
			return Anchor{Addr: 0}
		}
		return Anchor{Addr: addr, Content: afterLines[addr-1]}
	}
	rangeAnchors := func(begin, end int) []Anchor {
		if begin == end {
			return []Anchor{anchorAt(begin)}
		}
		return []Anchor{anchorAt(begin), anchorAt(end)}
	}

	var edits []Edit
	pos := 1 // current line in the after content
	for i := 0; i < len(diffs); i++ {
		d := diffs[i]
		n := len(splitContent(d.Text))
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			pos += n
		case diffmatchpatch.DiffDelete:
			removed := splitContent(d.Text)
			// A delete followed by an insert is a replacement; reversing it
			// is a single change command over the inserted range.
			if i+1 < len(diffs) && diffs[i+1].Type == diffmatchpatch.DiffInsert {
				ins := len(splitContent(diffs[i+1].Text))
				edits = append(edits, Edit{
					Kind:    EditFile,
					File:    path,
					Op:      OpChange,
					Begin:   pos,
					End:     pos + ins - 1,
					Anchors: rangeAnchors(pos, pos+ins-1),
					Body:    removed,
				})
				pos += ins
				i++
				continue
			}
			// Lines that only existed before: reversing restores them.
			edits = append(edits, Edit{
				Kind:    EditFile,
				File:    path,
				Op:      OpAppend,
				Begin:   pos,
				End:     pos - 1,
				Anchors: []Anchor{anchorAt(pos - 1)},
				Body:    removed,
			})
		case diffmatchpatch.DiffInsert:
			// Lines that only exist now: reversing deletes them.
			edits = append(edits, Edit{
				Kind:    EditFile,
				File:    path,
				Op:      OpDelete,
				Begin:   pos,
				End:     pos + n - 1,
				Anchors: rangeAnchors(pos, pos+n-1),
			})
			pos += n
		}
	}
	return edits
}

// diffLine is one line of a rendered diff body.
type diffLine struct {
	mark byte // ' ', '-', '+'
	text string
}

// Unified renders a unified diff between two versions of a file, three
// context lines per hunk.
func Unified(path, before, after string) string {
	diffs := lineDiffs(before, after)

	var body []diffLine
	for _, d := range diffs {
		mark := byte(' ')
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			mark = '-'
		case diffmatchpatch.DiffInsert:
			mark = '+'
		}
		for _, line := range splitContent(d.Text) {
			body = append(body, diffLine{mark: mark, text: line})
		}
	}

	hunks := groupHunks(body, 3)
	if len(hunks) == 0 {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- a/%s\n+++ b/%s\n", path, path)
	for _, h := range hunks {
		fmt.Fprintf(&sb, "@@ -%d,%d +%d,%d @@\n", h.oldStart, h.oldCount, h.newStart, h.newCount)
		for _, l := range h.lines {
			sb.WriteByte(l.mark)
			sb.WriteString(l.text)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

type hunk struct {
	oldStart, oldCount int
	newStart, newCount int
	lines              []diffLine
}

// groupHunks slices a full-file diff body into hunks, keeping at most
// context unchanged lines on either side of each change run.
func groupHunks(body []diffLine, context int) []hunk {
	var hunks []hunk
	oldLine, newLine := 1, 1
	var cur *hunk
	pendingEqual := []diffLine{}

	closeHunk := func() {
		if cur == nil {
			return
		}
		trail := pendingEqual
		if len(trail) > context {
			trail = trail[:context]
		}
		for _, l := range trail {
			cur.lines = append(cur.lines, l)
			cur.oldCount++
			cur.newCount++
		}
		hunks = append(hunks, *cur)
		cur = nil
	}

	for _, l := range body {
		if l.mark == ' ' {
			pendingEqual = append(pendingEqual, l)
			oldLine++
			newLine++
			continue
		}
		if cur != nil && len(pendingEqual) > 2*context {
			closeHunk()
		}
		if cur == nil {
			lead := pendingEqual
			if len(lead) > context {
				lead = lead[len(lead)-context:]
			}
			cur = &hunk{
				oldStart: oldLine - len(lead),
				newStart: newLine - len(lead),
			}
			for _, cl := range lead {
				cur.lines = append(cur.lines, cl)
				cur.oldCount++
				cur.newCount++
			}
		} else {
			for _, cl := range pendingEqual {
				cur.lines = append(cur.lines, cl)
				cur.oldCount++
				cur.newCount++
			}
		}
		pendingEqual = nil
		cur.lines = append(cur.lines, l)
		if l.mark == '-' {
			cur.oldCount++
			oldLine++
		} else {
			cur.newCount++
			newLine++
		}
	}
	closeHunk()
	return hunks
}
