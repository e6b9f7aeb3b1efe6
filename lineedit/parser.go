package lineedit

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Fence keywords. They are deliberately unusual tokens so that ordinary code
// in the model's output can never be mistaken for a directive.
const (
	FenceOpen   = "RL_EDIT"
	FenceClose  = "RL_EDIT_END"
	FenceDelete = "RL_DELETE"
)

var (
	commandRe = regexp.MustCompile(`^(\d+|\$)(?:\s*,\s*(\d+|\$))?\s+([cad])$`)
	anchorRe  = regexp.MustCompile(`^@(\d+|\$)\|(?: ?(.*))?$`)
)

// Parse extracts edit directives from a model reply. It never fails: text it
// cannot interpret becomes ParseFailures, and free-form prose outside fences
// is ignored entirely.
func Parse(text string) Result {
	p := &parser{lines: splitLines(text)}
	p.run()
	return Result{Edits: p.edits, Failures: p.failures, Incomplete: p.incomplete}
}

type parser struct {
	lines      []string
	pos        int
	edits      []Edit
	failures   []ParseFailure
	incomplete bool
}

func (p *parser) eof() bool      { return p.pos >= len(p.lines) }
func (p *parser) peek() string   { return p.lines[p.pos] }
func (p *parser) next() string   { line := p.lines[p.pos]; p.pos++; return line }
func (p *parser) fail(f ParseFailure) { p.failures = append(p.failures, f) }

func (p *parser) run() {
	for !p.eof() {
		line := strings.TrimSpace(p.next())
		switch {
		case line == FenceOpen || strings.HasPrefix(line, FenceOpen+" "):
			path := strings.TrimSpace(strings.TrimPrefix(line, FenceOpen))
			if path == "" {
				p.fail(ParseFailure{
					Reason:  ReasonMissingFilename,
					Snippet: line,
					Message: "edit block is missing a file path",
				})
				p.skipBlock()
				continue
			}
			p.parseBlock(path)
		case line == FenceDelete || strings.HasPrefix(line, FenceDelete+" "):
			path := strings.TrimSpace(strings.TrimPrefix(line, FenceDelete))
			if path == "" {
				p.fail(ParseFailure{
					Reason:  ReasonMissingFilename,
					Snippet: line,
					Message: "delete directive is missing a file path",
				})
				continue
			}
			p.edits = append(p.edits, Edit{Kind: DeleteFile, File: path})
		}
	}
}

// skipBlock consumes lines up to and including the close fence after an
// unusable block header. A new open fence ends the skip as well, since the
// model frequently forgets the closing keyword between blocks.
func (p *parser) skipBlock() {
	for !p.eof() {
		line := strings.TrimSpace(p.peek())
		if line == FenceClose {
			p.pos++
			return
		}
		if line == FenceOpen || strings.HasPrefix(line, FenceOpen+" ") {
			return
		}
		p.pos++
	}
}

// parseBlock reads commands for one file until the fence closes. The close
// is implicit at end of input or at the next open fence.
func (p *parser) parseBlock(path string) {
	for {
		if p.eof() {
			// Implicit close at end of input is fine between directives.
			return
		}
		line := strings.TrimSpace(p.peek())
		if line == FenceClose {
			p.pos++
			return
		}
		if line == FenceOpen || strings.HasPrefix(line, FenceOpen+" ") {
			return
		}
		p.pos++
		if line == "" {
			continue
		}
		p.parseCommand(path, line)
	}
}

// parseCommand handles one `<addr>[,<addr>] <op>` command with its anchors
// and body. A bad directive is recorded as a failure; parsing resumes at the
// next command so one mistake does not void the whole block.
func (p *parser) parseCommand(path, cmdLine string) {
	m := commandRe.FindStringSubmatch(cmdLine)
	if m == nil {
		p.fail(ParseFailure{
			Reason:  ReasonBadCommand,
			File:    path,
			Snippet: cmdLine,
			Message: fmt.Sprintf("not a recognizable command: %q", cmdLine),
		})
		return
	}

	op := Op(m[3][0])
	begin, end, ok := normalizeRange(m[1], m[2], op)
	if !ok {
		p.fail(ParseFailure{
			Reason:  ReasonBadCommand,
			File:    path,
			Snippet: cmdLine,
			Message: fmt.Sprintf("invalid address range for %c: %q", op, cmdLine),
		})
		return
	}

	want := 2
	if op == OpAppend || m[2] == "" || m[1] == m[2] {
		want = 1
	}

	anchors, voided, ok := p.collectAnchors(path, cmdLine, want)
	if !ok {
		// Anchor collection already recorded the failure. Consume the body
		// so the scanner resyncs on the next command.
		if op != OpDelete {
			p.consumeBody(path)
		}
		return
	}

	var body []string
	if op != OpDelete {
		var complete bool
		body, complete = p.consumeBody(path)
		if !complete {
			// The reply was cut off mid-body. Drop the half directive; the
			// continue prompt will have the model resend it whole.
			p.incomplete = true
			return
		}
	}

	if voided {
		return
	}

	p.edits = append(p.edits, Edit{
		Kind:    EditFile,
		File:    path,
		Op:      op,
		Begin:   begin,
		End:     end,
		Anchors: anchors,
		Body:    body,
	})
}

// collectAnchors reads the `@addr| content` lines following a command. It
// returns ok=false when the directive must be dropped, and voided=true for
// the too-many-anchors case where the body still has to be consumed.
func (p *parser) collectAnchors(path, cmdLine string, want int) (anchors []Anchor, voided, ok bool) {
	for !p.eof() && strings.HasPrefix(strings.TrimSpace(p.peek()), "@") {
		raw := strings.TrimSpace(p.next())
		m := anchorRe.FindStringSubmatch(raw)
		if m == nil {
			p.fail(ParseFailure{
				Reason:  ReasonBadAnchor,
				File:    path,
				Snippet: raw,
				Message: fmt.Sprintf("malformed anchor line: %q", raw),
			})
			return nil, false, false
		}
		anchors = append(anchors, Anchor{Addr: parseAddr(m[1]), Content: m[2]})
	}

	if len(anchors) < want {
		if p.eof() {
			p.incomplete = true
			p.fail(ParseFailure{
				Reason:  ReasonMissingEndFence,
				File:    path,
				Snippet: cmdLine,
				Message: "input ended before the directive was complete",
			})
			return nil, false, false
		}
		p.fail(ParseFailure{
			Reason:  ReasonMissingAnchor,
			File:    path,
			Snippet: cmdLine,
			Message: fmt.Sprintf("expected %d anchor line(s), found %d", want, len(anchors)),
		})
		return nil, false, false
	}
	if len(anchors) > want {
		p.fail(ParseFailure{
			Reason:  ReasonTooManyAnchors,
			File:    path,
			Snippet: cmdLine,
			Message: fmt.Sprintf("expected %d anchor line(s), found %d", want, len(anchors)),
		})
		return nil, true, true
	}
	return anchors, false, true
}

// consumeBody reads body lines until a lone ".". The terminator is implicit
// at a fence boundary; end of input instead means the reply was cut off
// mid-directive.
func (p *parser) consumeBody(path string) (body []string, complete bool) {
	body = []string{}
	for !p.eof() {
		line := p.peek()
		trimmed := strings.TrimSpace(line)
		if trimmed == "." {
			p.pos++
			return body, true
		}
		if trimmed == FenceClose || trimmed == FenceOpen || strings.HasPrefix(trimmed, FenceOpen+" ") {
			return body, true
		}
		p.pos++
		body = append(body, unescapeBodyLine(line))
	}
	return body, false
}

// unescapeBodyLine strips one leading backslash, the escape for body lines
// that would otherwise read as a terminator or anchor.
func unescapeBodyLine(line string) string {
	if strings.HasPrefix(line, `\`) {
		return line[1:]
	}
	return line
}

// parseAddr converts an address token. The token has already matched the
// grammar, so errors cannot occur.
func parseAddr(tok string) int {
	if tok == "$" {
		return EndOfFile
	}
	n, _ := strconv.Atoi(tok)
	return n
}

// normalizeRange turns command addresses into the splice encoding: an
// inclusive range for change and delete, End < Begin for an insertion.
func normalizeRange(first, second string, op Op) (begin, end int, ok bool) {
	a := parseAddr(first)
	switch op {
	case OpAppend:
		// Append takes a single address; 0 means insert at start of file.
		if second != "" {
			return 0, 0, false
		}
		if a >= EndOfFile {
			return EndOfFile, EndOfFile - 1, true
		}
		return a + 1, a, true
	case OpChange, OpDelete:
		if a == 0 {
			return 0, 0, false
		}
		b := a
		if second != "" {
			b = parseAddr(second)
			if b == 0 {
				return 0, 0, false
			}
		}
		if b < a {
			return 0, 0, false
		}
		return a, b, true
	}
	return 0, 0, false
}

// splitLines splits on newline without dropping a trailing newline's empty
// remainder confusing the scan.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
