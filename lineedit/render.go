package lineedit

import (
	"fmt"
	"strings"
)

// Render reconstructs the directive text for a single edit, fences included.
// The loop uses this to echo the last complete directive when asking the
// model to continue a truncated reply, and to show the model reverse edits
// for what it just changed.
func Render(e Edit) string {
	return RenderBlock(e.File, []Edit{e})
}

// RenderBlock renders several edits to the same file as one fenced block.
// Delete directives render on their own regardless of grouping.
func RenderBlock(file string, edits []Edit) string {
	var sb strings.Builder
	open := false
	for _, e := range edits {
		if e.Kind == DeleteFile {
			if open {
				sb.WriteString(FenceClose + "\n")
				open = false
			}
			fmt.Fprintf(&sb, "%s %s\n", FenceDelete, e.File)
			continue
		}
		if !open {
			fmt.Fprintf(&sb, "%s %s\n", FenceOpen, file)
			open = true
		}
		renderCommand(&sb, e)
	}
	if open {
		sb.WriteString(FenceClose + "\n")
	}
	return sb.String()
}

func renderCommand(sb *strings.Builder, e Edit) {
	switch {
	case e.IsInsert():
		after := e.Begin - 1
		if e.Begin >= EndOfFile {
			fmt.Fprintf(sb, "$ a\n")
		} else {
			fmt.Fprintf(sb, "%d a\n", after)
		}
	case e.Begin == e.End:
		fmt.Fprintf(sb, "%s %c\n", addrString(e.Begin), e.Op)
	default:
		fmt.Fprintf(sb, "%s,%s %c\n", addrString(e.Begin), addrString(e.End), e.Op)
	}

	for _, an := range e.Anchors {
		fmt.Fprintf(sb, "@%s| %s\n", addrString(an.Addr), an.Content)
	}

	if e.Op == OpDelete {
		return
	}
	for _, line := range e.Body {
		sb.WriteString(escapeBodyLine(line))
		sb.WriteByte('\n')
	}
	sb.WriteString(".\n")
}

// escapeBodyLine protects body lines that would otherwise parse as a
// terminator, anchor, or escape.
func escapeBodyLine(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "." || strings.HasPrefix(line, "@") || strings.HasPrefix(line, `\`) {
		return `\` + line
	}
	return line
}

// Redact replaces the body lines of every directive block in text with an
// elision marker, leaving the fences and commands in place. Conversation
// history is redacted this way once edits have been applied, since the
// applied content no longer earns its context window space.
func Redact(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	inFence := false
	elided := 0

	flush := func() {
		if elided > 0 {
			out = append(out, fmt.Sprintf("[%d lines elided]", elided))
			elided = 0
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == FenceOpen || strings.HasPrefix(trimmed, FenceOpen+" "):
			inFence = true
			out = append(out, line)
		case inFence && trimmed == FenceClose:
			flush()
			inFence = false
			out = append(out, line)
		case inFence:
			elided++
		default:
			out = append(out, line)
		}
	}
	flush()
	return strings.Join(out, "\n")
}
