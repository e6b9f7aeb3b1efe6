package editloop

import (
	"fmt"
	"strings"

	"github.com/martinemde/redline/lineedit"
)

// systemPrompt teaches the model the directive format. It is sent once at
// the start of every run.
const systemPrompt = `You are an automated code-editing assistant. You modify files by emitting
edit directives in the exact format below; nothing else you write changes
any file.

To edit a file, emit a fenced block:

RL_EDIT <path>
<address>[,<address>] <op>
@<address>| <expected content of that line>
<replacement lines>
.
RL_EDIT_END

Operations:
  c  replace the addressed line range with the body
  a  append the body after the addressed line (0 a inserts at the start)
  d  delete the addressed line range (no body, no "." terminator)

Addresses are 1-based line numbers from the numbered listings you are shown,
or $ for the last line. Every boundary address needs exactly one anchor line
(@address| content) quoting the current content of that line; ranges like
10,12 need one anchor for each end. The body ends with a line containing
only "."; start a body line with a backslash if it would otherwise read as
"." or an anchor.

To delete a whole file, emit on its own line:

RL_DELETE <path>

Keep each block small and anchored on the lines you were shown. Multiple
commands may share one RL_EDIT block for the same file; use separate blocks
for separate files. Only edit files you were told are editable.`

// initialPrompt builds the first user message: the goal plus numbered
// listings of the context files.
func initialPrompt(goal string, files map[string]string, order []string) string {
	var sb strings.Builder
	sb.WriteString("Goal:\n")
	sb.WriteString(goal)
	sb.WriteString("\n")
	if len(order) > 0 {
		sb.WriteString("\nWorkspace files (editable, with line numbers):\n")
		for _, path := range order {
			fmt.Fprintf(&sb, "\n<file path=%q>\n%s</file>\n", path, NumberLines(files[path]))
		}
	}
	sb.WriteString("\nEmit the edit directives that accomplish the goal.")
	return sb.String()
}

// NumberLines renders content with 1-based line numbers, the form the
// model's addresses and anchors must refer to.
func NumberLines(content string) string {
	var sb strings.Builder
	lines := strings.Split(content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		fmt.Fprintf(&sb, "%d | %s\n", i+1, line)
	}
	return sb.String()
}

// parseRetryPrompt quotes parse failures back to the model.
func parseRetryPrompt(failures []lineedit.ParseFailure) string {
	var sb strings.Builder
	sb.WriteString("Your reply contained no usable edit directives. Problems found:\n")
	for _, f := range failures {
		fmt.Fprintf(&sb, "- %s\n", f.String())
		if f.Snippet != "" {
			fmt.Fprintf(&sb, "  near: %s\n", f.Snippet)
		}
	}
	sb.WriteString("\nResend the edits in the exact directive format.")
	return sb.String()
}

// continuePrompt asks the model to resume a truncated reply, echoing the
// last directive that did arrive intact so it knows where it left off.
func continuePrompt(lastComplete *lineedit.Edit) string {
	var sb strings.Builder
	sb.WriteString("Your reply was cut off mid-directive. The edits before the cutoff were kept.\n")
	if lastComplete != nil {
		sb.WriteString("The last complete directive received was:\n\n")
		sb.WriteString(lineedit.Render(*lastComplete))
		sb.WriteString("\n")
	}
	sb.WriteString("Continue from after that point. Do not repeat directives already sent.")
	return sb.String()
}

// applyRetryPrompt quotes apply failures so the model can re-anchor, noting
// how much of the batch did land so it does not resend those.
func applyRetryPrompt(succeeded int, failures []lineedit.ApplyFailure) string {
	var sb strings.Builder
	if succeeded > 0 {
		fmt.Fprintf(&sb, "%d edit(s) applied. The rest could not be:\n", succeeded)
	} else {
		sb.WriteString("None of the edits could be applied:\n")
	}
	for _, f := range failures {
		fmt.Fprintf(&sb, "- %s\n", f.String())
	}
	sb.WriteString("\nLine numbers may have shifted. Re-read the reported positions and resend corrected directives for the failed edits only.")
	return sb.String()
}

// appliedMessage is the assistant-side record of a successful batch: the
// reverse directives that would undo it. Seeing its own effect in the same
// notation keeps the model's line numbers honest.
func appliedMessage(reverse []lineedit.Edit) string {
	var sb strings.Builder
	sb.WriteString("Applied. To revert these changes one would run:\n\n")
	byFile := map[string][]lineedit.Edit{}
	var order []string
	for _, e := range reverse {
		if _, ok := byFile[e.File]; !ok {
			order = append(order, e.File)
		}
		byFile[e.File] = append(byFile[e.File], e)
	}
	for _, f := range order {
		sb.WriteString(lineedit.RenderBlock(f, byFile[f]))
	}
	return sb.String()
}

// verifyRetryPrompt embeds the failing build output. The escape hatch in
// the last sentence matters: without it models keep thrashing on builds
// they cannot fix.
func verifyRetryPrompt(command, output string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "The verification command failed:\n\n  %s\n\nOutput:\n%s\n\n", command, output)
	sb.WriteString("Fix the errors with more edit directives. If the errors are unrelated to your changes or look non-convergent, you may decline by replying with no directives and a short explanation.")
	return sb.String()
}

// replacePrompt asks for a complete replacement of one file, used by the
// whole-file fallback when incremental edits keep missing.
func replacePrompt(path, goal, content string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Incremental edits to %s are not applying. Reply with the complete new content of that file, accomplishing this goal:\n\n%s\n\n", path, goal)
	fmt.Fprintf(&sb, "Current content of %s:\n\n```\n%s```\n\n", path, content)
	sb.WriteString("Reply with exactly one fenced code block containing the full file, and nothing else. An empty block means an empty file.")
	return sb.String()
}
