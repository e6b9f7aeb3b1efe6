// Package lineedit implements the line-oriented edit directive format that
// redline asks language models to emit, and the machinery to apply those
// directives to files.
//
// # Directive format
//
// Edits arrive embedded in free-form model output as fenced blocks:
//
//	RL_EDIT src/main.go
//	10,12 c
//	@10| func run() {
//	@12| }
//	func run() error {
//		return nil
//	}
//	.
//	RL_EDIT_END
//
// A block names one file and carries one or more commands. Each command is an
// address range plus an operation: c replaces the range, a appends after the
// address, d deletes the range. Addresses are 1-based line numbers, 0 (start
// of file, append only), or $ (last line). Every boundary address carries an
// anchor line (@addr| content) quoting the expected file content so stale
// line numbers are caught before anything is spliced. Bodies end at a lone
// "." line; a leading backslash escapes body lines that would otherwise be
// significant. RL_DELETE <path> on its own line removes a file.
//
// # Pipeline
//
// Parse extracts directives best-effort: it never returns an error, only a
// Result holding the edits it understood, structured failures for what it
// did not, and a flag for input that ends mid-directive (truncated model
// output). Applier validates ranges and anchors against the file and splices
// accepted edits bottom-to-top, capturing each file's original content before
// its first modification. Render regenerates directive text from an Edit,
// and ReverseEdits derives the directives that would undo an applied change.
package lineedit
