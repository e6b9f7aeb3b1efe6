package editloop

import (
	"time"

	"github.com/martinemde/redline/lineedit"
)

// Config holds the knobs of one edit loop run.
type Config struct {
	// MaxParseRetries is how many consecutive replies may parse to nothing
	// usable before the loop stops with StopParseError.
	MaxParseRetries int `json:"max_parse_retries"`

	// MaxApplyRetries is how many consecutive apply batches may succeed for
	// zero directives before the loop falls back to whole-file replacement.
	MaxApplyRetries int `json:"max_apply_retries"`

	// MaxVerifyRetries is how many consecutive verification failures are
	// tolerated before the loop stops with StopBuildError.
	MaxVerifyRetries int `json:"max_verify_retries"`

	// AnchorTolerance is how far a counted anchor address may drift from
	// the real last line on $-addressed edits. Negative selects the
	// lineedit default.
	AnchorTolerance int `json:"anchor_tolerance"`

	// VerifyCommand runs in a shell at the workspace root after each
	// successful apply. Empty means verification always passes.
	VerifyCommand string `json:"verify_command,omitempty"`

	// VerifyTimeout bounds one verification run.
	VerifyTimeout time.Duration `json:"verify_timeout"`

	// EditableFiles is the set of workspace-relative paths the model may
	// modify. Directives against anything else stop the run. Empty means
	// every workspace file is editable.
	EditableFiles []string `json:"editable_files,omitempty"`

	// ProtectedPatterns are gitignore-style patterns that stay read-only
	// even when EditableFiles is empty.
	ProtectedPatterns []string `json:"protected_patterns,omitempty"`

	// ContextFiles are included, numbered, in the initial prompt. Empty
	// defaults to EditableFiles.
	ContextFiles []string `json:"context_files,omitempty"`

	// EventBufferSize is the emitter's channel capacity.
	EventBufferSize int `json:"event_buffer_size"`
}

// DefaultConfig returns the default loop configuration.
func DefaultConfig() Config {
	return Config{
		MaxParseRetries:  3,
		MaxApplyRetries:  3,
		MaxVerifyRetries: 3,
		AnchorTolerance:  lineedit.DefaultAnchorTolerance,
		VerifyTimeout:    10 * time.Minute,
		EventBufferSize:  256,
	}
}
