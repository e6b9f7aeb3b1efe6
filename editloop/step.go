package editloop

import "github.com/martinemde/redline/lineedit"

// StopReason is the terminal classification of a run.
type StopReason string

const (
	StopSuccess       StopReason = "SUCCESS"
	StopParseError    StopReason = "PARSE_ERROR"
	StopApplyError    StopReason = "APPLY_ERROR"
	StopBuildError    StopReason = "BUILD_ERROR"
	StopReadOnlyEdit  StopReason = "READ_ONLY_EDIT"
	StopIOError       StopReason = "IO_ERROR"
	StopLLMError      StopReason = "LLM_ERROR"
	StopEmptyResponse StopReason = "EMPTY_RESPONSE"
	StopInterrupted   StopReason = "INTERRUPTED"
)

// StepKind discriminates the Step union.
type StepKind string

const (
	// StepContinue advances to the next phase with the new state.
	StepContinue StepKind = "continue"
	// StepRetry restarts the iteration with a corrective prompt.
	StepRetry StepKind = "retry"
	// StepFatal ends the run with a stop reason.
	StepFatal StepKind = "fatal"
)

// Step is the outcome of one phase. Kind selects which fields are
// meaningful: Continue and Retry carry the successor states, Retry adds the
// prompt, Fatal carries the stop reason and detail. The parse phase hands
// the batch of directives to apply through Batch.
type Step struct {
	Kind   StepKind
	Conv   ConversationState
	Edits  EditState
	Batch  []lineedit.Edit
	Prompt string
	Stop   StopReason
	Detail string
}

func contin(conv ConversationState, edits EditState) Step {
	return Step{Kind: StepContinue, Conv: conv, Edits: edits}
}

func retry(conv ConversationState, edits EditState, prompt string) Step {
	return Step{Kind: StepRetry, Conv: conv, Edits: edits, Prompt: prompt}
}

func fatal(stop StopReason, detail string) Step {
	return Step{Kind: StepFatal, Stop: stop, Detail: detail}
}
