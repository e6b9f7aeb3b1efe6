package editloop

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/martinemde/redline/lineedit"
	"github.com/martinemde/redline/textgen"
)

// Loop is the orchestrator for one editing task.
type Loop struct {
	cfg      Config
	svc      textgen.Service
	ws       Workspace
	editable *EditableSet
	applier  *lineedit.Applier
	emitter  *EventEmitter
	taskID   string
}

// NewLoop creates a loop over the given model service and workspace.
// A nil config selects DefaultConfig.
func NewLoop(svc textgen.Service, ws Workspace, config *Config) *Loop {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}
	taskID := uuid.New().String()
	return &Loop{
		cfg:      cfg,
		svc:      svc,
		ws:       ws,
		editable: NewEditableSet(cfg.EditableFiles, cfg.ProtectedPatterns),
		applier:  lineedit.NewApplier(ws, cfg.AnchorTolerance),
		emitter:  NewEventEmitter(taskID, cfg.EventBufferSize),
		taskID:   taskID,
	}
}

// TaskID returns the run identifier stamped on every event.
func (l *Loop) TaskID() string { return l.taskID }

// Events returns the event channel for the host application.
func (l *Loop) Events() <-chan Event { return l.emitter.Events() }

// Outcome is the result of a completed run.
type Outcome struct {
	TaskID    string            `json:"task_id"`
	Stop      StopReason        `json:"stop"`
	Detail    string            `json:"detail,omitempty"`
	Changed   []string          `json:"changed,omitempty"`   // every file modified during the run
	Created   []string          `json:"created,omitempty"`   // subset of Changed that did not exist before
	Originals map[string]string `json:"originals,omitempty"` // pre-run content of every changed file
	Diffs     map[string]string `json:"-"`                   // unified diff per changed file
}

// Success reports whether the run ended with the verification passing.
func (o *Outcome) Success() bool { return o.Stop == StopSuccess }

// Run drives the loop until a stop condition fires. The returned Outcome is
// never nil; the error mirrors Outcome.Detail for failed runs so callers
// can use either.
func (l *Loop) Run(ctx context.Context, goal string) (*Outcome, error) {
	l.emitter.Emit(EventRunStart, map[string]interface{}{"goal": goal})

	conv := NewConversation(textgen.SystemMessage(systemPrompt))
	edits := EditState{}
	files, order := l.readContextFiles()
	prompt := initialPrompt(goal, files, order)

	for {
		if ctx.Err() != nil {
			return l.finish(fatal(StopInterrupted, ctx.Err().Error()))
		}

		conv = conv.WithMessage(textgen.UserMessage(prompt))
		l.emitter.Emit(EventRequest, map[string]interface{}{"messages": conv.Len()})

		reply, step := l.requestPhase(ctx, conv)
		if step.Kind == StepFatal {
			return l.finish(step)
		}

		step = l.parsePhase(reply, conv, edits)
		if next, p, done := l.advance(step); done {
			return l.finish(step)
		} else if p != "" {
			conv, edits, prompt = next.Conv, next.Edits, p
			continue
		} else {
			conv, edits = next.Conv, next.Edits
		}
		batch := step.Batch

		if len(batch) > 0 {
			step = l.applyPhase(ctx, goal, batch, conv, edits)
			if next, p, done := l.advance(step); done {
				return l.finish(step)
			} else if p != "" {
				conv, edits, prompt = next.Conv, next.Edits, p
				continue
			} else {
				conv, edits = next.Conv, next.Edits
			}
		}

		step = l.verifyPhase(ctx, conv, edits)
		if next, p, done := l.advance(step); done {
			return l.finish(step)
		} else if p != "" {
			conv, edits, prompt = next.Conv, next.Edits, p
			continue
		} else {
			// Verify never continues silently; it either stops or retries.
			conv, edits = next.Conv, next.Edits
		}
	}
}

// advance classifies a step for the run driver: (successor, retryPrompt,
// terminal).
func (l *Loop) advance(step Step) (Step, string, bool) {
	switch step.Kind {
	case StepFatal:
		return step, "", true
	case StepRetry:
		l.emitter.Emit(EventRetry, map[string]interface{}{"prompt_bytes": len(step.Prompt)})
		return step, step.Prompt, false
	default:
		return step, "", false
	}
}

// readContextFiles loads the files shown in the initial prompt.
func (l *Loop) readContextFiles() (map[string]string, []string) {
	paths := l.cfg.ContextFiles
	if len(paths) == 0 {
		paths = l.cfg.EditableFiles
	}
	files := make(map[string]string, len(paths))
	var order []string
	for _, p := range paths {
		content, err := l.ws.Read(p)
		if err != nil {
			l.emitter.Emit(EventWarning, map[string]interface{}{
				"message": fmt.Sprintf("context file %s: %v", p, err),
			})
			continue
		}
		files[p] = content
		order = append(order, p)
	}
	return files, order
}

// requestPhase sends the conversation and screens the reply.
func (l *Loop) requestPhase(ctx context.Context, conv ConversationState) (*textgen.Result, Step) {
	res, err := l.svc.Send(ctx, textgen.Request{Messages: conv.Messages()})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fatal(StopInterrupted, ctx.Err().Error())
		}
		return nil, fatal(StopLLMError, err.Error())
	}
	if strings.TrimSpace(res.Text) == "" {
		return nil, fatal(StopEmptyResponse, "model returned an empty reply")
	}
	l.emitter.Emit(EventReply, map[string]interface{}{
		"bytes":     len(res.Text),
		"truncated": res.Truncated,
	})
	return res, Step{Kind: StepContinue}
}

// parsePhase extracts directives from the reply and decides whether the
// iteration proceeds, retries, or the run stops.
func (l *Loop) parsePhase(reply *textgen.Result, conv ConversationState, edits EditState) Step {
	r := lineedit.Parse(reply.Text)
	conv = conv.WithMessage(textgen.AssistantMessage(reply.Text))
	truncated := reply.Truncated || r.Incomplete

	l.emitter.Emit(EventParsed, map[string]interface{}{
		"edits":      len(r.Edits),
		"failures":   len(r.Failures),
		"incomplete": r.Incomplete,
	})

	switch {
	case r.PureFailure():
		edits = edits.bumpParseFailures()
		if edits.parseFailures >= l.cfg.MaxParseRetries {
			return fatal(StopParseError, fmt.Sprintf("%d consecutive replies without usable directives; last failures: %s", edits.parseFailures, summarizeParseFailures(r.Failures)))
		}
		return retry(conv, edits, parseRetryPrompt(r.Failures))

	case len(r.Edits) == 0 && !truncated:
		// A prose-only reply. Directives still held from a truncated reply
		// must not be lost; apply them now. Otherwise go verify what exists.
		if pending := edits.Pending(); len(pending) > 0 {
			conv = conv.WithRedactedAssistants()
			step := contin(conv, edits.resetParseFailures().clearPending())
			step.Batch = pending
			return step
		}
		return contin(conv, edits.resetParseFailures())

	case truncated || len(r.Failures) > 0:
		// Partial parse: keep what arrived, ask the model to continue.
		edits = edits.resetParseFailures().withPending(r.Edits)
		var last *lineedit.Edit
		if n := len(r.Edits); n > 0 {
			e := r.Edits[n-1]
			last = &e
		}
		return retry(conv, edits, continuePrompt(last))

	default:
		// Clean parse. Earlier directive bodies in the history are spent;
		// elide them before the batch grows the conversation further.
		conv = conv.WithRedactedAssistants()
		batch := append(edits.Pending(), r.Edits...)
		step := contin(conv, edits.resetParseFailures().clearPending())
		step.Batch = batch
		return step
	}
}

// applyPhase runs one batch through the applier, falling back to whole-file
// replacement when incremental editing has stalled completely.
func (l *Loop) applyPhase(ctx context.Context, goal string, batch []lineedit.Edit, conv ConversationState, edits EditState) Step {
	// The read-only gate comes before any write so a bad batch cannot
	// half-apply. Every offender is named, not just the first.
	var readOnly []string
	seen := make(map[string]bool)
	for _, e := range batch {
		if !l.editable.IsEditable(e.File) && !seen[e.File] {
			seen[e.File] = true
			readOnly = append(readOnly, e.File)
		}
	}
	if len(readOnly) > 0 {
		return fatal(StopReadOnlyEdit, fmt.Sprintf("directives target read-only files: %s", strings.Join(readOnly, ", ")))
	}

	// Pre-batch content feeds the reverse-edit message and diffs.
	pre := make(map[string]string)
	for _, e := range batch {
		if _, ok := pre[e.File]; ok {
			continue
		}
		if !l.ws.Exists(e.File) {
			pre[e.File] = ""
			continue
		}
		content, err := l.ws.Read(e.File)
		if err != nil {
			return fatal(StopIOError, err.Error())
		}
		pre[e.File] = content
	}

	res, err := l.applier.Apply(batch)
	if err != nil {
		return fatal(StopIOError, err.Error())
	}

	if len(res.Applied) > 0 {
		edits = edits.resetApplyFailures().withChanged(res.Changed)

		var reverse []lineedit.Edit
		for _, f := range res.Changed {
			l.editable.Add(f)
			after := ""
			if l.ws.Exists(f) {
				after, _ = l.ws.Read(f)
			}
			reverse = append(reverse, lineedit.ReverseEdits(f, pre[f], after)...)
			l.emitter.Emit(EventEditsApplied, map[string]interface{}{
				"file": f,
				"diff": lineedit.Unified(f, pre[f], after),
			})
		}
		conv = conv.WithMessage(textgen.AssistantMessage(appliedMessage(reverse)))

		if len(res.Failures) > 0 {
			return retry(conv, edits, applyRetryPrompt(len(res.Applied), res.Failures))
		}
		return contin(conv, edits)
	}

	// Nothing applied.
	l.emitter.Emit(EventApplyFailed, map[string]interface{}{
		"failures": len(res.Failures),
	})
	edits = edits.bumpApplyFailures()
	if edits.applyFailures < l.cfg.MaxApplyRetries {
		return retry(conv, edits, applyRetryPrompt(0, res.Failures))
	}

	if edits.fallbackUsed {
		return fatal(StopApplyError, "incremental edits and whole-file replacement both failed")
	}

	files := failedFiles(res.Failures)
	l.emitter.Emit(EventFallbackStart, map[string]interface{}{"files": files})
	succeeded, failed := l.replaceFiles(ctx, goal, files)
	if ctx.Err() != nil {
		return fatal(StopInterrupted, ctx.Err().Error())
	}
	edits = edits.withFallbackUsed().resetApplyFailures().withChanged(succeeded)
	for _, f := range succeeded {
		l.editable.Add(f)
	}
	if len(failed) > 0 {
		return fatal(StopApplyError, fmt.Sprintf("full-file replacement: %d/%d files succeeded", len(succeeded), len(files)))
	}
	conv = conv.WithMessage(textgen.AssistantMessage(fmt.Sprintf("Regenerated %d file(s) in full: %s", len(succeeded), strings.Join(succeeded, ", "))))
	return contin(conv, edits)
}

// verifyPhase runs the configured command, skipping it when nothing has
// changed since the last successful-or-failed run.
func (l *Loop) verifyPhase(ctx context.Context, conv ConversationState, edits EditState) Step {
	if l.cfg.VerifyCommand == "" {
		return fatal(StopSuccess, "no verification configured")
	}
	if len(edits.ChangedSinceVerify()) == 0 {
		// A no-op iteration never runs the command. With a failing run on
		// record this means the model declined to keep chasing the errors;
		// otherwise there is nothing left to check.
		if edits.lastVerifyFailed {
			return fatal(StopBuildError, "verification still failing and the model declined to continue")
		}
		return fatal(StopSuccess, "no changes to verify")
	}

	l.emitter.Emit(EventVerifyStart, map[string]interface{}{"command": l.cfg.VerifyCommand})
	runCtx := ctx
	if l.cfg.VerifyTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, l.cfg.VerifyTimeout)
		defer cancel()
	}

	err := RunShell(runCtx, l.cfg.VerifyCommand, l.ws.Root(), func(line string) {
		l.emitter.Emit(EventVerifyOutput, map[string]interface{}{"line": line})
	})
	edits = edits.clearChanged()

	if err == nil {
		l.emitter.Emit(EventVerifyResult, map[string]interface{}{"ok": true})
		return fatal(StopSuccess, "")
	}
	l.emitter.Emit(EventVerifyResult, map[string]interface{}{"ok": false, "error": err.Error()})

	if ctx.Err() != nil {
		return fatal(StopInterrupted, ctx.Err().Error())
	}

	output := err.Error()
	var sub *SubprocessError
	switch {
	case errors.As(err, &sub):
		output = sub.Output
	case errors.Is(err, context.DeadlineExceeded):
		output = "verification timed out"
	default:
		return fatal(StopIOError, err.Error())
	}

	edits = edits.bumpVerifyFailures().withVerifyFailed()
	if edits.verifyFailures >= l.cfg.MaxVerifyRetries {
		return fatal(StopBuildError, fmt.Sprintf("%d consecutive verification failures", edits.verifyFailures))
	}
	return retry(conv, edits, verifyRetryPrompt(l.cfg.VerifyCommand, output))
}

// finish assembles the Outcome and closes the event stream.
func (l *Loop) finish(step Step) (*Outcome, error) {
	originals := l.applier.Originals()
	out := &Outcome{
		TaskID:    l.taskID,
		Stop:      step.Stop,
		Detail:    step.Detail,
		Originals: originals,
		Diffs:     make(map[string]string),
	}
	for path, orig := range originals {
		out.Changed = append(out.Changed, path)
		if orig == "" {
			out.Created = append(out.Created, path)
		}
		final := ""
		if l.ws.Exists(path) {
			final, _ = l.ws.Read(path)
		}
		out.Diffs[path] = lineedit.Unified(path, orig, final)
	}

	l.emitter.Emit(EventRunEnd, map[string]interface{}{
		"stop":    string(step.Stop),
		"detail":  step.Detail,
		"changed": len(out.Changed),
	})
	l.emitter.Close()

	if out.Success() {
		return out, nil
	}
	return out, fmt.Errorf("run stopped: %s: %s", out.Stop, out.Detail)
}

func summarizeParseFailures(failures []lineedit.ParseFailure) string {
	parts := make([]string, 0, len(failures))
	for _, f := range failures {
		parts = append(parts, string(f.Reason))
	}
	return strings.Join(parts, ", ")
}

func failedFiles(failures []lineedit.ApplyFailure) []string {
	var files []string
	seen := make(map[string]bool)
	for _, f := range failures {
		if !seen[f.File] {
			seen[f.File] = true
			files = append(files, f.File)
		}
	}
	return files
}
