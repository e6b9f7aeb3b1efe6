// Package editloop drives a language model through an iterative
// code-modification loop: send the goal and workspace context, parse the
// reply into line-edit directives, apply them, run a verification command,
// and feed failures back until the goal converges or a stop condition fires.
//
// # Architecture
//
// One iteration is four phases, each a pure function from an immutable state
// snapshot to a Step:
//
//   - Request: send the conversation, get the reply
//   - Parse: extract directives best-effort (lineedit.Parse)
//   - Apply: anchor-validated splicing (lineedit.Applier)
//   - Verify: run the configured shell command in the workspace
//
// A Step either continues to the next phase, retries the iteration with a
// corrective prompt, or stops the loop with a terminal StopReason. Retries
// are bounded per phase; when incremental editing stalls completely the loop
// falls back once to whole-file regeneration.
//
// # Quick Start
//
//	ws, _ := editloop.NewLocalWorkspace("/path/to/project")
//	cfg := editloop.DefaultConfig()
//	cfg.EditableFiles = []string{"main.go"}
//	cfg.VerifyCommand = "go build ./..."
//
//	loop := editloop.NewLoop(textgen.NewClientFromEnv(), ws, &cfg)
//	outcome, err := loop.Run(ctx, "add a --verbose flag")
//	fmt.Println(outcome.Stop)
//
// Hosts observe progress through the loop's event channel; every event
// carries the run's task ID.
package editloop
