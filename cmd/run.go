package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/martinemde/redline/editloop"
	"github.com/martinemde/redline/textgen"
)

var (
	runDir           string
	runFiles         []string
	runContextFiles  []string
	runProtect       []string
	runVerify        string
	runVerifyTimeout time.Duration
	runModel         string
	runProvider      string
	runParseRetries  int
	runApplyRetries  int
	runVerifyRetries int
	runTolerance     int
	runGitAdd        bool
	runShowDiff      bool
)

var runCmd = &cobra.Command{
	Use:   "run [goal]",
	Short: "Run the edit loop against the workspace",
	Long: `Sends the goal and the editable files to the model, applies the edit
directives it returns, runs the verification command, and iterates until
verification passes or the loop gives up. API keys come from the environment
(OPENAI_API_KEY, ANTHROPIC_API_KEY); a .env file in the working directory is
loaded if present.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// The .env file is optional; a missing one is not an error.
		_ = godotenv.Load()
		return runLoop(cmd.Context(), args[0])
	},
}

func init() {
	runCmd.Flags().StringVar(&runDir, "dir", ".", "Workspace root directory")
	runCmd.Flags().StringArrayVarP(&runFiles, "file", "f", nil, "Editable file (repeatable); none means every workspace file")
	runCmd.Flags().StringArrayVar(&runContextFiles, "context", nil, "Extra file to show the model without making it editable (repeatable)")
	runCmd.Flags().StringArrayVar(&runProtect, "protect", nil, "Gitignore-style pattern for files the model must never touch (repeatable)")
	runCmd.Flags().StringVar(&runVerify, "verify", "", "Shell command that must succeed for the run to count (e.g. \"go build ./...\")")
	runCmd.Flags().DurationVar(&runVerifyTimeout, "verify-timeout", 10*time.Minute, "Timeout for one verification run")
	runCmd.Flags().StringVarP(&runModel, "model", "m", "", "Model name to use with the LLM")
	runCmd.Flags().StringVar(&runProvider, "provider", "", "Provider to use (openai, anthropic); inferred from the model when empty")
	runCmd.Flags().IntVar(&runParseRetries, "max-parse-retries", 3, "Consecutive unusable replies tolerated before giving up")
	runCmd.Flags().IntVar(&runApplyRetries, "max-apply-retries", 3, "Consecutive fully-failed apply rounds before the whole-file fallback")
	runCmd.Flags().IntVar(&runVerifyRetries, "max-verify-retries", 3, "Consecutive verification failures tolerated before giving up")
	runCmd.Flags().IntVar(&runTolerance, "anchor-tolerance", -1, "Allowed drift for counted end-of-file anchors (-1 for the default)")
	runCmd.Flags().BoolVar(&runGitAdd, "git-add", false, "Stage files created by a successful run")
	runCmd.Flags().BoolVar(&runShowDiff, "show-diff", false, "Print the unified diff of every changed file at the end")
}

// stampedService fixes the provider and model on every request. The loop
// builds requests itself and leaves both blank.
type stampedService struct {
	svc      textgen.Service
	provider string
	model    string
}

func (s stampedService) Send(ctx context.Context, req textgen.Request) (*textgen.Result, error) {
	if req.Provider == "" {
		req.Provider = s.provider
	}
	if req.Model == "" {
		req.Model = s.model
	}
	return s.svc.Send(ctx, req)
}

func runLoop(parent context.Context, goal string) error {
	logger := GetLogger()

	ws, err := editloop.NewLocalWorkspace(runDir)
	if err != nil {
		return err
	}

	cfg := editloop.DefaultConfig()
	cfg.MaxParseRetries = runParseRetries
	cfg.MaxApplyRetries = runApplyRetries
	cfg.MaxVerifyRetries = runVerifyRetries
	cfg.AnchorTolerance = runTolerance
	cfg.VerifyCommand = runVerify
	cfg.VerifyTimeout = runVerifyTimeout
	cfg.EditableFiles = runFiles
	cfg.ProtectedPatterns = runProtect
	cfg.ContextFiles = append(append([]string(nil), runFiles...), runContextFiles...)

	client := textgen.NewClientFromEnv()
	defer client.Close()

	var svc textgen.Service = client
	if runModel != "" || runProvider != "" {
		svc = stampedService{svc: client, provider: runProvider, model: runModel}
	}

	loop := editloop.NewLoop(svc, ws, &cfg)
	logger.Logf("task %s: %s", loop.TaskID(), goal)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range loop.Events() {
			printEvent(logger, ev)
		}
	}()

	out, runErr := loop.Run(ctx, goal)
	wg.Wait()

	fmt.Printf("\n%s", summarize(out))
	if runShowDiff {
		for _, path := range out.Changed {
			fmt.Printf("\n%s", out.Diffs[path])
		}
	}

	if runGitAdd && out.Success() && len(out.Changed) > 0 {
		if err := editloop.GitAdd(context.Background(), ws.Root(), out.Changed); err != nil {
			logger.Logf("git add: %v", err)
			fmt.Fprintf(os.Stderr, "warning: git add failed: %v\n", err)
		}
	}

	return runErr
}

// printEvent writes every event to the journal and the interesting ones to
// the terminal.
func printEvent(logger *Logger, ev editloop.Event) {
	logger.Log("event", "kind", string(ev.Kind), "data", fmt.Sprintf("%v", ev.Data))

	switch ev.Kind {
	case editloop.EventRequest:
		fmt.Printf("-> model (%v messages)\n", ev.Data["messages"])
	case editloop.EventParsed:
		fmt.Printf("<- %v directive(s), %v failure(s)\n", ev.Data["edits"], ev.Data["failures"])
	case editloop.EventEditsApplied:
		fmt.Printf("   applied edits to %v\n", ev.Data["file"])
	case editloop.EventApplyFailed:
		fmt.Printf("   %v directive(s) did not apply\n", ev.Data["failures"])
	case editloop.EventFallbackStart:
		fmt.Printf("   falling back to whole-file replacement: %v\n", ev.Data["files"])
	case editloop.EventVerifyStart:
		fmt.Printf("   verifying: %v\n", ev.Data["command"])
	case editloop.EventVerifyResult:
		if ok, _ := ev.Data["ok"].(bool); ok {
			fmt.Println("   verification passed")
		} else {
			fmt.Println("   verification failed")
		}
	case editloop.EventWarning:
		fmt.Fprintf(os.Stderr, "warning: %v\n", ev.Data["message"])
	}
}

func summarize(out *editloop.Outcome) string {
	s := fmt.Sprintf("result: %s", out.Stop)
	if out.Detail != "" {
		s += " - " + out.Detail
	}
	s += "\n"
	for _, path := range out.Changed {
		marker := "M"
		for _, created := range out.Created {
			if created == path {
				marker = "A"
				break
			}
		}
		s += fmt.Sprintf("  %s %s\n", marker, path)
	}
	return s
}
