package editloop

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/martinemde/redline/textgen"
)

// fallbackResult is one file's outcome from the replacement round.
type fallbackResult struct {
	path string
	err  error
}

// replaceFiles is the whole-file fallback: for every file incremental
// editing failed on, ask the model for the complete new content and
// overwrite. Files run concurrently, one goroutine each, all cancelled
// together through ctx.
func (l *Loop) replaceFiles(ctx context.Context, goal string, files []string) (succeeded []string, failed []fallbackResult) {
	results := make([]fallbackResult, len(files))
	var wg sync.WaitGroup
	for i, path := range files {
		wg.Add(1)
		go func(idx int, path string) {
			defer wg.Done()
			results[idx] = fallbackResult{path: path, err: l.replaceOneFile(ctx, goal, path)}
		}(i, path)
	}
	wg.Wait()

	for _, r := range results {
		if r.err == nil {
			succeeded = append(succeeded, r.path)
		} else {
			failed = append(failed, r)
		}
	}
	return succeeded, failed
}

func (l *Loop) replaceOneFile(ctx context.Context, goal, path string) error {
	content := ""
	if l.ws.Exists(path) {
		var err error
		content, err = l.ws.Read(path)
		if err != nil {
			return err
		}
	}

	res, err := l.svc.Send(ctx, textgen.Request{
		Messages: []textgen.Message{
			textgen.SystemMessage(systemPrompt),
			textgen.UserMessage(replacePrompt(path, goal, content)),
		},
	})
	if err != nil {
		return err
	}

	replacement, err := extractFence(res.Text)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	l.emitter.Emit(EventFallbackFile, map[string]interface{}{
		"path":  path,
		"bytes": len(replacement),
	})
	l.applier.RecordOriginal(path, content)
	return l.ws.Write(path, replacement)
}

// extractFence pulls the content of exactly one triple-backtick fence out
// of a reply. An explicitly empty fence is a valid empty file; zero or
// multiple fences is an error.
func extractFence(text string) (string, error) {
	lines := strings.Split(text, "\n")
	var (
		content []string
		fences  int
		open    bool
	)
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if open {
				open = false
			} else {
				open = true
				fences++
			}
			continue
		}
		if open {
			content = append(content, line)
		}
	}
	if open {
		return "", fmt.Errorf("unterminated code fence in reply")
	}
	if fences == 0 {
		return "", fmt.Errorf("no code fence in reply")
	}
	if fences > 1 {
		return "", fmt.Errorf("expected one code fence, found %d", fences)
	}
	if len(content) == 0 {
		// An explicitly empty fence means an empty file.
		return "", nil
	}
	return strings.Join(content, "\n") + "\n", nil
}
