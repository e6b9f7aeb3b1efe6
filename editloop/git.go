package editloop

import (
	"context"
	"fmt"
	"strings"
)

// GitAdd stages files in the workspace's git repository. It is best-effort:
// callers stage newly created files after a successful run and log the
// error rather than failing on it, since not every workspace is a repo.
func GitAdd(ctx context.Context, root string, files []string) error {
	if len(files) == 0 {
		return nil
	}
	quoted := make([]string, len(files))
	for i, f := range files {
		quoted[i] = fmt.Sprintf("%q", f)
	}
	return RunShell(ctx, "git add -- "+strings.Join(quoted, " "), root, nil)
}
