package editloop

import (
	"path/filepath"

	ignore "github.com/sabhiram/go-gitignore"
)

// EditableSet decides which workspace files the model may modify. A nil or
// empty declared set means every workspace file is fair game; protected
// patterns (gitignore syntax) override the declared set either way.
type EditableSet struct {
	files     map[string]bool
	protected *ignore.GitIgnore
}

// NewEditableSet builds the set from declared files and protected patterns.
func NewEditableSet(files []string, protectedPatterns []string) *EditableSet {
	s := &EditableSet{}
	if len(files) > 0 {
		s.files = make(map[string]bool, len(files))
		for _, f := range files {
			s.files[filepath.Clean(f)] = true
		}
	}
	if len(protectedPatterns) > 0 {
		s.protected = ignore.CompileIgnoreLines(protectedPatterns...)
	}
	return s
}

// IsEditable reports whether the model may modify path.
func (s *EditableSet) IsEditable(path string) bool {
	cleaned := filepath.Clean(path)
	if s.protected != nil && s.protected.MatchesPath(cleaned) {
		return false
	}
	if s.files == nil {
		return true
	}
	return s.files[cleaned]
}

// Add declares one more editable file. The loop calls this when the model
// creates a file, so later edits to it pass the check.
func (s *EditableSet) Add(path string) {
	if s.files == nil {
		return
	}
	s.files[filepath.Clean(path)] = true
}

// Files returns the declared set, or nil when everything is editable.
func (s *EditableSet) Files() []string {
	if s.files == nil {
		return nil
	}
	out := make([]string, 0, len(s.files))
	for f := range s.files {
		out = append(out, f)
	}
	return out
}
