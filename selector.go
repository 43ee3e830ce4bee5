package ferry

// ============================================================================
// FileSelector Interface
// ============================================================================

// FileSelector decides which local files take part in a transfer.
//
// Paths are relative to the transfer root and slash separated. Selectors let
// tree walks prune whole directories instead of filtering every leaf.
type FileSelector interface {
	// Match returns true if the file should be transferred.
	Match(rel string) bool

	// TraverseDescendants returns true if the directory should be entered.
	// If false, the directory and all its contents are skipped.
	TraverseDescendants(rel string) bool
}

// ============================================================================
// Built-in Selectors
// ============================================================================

// AllSelector matches all files and traverses all directories.
type AllSelector struct{}

func (s AllSelector) Match(rel string) bool               { return true }
func (s AllSelector) TraverseDescendants(rel string) bool { return true }

// All returns a selector that matches all files.
func All() FileSelector {
	return AllSelector{}
}

// ============================================================================
// FuncSelector - Custom logic
// ============================================================================

type funcSelector struct {
	matchFn func(string) bool
}

// FuncSelector creates a selector from a custom function. Every directory is
// traversed.
//
// Example:
//
//	ferry.FuncSelector(func(rel string) bool {
//	    return strings.HasSuffix(rel, ".html")
//	})
func FuncSelector(fn func(rel string) bool) FileSelector {
	return &funcSelector{matchFn: fn}
}

func (s *funcSelector) Match(rel string) bool           { return s.matchFn(rel) }
func (s *funcSelector) TraverseDescendants(string) bool { return true }
