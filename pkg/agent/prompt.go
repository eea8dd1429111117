package agent

import "github.com/commandcenter/commandcenter/pkg/contextmgr"

// formatBundleForPrompt renders the assembled context bundle the same
// way contextmgr does for its own cache/logging consumers, so every
// agent sees an identical rendering of the same budget-bounded context.
func formatBundleForPrompt(ec *ExecutionContext) string {
	return contextmgr.Format(ec.Bundle)
}
