// Package all imports all built-in pim extensions.
// Import this package to register all built-in commands.
package all

import (
	// Each extension registers itself via init()
	_ "github.com/jpl-au/pim/extension/ai"
	_ "github.com/jpl-au/pim/extension/book"
	_ "github.com/jpl-au/pim/extension/cards"
	_ "github.com/jpl-au/pim/extension/core"
	_ "github.com/jpl-au/pim/extension/habit"
	_ "github.com/jpl-au/pim/extension/knowledge"
	_ "github.com/jpl-au/pim/extension/tasks"
	_ "github.com/jpl-au/pim/extension/timeline"
	_ "github.com/jpl-au/pim/extension/vault"
)
