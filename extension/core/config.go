// config.go implements "pim config" for viewing and setting configuration.
//
// Config cascades like git: the local .pim/config.yaml wins over the global
// ~/.pim/config.yaml. Writes go to the file that was read; --local forces
// the local file even before it exists.

package core

import (
	"fmt"
	"slices"

	"github.com/jpl-au/pim/cmd"
	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/config"
	"github.com/jpl-au/pim/internal/log"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "config [key] [value]",
		Short: "View or set config values",
		Long: `View or set config values.

  pim config                          # show config
  pim config limits.search_results    # show one value
  pim config author.name "Ada"        # set a value

Keys: author.name, data.dir, log.level, limits.breadcrumb_depth,
limits.search_results, limits.preview_lines, vault.kdf_time, vault.kdf_memory

Configuration locations:
  Global: ~/.pim/config.yaml
  Local:  .pim/config.yaml`,
		Args:      cobra.MaximumNArgs(2),
		ValidArgs: config.ValidKeys(),
		RunE:      runConfig,
	}
	c.Flags().Bool(extension.FlagLocal, false, "Use local config (.pim/config.yaml)")
	return c
}

func runConfig(c *cobra.Command, args []string) error {
	forceLocal, _ := c.Flags().GetBool(extension.FlagLocal)

	var cfg *config.Config
	var err error
	if forceLocal {
		cfg, err = config.LoadScope(config.ScopeLocal)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("config load: %w", err))
	}

	scope := "global"
	if cfg.Scope() == config.ScopeLocal {
		scope = "local"
	}

	switch len(args) {
	case 0:
		all := cfg.All()
		log.Event("core:config", "list").Author(cmd.Author()).Write(nil)
		if cmd.JSON() {
			return cmd.PrintJSON(all)
		}
		keys := make([]string, 0, len(all))
		for k := range all {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			marker := ""
			if !cfg.IsSet(k) {
				marker = " (default)"
			}
			fmt.Fprintf(cmd.Out(), "%s: %s%s\n", k, all[k], marker)
		}

	case 1:
		v, err := cfg.Get(args[0])
		log.Event("core:config", "get").Author(cmd.Author()).Detail("key", args[0]).Write(err)
		if err != nil {
			return cmd.PrintJSONError(fmt.Errorf("config get %q: %w", args[0], err))
		}
		if cmd.JSON() {
			return cmd.PrintJSON(map[string]string{args[0]: v})
		}
		fmt.Fprintln(cmd.Out(), v)

	case 2:
		if err := cfg.Set(args[0], args[1]); err != nil {
			log.Event("core:config", "set").Author(cmd.Author()).Detail("key", args[0]).Write(err)
			return cmd.PrintJSONError(fmt.Errorf("config set %q: %w", args[0], err))
		}
		saveErr := cfg.Save()
		log.Event("core:config", "set").Author(cmd.Author()).Detail("key", args[0]).Detail("scope", scope).Write(saveErr)
		if saveErr != nil {
			return cmd.PrintJSONError(fmt.Errorf("config save: %w", saveErr))
		}
		if cmd.JSON() {
			return cmd.PrintJSON(map[string]string{"key": args[0], "value": args[1], "scope": scope})
		}
		fmt.Fprintf(cmd.Out(), "%s = %s (%s)\n", args[0], args[1], scope)
	}
	return nil
}
