package ai

import (
	"fmt"

	"github.com/jpl-au/pim/cmd"
	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/format"
	"github.com/jpl-au/pim/internal/store"
	"github.com/spf13/cobra"
)

func (e *Extension) newAgentCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "agent",
		Short: "Manage agent presets",
	}

	set := &cobra.Command{
		Use:   "set <agent-id>",
		Short: "Create or replace an agent preset",
		Args:  cobra.ExactArgs(1),
		RunE:  e.runAgentSet,
	}
	set.Flags().String(extension.FlagName, "", "Display name (required)")
	set.Flags().String(extension.FlagDescription, "", "Description")
	set.Flags().String(extension.FlagIcon, "", "Icon")
	set.Flags().String(flagSystemPrompt, "", `System prompt (required, "-" reads stdin)`)
	set.Flags().Float64(flagTemperature, 0.7, "Sampling temperature (0-2)")
	set.Flags().Int(flagMaxTokens, 0, "Maximum tokens (default 2000)")
	set.Flags().String(extension.FlagProvider, "", "Preferred provider")
	set.Flags().String(extension.FlagModel, "", "Preferred model")
	set.Flags().Bool(flagCurrent, false, "Make it the current agent")
	_ = set.MarkFlagRequired(extension.FlagName)
	_ = set.MarkFlagRequired(flagSystemPrompt)

	c.AddCommand(
		set,
		&cobra.Command{Use: "ls", Aliases: []string{"list"}, Short: "List agents", Args: cobra.NoArgs, RunE: e.runAgentList},
		&cobra.Command{Use: "show <agent-id>", Short: "Show an agent preset", Args: cobra.ExactArgs(1), RunE: e.runAgentShow},
		&cobra.Command{Use: "use <agent-id>", Short: "Make an agent current", Args: cobra.ExactArgs(1), RunE: e.runAgentUse},
		&cobra.Command{Use: "current", Short: "Show the current agent", Args: cobra.NoArgs, RunE: e.runAgentCurrent},
		&cobra.Command{Use: "rm <agent-id>", Short: "Delete a custom agent", Args: cobra.ExactArgs(1), RunE: e.runAgentDelete},
	)
	return c
}

func (e *Extension) runAgentSet(c *cobra.Command, args []string) error {
	prompt, _ := c.Flags().GetString(flagSystemPrompt)
	prompt, err := extension.Body(prompt, c.InOrStdin())
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	a := store.Agent{
		AgentID:      args[0],
		SystemPrompt: prompt,
		Provider:     extension.OptStringFlag(c, extension.FlagProvider),
		Model:        extension.OptStringFlag(c, extension.FlagModel),
	}
	a.Name, _ = c.Flags().GetString(extension.FlagName)
	a.Description, _ = c.Flags().GetString(extension.FlagDescription)
	a.Icon, _ = c.Flags().GetString(extension.FlagIcon)
	a.Temperature, _ = c.Flags().GetFloat64(flagTemperature)
	a.MaxTokens, _ = c.Flags().GetInt(flagMaxTokens)
	a.IsCurrent, _ = c.Flags().GetBool(flagCurrent)

	saved, err := e.st.SaveAgent(c.Context(), a)
	event("agent", "save", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("agent set %s: %w", args[0], err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(saved)
	}
	fmt.Fprintf(cmd.Out(), "Saved agent %s\n", saved.AgentID)
	return nil
}

func (e *Extension) runAgentList(c *cobra.Command, _ []string) error {
	as, err := e.st.Agents(c.Context())
	event("agent", "list", "").Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("agent ls: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(as)
	}
	rows := make([][]string, 0, len(as))
	for _, a := range as {
		var flags []string
		if a.IsCurrent {
			flags = append(flags, "current")
		}
		if a.IsBuiltin {
			flags = append(flags, "builtin")
		}
		rows = append(rows, []string{a.AgentID, a.Icon + " " + a.Name, fmt.Sprint(flags), a.Description})
	}
	format.Table(cmd.Out(), []string{"agent", "name", "", "description"}, rows)
	return nil
}

func (e *Extension) printAgent(a *store.Agent) error {
	if cmd.JSON() {
		return cmd.PrintJSON(a)
	}
	w := cmd.Out()
	fmt.Fprintf(w, "%s %s (%s)\n", a.Icon, a.Name, a.AgentID)
	if a.Description != "" {
		fmt.Fprintln(w, a.Description)
	}
	fmt.Fprintf(w, "Temperature %.1f, max tokens %d", a.Temperature, a.MaxTokens)
	if a.Provider != nil {
		fmt.Fprintf(w, ", %s/%s", *a.Provider, format.Deref(a.Model, "default"))
	}
	fmt.Fprintf(w, "\n\n%s\n", a.SystemPrompt)
	return nil
}

func (e *Extension) runAgentShow(c *cobra.Command, args []string) error {
	a, err := e.st.Agent(c.Context(), args[0])
	event("agent", "show", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("agent show %s: %w", args[0], err))
	}
	return e.printAgent(a)
}

func (e *Extension) runAgentUse(c *cobra.Command, args []string) error {
	err := e.st.SetCurrentAgent(c.Context(), args[0])
	event("agent", "use", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("agent use %s: %w", args[0], err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]string{"current": args[0]})
	}
	fmt.Fprintf(cmd.Out(), "Current agent: %s\n", args[0])
	return nil
}

func (e *Extension) runAgentCurrent(c *cobra.Command, _ []string) error {
	a, err := e.st.CurrentAgent(c.Context())
	event("agent", "current", "").Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("agent current: %w", err))
	}
	return e.printAgent(a)
}

func (e *Extension) runAgentDelete(c *cobra.Command, args []string) error {
	err := e.st.DeleteAgent(c.Context(), args[0])
	event("agent", "delete", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("agent rm %s: %w", args[0], err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]string{"deleted": args[0]})
	}
	fmt.Fprintf(cmd.Out(), "Deleted agent %s\n", args[0])
	return nil
}
