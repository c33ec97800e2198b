// Package vault provides the password vault extension for pim.
// It registers commands: vault.
//
// Each command is its own session: it reads the master password, unlocks,
// does its work and locks again. Secrets never go through MCP.
package vault

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jpl-au/pim/cmd"
	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/log"
	"github.com/jpl-au/pim/internal/store"
	pimvault "github.com/jpl-au/pim/internal/vault"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// session names the CLI's key slot in the vault service.
const session = "cli"

var errMismatch = errors.New("passwords do not match")

// MasterEnv supplies the master password without a prompt.
const MasterEnv = "PIM_MASTER"

func init() {
	extension.Register(&Extension{})
}

// Extension implements the vault extension.
type Extension struct {
	st store.Store
	v  *pimvault.Service
}

var (
	_ extension.Extension     = (*Extension)(nil)
	_ extension.Initializable = (*Extension)(nil)
)

// Name returns "vault".
func (e *Extension) Name() string { return "vault" }

// Init receives the store and the vault service.
func (e *Extension) Init(ctx extension.Context) error {
	e.st = ctx.Store()
	e.v = ctx.Vault()
	return nil
}

// Commands returns the vault command.
func (e *Extension) Commands() []*cobra.Command {
	return []*cobra.Command{e.newVaultCmd()}
}

// MCPTools returns nil.
func (e *Extension) MCPTools() []extension.MCPTool { return nil }

func event(action string, id int64) *log.Builder {
	l := log.Event("vault:entry", action).Author(cmd.Author())
	if id > 0 {
		l = l.Entity("password_entry", strconv.FormatInt(id, 10))
	}
	return l
}

// stdin is shared so successive prompts on a pipe each get their own line.
var stdin = bufio.NewReader(os.Stdin)

// readSecret prompts on stderr and reads a line without echo when stdin is
// a terminal.
func readSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func master() (string, error) {
	if m := os.Getenv(MasterEnv); m != "" {
		return m, nil
	}
	return readSecret("Master password: ")
}

// unlock opens the CLI session. The caller defers lock.
func (e *Extension) unlock(c *cobra.Command) error {
	m, err := master()
	if err != nil {
		return err
	}
	return e.v.Unlock(c.Context(), session, m)
}

func (e *Extension) lock() { e.v.Lock(session) }

func (e *Extension) newVaultCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "vault",
		Short: "Encrypted password vault",
		Long: `Store credentials encrypted under a master password.

Commands that read or write secrets ask for the master password; set
` + MasterEnv + ` to supply it non-interactively.`,
	}

	gen := &cobra.Command{
		Use:   "generate",
		Short: "Generate a random password",
		Args:  cobra.NoArgs,
		RunE:  e.runGenerate,
	}
	gen.Flags().Int(extension.FlagLength, pimvault.DefaultLength, "Length")
	gen.Flags().Bool("no-symbols", false, "Letters and digits only")

	c.AddCommand(
		gen,
		&cobra.Command{Use: "setup", Short: "Set the master password", Args: cobra.NoArgs, RunE: e.runSetup},
		&cobra.Command{Use: "unlock", Short: "Check the master password", Args: cobra.NoArgs, RunE: e.runUnlock},
		&cobra.Command{Use: "passwd", Short: "Change the master password and re-encrypt every entry", Args: cobra.NoArgs, RunE: e.runPasswd},
		&cobra.Command{Use: "strength [password]", Short: "Score a password from 0 to 100", Args: cobra.MaximumNArgs(1), RunE: e.runStrength},
		e.newCategoryCmd(),
	)
	c.AddCommand(e.entryCommands()...)
	return c
}

func (e *Extension) runSetup(c *cobra.Command, _ []string) error {
	ctx := c.Context()
	l := log.Event("vault:vault", "setup").Author(cmd.Author())
	ok, err := e.v.IsSetup(ctx)
	if err == nil && ok {
		err = pimvault.ErrAlreadySetup
	}
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(fmt.Errorf("vault setup: %w", err))
	}
	m, err := master()
	if err == nil && os.Getenv(MasterEnv) == "" {
		var again string
		if again, err = readSecret("Repeat master password: "); err == nil && again != m {
			err = errMismatch
		}
	}
	if err == nil {
		err = e.v.Setup(ctx, session, m)
		e.lock()
	}
	l.Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("vault setup: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]bool{"setup": true})
	}
	fmt.Fprintln(cmd.Out(), "Vault ready")
	return nil
}

func (e *Extension) runUnlock(c *cobra.Command, _ []string) error {
	err := e.unlock(c)
	e.lock()
	log.Event("vault:vault", "unlock").Author(cmd.Author()).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("vault unlock: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]bool{"ok": true})
	}
	fmt.Fprintln(cmd.Out(), "Master password OK")
	return nil
}

func (e *Extension) runPasswd(c *cobra.Command, _ []string) error {
	l := log.Event("vault:vault", "passwd").Author(cmd.Author())
	cur, err := master()
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	next, err := readSecret("New master password: ")
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	n, err := e.v.ChangeMaster(c.Context(), session, cur, next)
	e.lock()
	l.Detail("entries", n).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("vault passwd: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]int{"reencrypted": n})
	}
	fmt.Fprintf(cmd.Out(), "Master password changed, %d entries re-encrypted\n", n)
	return nil
}

func (e *Extension) runGenerate(c *cobra.Command, _ []string) error {
	opts := pimvault.DefaultGenerateOptions()
	opts.Length, _ = c.Flags().GetInt(extension.FlagLength)
	noSym, _ := c.Flags().GetBool("no-symbols")
	opts.Symbols = !noSym
	pw, err := pimvault.GeneratePassword(opts)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("vault generate: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]any{"password": pw, "strength": pimvault.Strength(pw)})
	}
	fmt.Fprintln(cmd.Out(), pw)
	return nil
}

func (e *Extension) runStrength(_ *cobra.Command, args []string) error {
	var pw string
	var err error
	if len(args) == 1 {
		pw = args[0]
	} else if pw, err = readSecret("Password: "); err != nil {
		return cmd.PrintJSONError(err)
	}
	score := pimvault.Strength(pw)
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]int{"strength": score})
	}
	fmt.Fprintf(cmd.Out(), "%d/100\n", score)
	return nil
}
