// flagvalues.go reads optional flags as pointers, so that patch structs can
// tell "not given" from "set to the zero value".

package extension

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jpl-au/pim/internal/store"
	"github.com/jpl-au/pim/internal/validate"
	"github.com/spf13/cobra"
)

// OptStringFlag returns the flag value when it was given on the command line.
func OptStringFlag(c *cobra.Command, name string) *string {
	if !c.Flags().Changed(name) {
		return nil
	}
	v, _ := c.Flags().GetString(name)
	return &v
}

// OptIntFlag returns the flag value when it was given.
func OptIntFlag(c *cobra.Command, name string) *int {
	if !c.Flags().Changed(name) {
		return nil
	}
	v, _ := c.Flags().GetInt(name)
	return &v
}

// OptInt64Flag returns the flag value when it was given.
func OptInt64Flag(c *cobra.Command, name string) *int64 {
	if !c.Flags().Changed(name) {
		return nil
	}
	v, _ := c.Flags().GetInt64(name)
	return &v
}

// OptBoolFlag returns the flag value when it was given.
func OptBoolFlag(c *cobra.Command, name string) *bool {
	if !c.Flags().Changed(name) {
		return nil
	}
	v, _ := c.Flags().GetBool(name)
	return &v
}

// PlacementFlags registers --after and --before.
func PlacementFlags(c *cobra.Command) {
	c.Flags().String(FlagAfter, "", "Place after this sibling id")
	c.Flags().String(FlagBefore, "", "Place before this sibling id")
}

// Placement reads --after and --before. Neither means "append".
func Placement(c *cobra.Command) store.Placement {
	after, _ := c.Flags().GetString(FlagAfter)
	before, _ := c.Flags().GetString(FlagBefore)
	return store.Placement{After: after, Before: before}
}

// Body resolves text given as a flag value. "-" reads standard input.
func Body(value string, stdin io.Reader) (string, error) {
	if value != "-" {
		return value, nil
	}
	if stdin == nil {
		stdin = os.Stdin
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimRight(string(b), "\n"), nil
}

// ParseID reads a numeric entity id from a command argument.
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id %q must be a positive number", validate.ErrInvalid, s)
	}
	return id, nil
}
