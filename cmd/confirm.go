/*
Copyright © 2026 James Lawson (jpl-au) <hello@caelisco.net>
*/

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// in is the confirmation input. Tests can replace it.
var in io.Reader = os.Stdin

// Confirm asks a yes/no question on the output writer and reports whether
// the answer was yes. Anything unreadable counts as no.
func Confirm(prompt string) bool {
	fmt.Fprintf(out, "%s [y/N] ", prompt)
	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && response == "" {
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
