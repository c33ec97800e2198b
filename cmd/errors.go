/*
Copyright © 2026 James Lawson (jpl-au) <hello@caelisco.net>
*/

// errors.go maps repository errors to the text users see.

package cmd

import (
	"errors"

	"github.com/jpl-au/pim/internal/store"
	"github.com/jpl-au/pim/internal/vault"
)

// messages are the fixed descriptions for well-known failures.
var messages = []struct {
	err  error
	text string
}{
	{store.ErrNotFound, "not found"},
	{store.ErrBoxNotEmpty, "cannot delete non-empty box"},
	{store.ErrLock, "database lock error"},
	{vault.ErrLocked, "vault is locked"},
	{vault.ErrWrongPassword, "wrong master password"},
}

// Describe returns the user-facing message for err. Known sentinel errors
// map to fixed text; everything else keeps its wrapped message.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	for _, m := range messages {
		if errors.Is(err, m.err) {
			return m.text
		}
	}
	return err.Error()
}

// describedError presents an error through Describe while keeping the
// chain intact for errors.Is.
type describedError struct{ err error }

func (e describedError) Error() string { return Describe(e.err) }
func (e describedError) Unwrap() error { return e.err }
