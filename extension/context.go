// context.go defines the Context handed to extensions during Init.
//
// Extensions register before the store exists and receive the Context only
// once the command being run needs it, so everything here is already open.

package extension

import (
	"github.com/jpl-au/pim/internal/config"
	"github.com/jpl-au/pim/internal/store"
	"github.com/jpl-au/pim/internal/vault"
)

// Context provides extensions controlled access to pim internals.
type Context interface {
	// Store returns the repository for every entity family.
	Store() store.Store

	// Vault returns the encryption service for password entries.
	Vault() *vault.Service

	// Config returns the loaded user configuration.
	Config() *config.Config

	// DataDir is the resolved data directory (database, journal, logs).
	DataDir() string
}

type extContext struct {
	st  store.Store
	v   *vault.Service
	cfg *config.Config
	dir string
}

// NewContext creates a new extension context.
func NewContext(st store.Store, v *vault.Service, cfg *config.Config, dataDir string) Context {
	return &extContext{st: st, v: v, cfg: cfg, dir: dataDir}
}

func (c *extContext) Store() store.Store     { return c.st }
func (c *extContext) Vault() *vault.Service  { return c.v }
func (c *extContext) Config() *config.Config { return c.cfg }
func (c *extContext) DataDir() string        { return c.dir }
