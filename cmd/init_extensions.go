/*
Copyright © 2026 James Lawson (jpl-au) <hello@caelisco.net>
*/

// init_extensions.go loads configuration, resolves the data directory and
// opens the store the first time a command needs it.
//
// Extensions register during init() but are only initialised here, once per
// process. The store and vault service are shared by every extension
// through the extension Context.

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/config"
	"github.com/jpl-au/pim/internal/log"
	"github.com/jpl-au/pim/internal/repo"
	"github.com/jpl-au/pim/internal/store"
	"github.com/jpl-au/pim/internal/vault"
)

// noStoreCommands lists commands that bypass store initialisation. Built
// from the bootstrap commands plus extension-declared storeless commands.
var noStoreCommands map[string]bool

func buildNoStoreCommands() map[string]bool {
	cmds := map[string]bool{
		"help":       true,
		"completion": true,
	}
	for _, ext := range extension.All() {
		if s, ok := ext.(extension.Storeless); ok {
			for _, name := range s.NoStoreCommands() {
				cmds[name] = true
			}
		}
	}
	return cmds
}

var (
	cfg        *config.Config
	dataDir    string
	diagCloser io.Closer

	prepareOnce sync.Once
	prepareErr  error

	extContext extension.Context
	extStore   *store.SQLiteStore
	initOnce   sync.Once
	initErr    error
)

// prepare loads config, resolves the data directory and opens the audit and
// diagnostic logs. Logging is best effort: failures only warn.
func prepare() error {
	prepareOnce.Do(func() {
		c, err := config.Load()
		if err != nil {
			cfg = &config.Config{}
			prepareErr = err
			return
		}
		cfg = c
		if author == "" {
			author = cfg.Author.Name
		}

		d, err := cfg.DataDir(dir)
		if err != nil {
			prepareErr = err
			return
		}
		dataDir = d

		if err := log.Open(dataDir); err != nil {
			fmt.Fprintf(os.Stderr, "warning: audit log unavailable: %v\n", err)
		}
		logger, closer, err := log.Diagnostics(dataDir, cfg.LogLevel(), os.Stderr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: diagnostic log unavailable: %v\n", err)
			return
		}
		diagCloser = closer
		slog.SetDefault(logger)
	})
	return prepareErr
}

// Config returns the loaded configuration. Valid after prepare.
func Config() *config.Config { return cfg }

// DataDir returns the resolved data directory. Valid after prepare.
func DataDir() string { return dataDir }

// StoreOptions builds store options from configuration and flags.
func StoreOptions() store.Options {
	return store.NewOptions().
		WithAuthor(author).
		WithSearchLimit(cfg.SearchResults()).
		WithPreviewLines(cfg.PreviewLines()).
		WithBreadcrumbDepth(cfg.BreadcrumbDepth())
}

// VaultParams builds key-derivation parameters from configuration.
func VaultParams() vault.Params {
	p := vault.DefaultParams()
	p.Time = cfg.KDFTime()
	p.Memory = cfg.KDFMemory()
	return p
}

// initExtensions opens the store and injects the shared Context into every
// Initializable extension.
func initExtensions(ctx context.Context) error {
	initOnce.Do(func() {
		if ctx == nil {
			ctx = context.Background()
		}
		s, err := repo.Open(ctx, dataDir, StoreOptions())
		if err != nil {
			initErr = err
			return
		}
		extStore = s

		extContext = extension.NewContext(s, vault.New(s, VaultParams()), cfg, dataDir)
		for _, ext := range extension.All() {
			if init, ok := ext.(extension.Initializable); ok {
				if err := init.Init(extContext); err != nil {
					initErr = fmt.Errorf("init extension %s: %w", ext.Name(), err)
					return
				}
			}
		}
	})
	return initErr
}

var extensionsOnce sync.Once

// registerExtensions adds commands from all registered extensions.
func registerExtensions() {
	extensionsOnce.Do(func() {
		for _, ext := range extension.All() {
			for _, cmd := range ext.Commands() {
				rootCmd.AddCommand(cmd)
			}
		}
		noStoreCommands = buildNoStoreCommands()
	})
}
