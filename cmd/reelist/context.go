package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"reelist/internal/config"
	"reelist/internal/engine"
	"reelist/internal/logging"
	"reelist/internal/remote"
	"reelist/internal/store"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withStore opens the local cache for commands that never talk to the
// server.
func (c *commandContext) withStore(fn func(context.Context, *store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	defer st.Close()
	return fn(context.Background(), st)
}

// withEngine wires the store, remote client, and sync engine for
// one-shot commands. Engine logs go to the rotated log file only;
// command output stays on stdout.
func (c *commandContext) withEngine(fn func(context.Context, *engine.Engine, *store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	defer st.Close()

	client, err := remote.New(cfg)
	if err != nil {
		return fmt.Errorf("remote client: %w", err)
	}

	logger, err := logging.New(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		FilePath:   filepath.Join(cfg.Paths.LogDir, "reelist.log"),
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Console:    io.Discard,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	eng := engine.New(cfg, st, client, logger)
	return fn(context.Background(), eng, st)
}

// reportOutcome prints the settled state of a mutation: confirmed by the
// server, or applied locally and queued for the next sync.
func reportOutcome(out io.Writer, outcome engine.Outcome, confirmed string) {
	if outcome == engine.OutcomeQueued {
		fmt.Fprintln(out, "Server unreachable; change applied locally and queued for sync.")
		return
	}
	fmt.Fprintln(out, confirmed)
}
