// ABOUTME: Wires configuration, logging, storage, session, and API client for a command
// ABOUTME: CLI commands log to stderr; the TUI logs to a file in the config directory

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/ToniTF/clientcd/internal/client"
	"github.com/ToniTF/clientcd/internal/config"
	"github.com/ToniTF/clientcd/internal/logger"
	"github.com/ToniTF/clientcd/internal/session"
	"github.com/ToniTF/clientcd/internal/storage"
)

// runtime is the wired core for one invocation
type runtime struct {
	cfg     *config.Config
	log     zerolog.Logger
	storage storage.Storage
	session *session.Store
	client  *client.Client
	logFile *os.File
}

// openRuntime builds the core. When rehydrate is set the session is resolved
// before returning; the TUI resolves it itself behind a loading screen.
func openRuntime(ctx context.Context, logOutput io.Writer, rehydrate bool) (*runtime, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg}
	if logOutput == nil {
		f, err := logger.OpenFile(cfg.ConfigDir)
		if err != nil {
			return nil, err
		}
		rt.logFile = f
		logOutput = f
	}
	rt.log = logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: logOutput})

	st, err := storage.Open(cfg.Storage, cfg.ConfigDir)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("open session storage: %w", err)
	}
	rt.storage = st

	rt.session = session.NewStore(st, rt.log)
	rt.client = client.New(client.Options{
		BaseURL: cfg.APIURL,
		Timeout: cfg.Timeout,
		Storage: st,
		Session: rt.session,
		Logger:  rt.log,
	})

	if rehydrate {
		if _, err := rt.session.Rehydrate(); err != nil {
			rt.log.Warn().Err(err).Msg("Could not restore session, continuing signed out")
		}
	}

	rt.log.Debug().
		Str("api_url", cfg.APIURL).
		Str("storage", cfg.Storage).
		Str("config_dir", cfg.ConfigDir).
		Msg("Runtime ready")
	return rt, nil
}

// Close releases storage and the log file
func (r *runtime) Close() error {
	var errs []error
	if r.storage != nil {
		errs = append(errs, r.storage.Close())
	}
	if r.logFile != nil {
		errs = append(errs, r.logFile.Close())
	}
	return errors.Join(errs...)
}
